// Package minimsg implements the reliable port-based message-passing
// layer: a post office of mailboxes, per-correspondent ack/retry state,
// a local fast-path that bypasses the network entirely when both
// endpoints live in the same process, and blocking receive/RPC built on
// package semaphore. Grounded on
// original_source/Project-Solution-4/minimsg.c and
// original_source/Project-Description-4.2-Code/minimsg_private.h for the
// port/correspondent shape, with the Go idioms (mutex-guarded shared
// state, alarm-driven retry) adapted from
// sfurman3-chatroom's server.go heartbeat/FIFO-receipt logic.
package minimsg

import (
	"github.com/sirupsen/logrus"

	"github.com/barrycburton/Minisystem-Message-Passing/transport"
)

// Timing and retry constants from §6.
const (
	// AckTimeoutTicks is how long a sender waits for an ack before
	// retransmitting (MINIMSG_ACK_TIMEOUT).
	AckTimeoutTicks uint64 = 500
	// MaxTries bounds the number of transmission attempts, the first send
	// included, before a pending message is given up on (MINIMSG_MAX_TRIES).
	MaxTries = 5
)

// MaxMsgSize and BroadcastPort are re-exported from transport for callers
// that only import minimsg.
const (
	MaxMsgSize    = transport.MaxMsgSize
	BroadcastPort = transport.BroadcastPort
)

func defaultLogger(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	return logrus.StandardLogger()
}
