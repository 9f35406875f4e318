package minimsg

import (
	"github.com/barrycburton/Minisystem-Message-Passing/alarm"
	"github.com/barrycburton/Minisystem-Message-Passing/container/directory"
	"github.com/barrycburton/Minisystem-Message-Passing/container/fifo"
	"github.com/barrycburton/Minisystem-Message-Passing/semaphore"
	"github.com/barrycburton/Minisystem-Message-Passing/transport"
)

// inbound is one message sitting in an arrival or response queue, already
// stripped of everything but what the application layer needs.
type inbound struct {
	body       []byte
	senderPort uint32
	thisID     uint32
	replyTo    uint32
}

// outbound is a message queued for transmission to a single correspondent,
// either currently in flight (pending) or waiting its turn.
type outbound struct {
	thisID   uint32
	replyTo  uint32
	destPort uint32 // what the wire packet's destination port field says
	body     []byte
}

// correspondent holds all per-(local-port, remote-port) state: ack/retry
// bookkeeping for outbound traffic and dedup bookkeeping for inbound
// traffic, matching minimsg_private.h's per-peer record.
type correspondent struct {
	remotePort uint32
	remoteAddr transport.Address

	lastSent     uint32
	lastReceived uint32

	pending *outbound
	waiting fifo.Queue
	tries   int
	alarmID alarm.ID
	hasAlarm bool

	rspArrived   fifo.Queue
	rspAvailable *semaphore.Semaphore
}

// mailbox is one port's record in the post office: its arrival queue and
// availability semaphore, plus the directory of correspondents keyed by
// remote port id.
type mailbox struct {
	id             uint32
	arrived        fifo.Queue
	avail          *semaphore.Semaphore
	correspondents *directory.Directory
}

// correspondentFor returns (creating if absent) the correspondent keyed by
// remotePort on mb. Callers must hold the System's lock.
func (s *System) correspondentFor(mb *mailbox, remotePort uint32) *correspondent {
	if v, ok := mb.correspondents.Get(remotePort); ok {
		return v.(*correspondent)
	}
	c := &correspondent{
		remotePort:   remotePort,
		rspAvailable: semaphore.New(s.sched, 0),
	}
	mb.correspondents.Add(remotePort, c)
	return c
}
