// Package transport models §1's "raw datagram transport" external
// collaborator: an unreliable, size-bounded packet channel with a
// broadcast address and a per-process arrival callback. minimsg is built
// against the Transport interface; UDPTransport and SimTransport are the
// two concrete shapes this repo supplies so the messaging layer is
// actually runnable and testable without a real network.
package transport

import (
	"errors"
	"hash/fnv"
	"sync/atomic"

	"github.com/rs/xid"
)

// errAddrNotSim is returned by SimTransport.Send when given an Address
// that does not name a SimFabric peer (e.g. a UDPTransport Address).
var errAddrNotSim = errors.New("transport: address is not a sim peer")

// Address identifies a peer's network endpoint. For UDPTransport this is
// a host:port pair; for SimTransport it is an opaque handle into the
// simulated fabric.
type Address struct {
	Host string
	Port int
	sim  *simPeer
}

// Zero reports whether the address has not yet been learned (§4.6: "if
// the correspondent's remote address is zero... broadcast the packet").
func (a Address) Zero() bool {
	return a.Host == "" && a.sim == nil
}

// Transport is the downward interface §6 describes: best-effort unicast
// send, broadcast, an arrival-callback registration, and token
// reservation for globally-unique port ids.
type Transport interface {
	// Send best-effort delivers b to addr, returning the number of bytes
	// sent or an error.
	Send(addr Address, b []byte) (int, error)
	// Broadcast best-effort delivers b to every peer on the transport's
	// broadcast segment.
	Broadcast(b []byte) (int, error)
	// Handle registers the callback invoked on every packet arrival. Only
	// one handler may be registered; the most recent call wins.
	Handle(func(Packet))
	// ReserveToken returns a port id unique among all address spaces
	// currently sharing this transport's broadcast segment.
	ReserveToken() uint32
	// Close releases any underlying resources (sockets, goroutines).
	Close() error
}

// LegacyToken reproduces §4.6's original token-reservation formula,
// seeded from (last byte of localIP × 2000 + (localPort − peerPort) ×
// 200 + 2). Subsequent tokens drawn from the same counter increase
// monotonically. UDPTransport always uses this, for wire
// compatibility with peers expecting the original derivation; new
// callers should prefer xid-backed reservation (see xidTokenSource).
type LegacyToken struct {
	counter uint32
}

// NewLegacyToken seeds a LegacyToken the way §4.6 describes.
func NewLegacyToken(localIPLastByte byte, localPort, peerPort int) *LegacyToken {
	seed := uint32(localIPLastByte)*2000 + uint32((localPort-peerPort)*200) + 2
	return &LegacyToken{counter: seed}
}

// Next returns the next monotonically increasing token.
func (l *LegacyToken) Next() uint32 {
	return atomic.AddUint32(&l.counter, 1)
}

// xidTokenSource is the default ReserveToken implementation for
// SimTransport and any caller not requesting legacy derivation: each call
// draws a fresh xid.ID and hashes its full 12 bytes (timestamp, machine
// id, pid, and per-process counter) down to a uint32, keeping tokens
// unique across distinct peers, not just across distinct calls on one
// peer, without reproducing §4.6's IP/port formula. Folding only the
// coarse Unix-time component would let two peers created within the same
// second collide; the machine/pid/counter bytes are what actually make
// xid.New() globally unique, so they must survive the fold.
type xidTokenSource struct{}

func (x *xidTokenSource) next() uint32 {
	id := xid.New()
	h := fnv.New32a()
	h.Write(id.Bytes())
	return h.Sum32()
}
