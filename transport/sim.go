package transport

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// simPeer is the opaque handle an Address wraps when it names a node on a
// SimFabric rather than a real socket.
type simPeer struct {
	fabric *SimFabric
	name   string
}

// simFrame is one in-flight datagram: the encoded packet plus the sender's
// address, queued for asynchronous delivery so a reply sent from inside a
// handler never recurses back into the sender's own call stack (a real
// network never does either).
type simFrame struct {
	buf  []byte
	from Address
}

// SimFabric is a shared in-memory broadcast segment that one or more
// SimTransports attach to. It exists so tests can realize §8 end-to-end
// scenario 5 (10% synthetic packet loss between two processes) without a
// real network.
type SimFabric struct {
	mu       sync.Mutex
	peers    map[string]*SimTransport
	lossRate float64
	rng      *rand.Rand
}

// NewSimFabric creates a fabric where any packet sent between attached
// peers is dropped independently with probability lossRate.
func NewSimFabric(lossRate float64, rng *rand.Rand) *SimFabric {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &SimFabric{peers: make(map[string]*SimTransport), lossRate: lossRate, rng: rng}
}

func (f *SimFabric) drop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.lossRate
}

func (f *SimFabric) attach(name string, t *SimTransport) {
	f.mu.Lock()
	f.peers[name] = t
	f.mu.Unlock()
}

func (f *SimFabric) detach(name string) {
	f.mu.Lock()
	delete(f.peers, name)
	f.mu.Unlock()
}

func (f *SimFabric) lookup(name string) (*SimTransport, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.peers[name]
	return t, ok
}

func (f *SimFabric) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.peers))
	for n := range f.peers {
		names = append(names, n)
	}
	return names
}

// inboxDepth bounds each peer's pending-delivery queue; a full inbox drops
// the frame, simulating congestion rather than blocking the sender.
const inboxDepth = 256

// SimTransport is an in-memory Transport attached to a SimFabric. Delivery
// is asynchronous: Send/Broadcast enqueue onto the destination's inbox and
// return immediately, and a dedicated goroutine per SimTransport drains its
// own inbox and invokes the registered handler — so a handler that itself
// calls Send (an ack, a reply) never re-enters the original caller's stack,
// matching how a real datagram socket behaves.
type SimTransport struct {
	name    string
	fabric  *SimFabric
	groupID uint16
	tokens  xidTokenSource

	inbox chan simFrame

	mu      sync.Mutex
	handler func(Packet)

	Logger *logrus.Logger
}

// NewSimTransport attaches a new named peer to fabric and starts its
// delivery goroutine.
func NewSimTransport(fabric *SimFabric, name string, groupID uint16, logger *logrus.Logger) *SimTransport {
	t := &SimTransport{
		name:    name,
		fabric:  fabric,
		groupID: groupID,
		inbox:   make(chan simFrame, inboxDepth),
		Logger:  logger,
	}
	fabric.attach(name, t)
	go t.recvLoop()
	return t
}

func (t *SimTransport) logger() *logrus.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logrus.StandardLogger()
}

// Addr returns the Address other SimTransport peers must use to reach t.
func (t *SimTransport) Addr() Address {
	return Address{sim: &simPeer{fabric: t.fabric, name: t.name}}
}

func (t *SimTransport) recvLoop() {
	for frame := range t.inbox {
		pkt, ok := Decode(frame.buf)
		if !ok || pkt.GroupID != t.groupID {
			continue
		}
		pkt.PeerAddr = frame.from

		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(pkt)
		}
	}
}

func (t *SimTransport) enqueue(dst *SimTransport, b []byte) {
	if t.fabric.drop() {
		t.logger().Debugf("transport(sim): dropped packet %s -> %s to simulate loss", t.name, dst.name)
		return
	}
	frame := simFrame{buf: append([]byte(nil), b...), from: t.Addr()}
	select {
	case dst.inbox <- frame:
	default:
		t.logger().Debugf("transport(sim): inbox full for %s, dropping", dst.name)
	}
}

// Send implements Transport.
func (t *SimTransport) Send(addr Address, b []byte) (int, error) {
	if addr.sim == nil {
		return 0, errAddrNotSim
	}
	peer, ok := addr.sim.fabric.lookup(addr.sim.name)
	if !ok {
		return len(b), nil // unreachable peer: dropped, not an error
	}
	t.enqueue(peer, b)
	return len(b), nil
}

// Broadcast implements Transport: delivers to every other attached peer,
// each copy independently subject to the fabric's loss rate.
func (t *SimTransport) Broadcast(b []byte) (int, error) {
	for _, name := range t.fabric.names() {
		if name == t.name {
			continue
		}
		if peer, ok := t.fabric.lookup(name); ok {
			t.enqueue(peer, b)
		}
	}
	return len(b), nil
}

// Handle implements Transport.
func (t *SimTransport) Handle(cb func(Packet)) {
	t.mu.Lock()
	t.handler = cb
	t.mu.Unlock()
}

// ReserveToken implements Transport using xid-backed generation, the
// default for any caller that does not need §4.6's legacy IP/port
// derivation.
func (t *SimTransport) ReserveToken() uint32 {
	return t.tokens.next()
}

// Close detaches t from its fabric and stops its delivery goroutine.
func (t *SimTransport) Close() error {
	t.fabric.detach(t.name)
	close(t.inbox)
	return nil
}
