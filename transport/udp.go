package transport

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// UDPTransport is the production Transport: a bound net.UDPConn reading
// arrivals on its own goroutine, adapted from the teacher's
// net.Listen/net.Dial server-to-server channel to the unreliable
// datagram substrate §1 assumes rather than the teacher's reliable TCP
// streams.
type UDPTransport struct {
	conn       *net.UDPConn
	groupID    uint16
	broadcast  *net.UDPAddr
	token      *LegacyToken
	tokenOnce  sync.Once
	localPort  int

	mu      sync.Mutex
	handler func(Packet)

	Logger *logrus.Logger

	closeOnce sync.Once
}

// NewUDPTransport binds a UDP socket on localPort and targets broadcastAddr
// (host:port, e.g. "255.255.255.255:9000") for Broadcast calls.
func NewUDPTransport(groupID uint16, localPort int, broadcastAddr string, logger *logrus.Logger) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, err
	}
	bcast, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		conn.Close()
		return nil, err
	}
	t := &UDPTransport{
		conn:      conn,
		groupID:   groupID,
		broadcast: bcast,
		localPort: localPort,
		Logger:    logger,
	}
	go t.recvLoop()
	return t, nil
}

func (t *UDPTransport) logger() *logrus.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logrus.StandardLogger()
}

func (t *UDPTransport) recvLoop() {
	buf := make([]byte, HeaderLen+MaxMsgSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			// Closed socket ends the loop; anything else is a single
			// dropped read, matching §1's "unreliable" contract.
			if ne, ok := err.(net.Error); !ok || !ne.Temporary() {
				return
			}
			continue
		}
		pkt, ok := Decode(buf[:n])
		if !ok || pkt.GroupID != t.groupID {
			continue
		}
		pkt.PeerAddr = Address{Host: addr.IP.String(), Port: addr.Port}

		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(pkt)
		}
	}
}

// Send implements Transport.
func (t *UDPTransport) Send(addr Address, b []byte) (int, error) {
	udpAddr := &net.UDPAddr{IP: net.ParseIP(addr.Host), Port: addr.Port}
	return t.conn.WriteToUDP(b, udpAddr)
}

// Broadcast implements Transport.
func (t *UDPTransport) Broadcast(b []byte) (int, error) {
	return t.conn.WriteToUDP(b, t.broadcast)
}

// Handle implements Transport.
func (t *UDPTransport) Handle(cb func(Packet)) {
	t.mu.Lock()
	t.handler = cb
	t.mu.Unlock()
}

// ReserveToken implements Transport using §4.6's legacy IP/port-delta
// formula, seeded lazily from the bound local port. The peer port is
// unknown at bind time and is always taken as 0, so the delta term is
// localPort × 200.
func (t *UDPTransport) ReserveToken() uint32 {
	t.tokenOnce.Do(func() {
		lastByte := byte(0)
		if host, _, err := net.SplitHostPort(t.conn.LocalAddr().String()); err == nil {
			if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
				lastByte = ip.To4()[3]
			}
		}
		t.token = NewLegacyToken(lastByte, t.localPort, 0)
	})
	return t.token.Next()
}

// Close shuts down the underlying socket, ending recvLoop.
func (t *UDPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}
