package minimsg

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/barrycburton/Minisystem-Message-Passing/alarm"
	"github.com/barrycburton/Minisystem-Message-Passing/container/directory"
	"github.com/barrycburton/Minisystem-Message-Passing/metrics"
	"github.com/barrycburton/Minisystem-Message-Passing/sched"
	"github.com/barrycburton/Minisystem-Message-Passing/semaphore"
	"github.com/barrycburton/Minisystem-Message-Passing/sync2"
	"github.com/barrycburton/Minisystem-Message-Passing/transport"
)

// System is the process-wide post office plus network binding: one
// System per process, matching §3's "process-wide directory" and §4.5's
// port/mailbox/correspondent model.
type System struct {
	groupID   uint16
	transport transport.Transport
	alarms    *alarm.System
	sched     *sched.Scheduler

	lock       sync2.Section
	postOffice *directory.Directory

	ackTimeoutTicks uint64
	maxTries        int

	Logger  *logrus.Logger
	Metrics *metrics.Messaging
}

// Option configures a System at construction time.
type Option func(*System)

// WithLogger overrides the default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *System) { s.Logger = l }
}

// WithMetrics attaches a metrics bundle.
func WithMetrics(m *metrics.Messaging) Option {
	return func(s *System) { s.Metrics = m }
}

// WithAckTimeout overrides AckTimeoutTicks. Production callers should
// leave this at its default; tests use it to avoid waiting out the full
// 500-tick timeout.
func WithAckTimeout(ticks uint64) Option {
	return func(s *System) { s.ackTimeoutTicks = ticks }
}

// WithMaxTries overrides MaxTries.
func WithMaxTries(tries int) Option {
	return func(s *System) { s.maxTries = tries }
}

// New constructs a System bound to sch (for blocking receive/RPC), alarms
// (for retransmission timers), and tr (the datagram substrate), and
// auto-creates the system broadcast port (id 1), per §4.5.
func New(sch *sched.Scheduler, alarms *alarm.System, tr transport.Transport, groupID uint16, opts ...Option) *System {
	s := &System{
		groupID:         groupID,
		transport:       tr,
		alarms:          alarms,
		sched:           sch,
		postOffice:      directory.New(),
		ackTimeoutTicks: AckTimeoutTicks,
		maxTries:        MaxTries,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createMailboxLocked(transport.BroadcastPort)
	tr.Handle(s.onPacket)
	return s
}

func (s *System) logger() *logrus.Logger {
	return defaultLogger(s.Logger)
}

func (s *System) createMailboxLocked(port uint32) *mailbox {
	mb := &mailbox{
		id:             port,
		avail:          semaphore.New(s.sched, 0),
		correspondents: directory.New(),
	}
	s.postOffice.Add(port, mb)
	return mb
}

// SystemPort returns the reserved broadcast port id (constant 1 within
// the process).
func (s *System) SystemPort() uint32 {
	return transport.BroadcastPort
}

// PortCreate allocates a mailbox and reserves a globally unique port id
// for it via the transport's token source.
func (s *System) PortCreate() uint32 {
	var id uint32
	for {
		id = s.transport.ReserveToken()
		if id != 0 && id != transport.BroadcastPort {
			break
		}
	}
	s.lock.Enter()
	defer s.lock.Exit()
	s.createMailboxLocked(id)
	return id
}

// PortDestroy removes port's mailbox from the post office and frees its
// queued messages and correspondents (and, transitively, any pending
// retransmission alarms). Destroying the broadcast port is refused.
func (s *System) PortDestroy(port uint32) error {
	if port == transport.BroadcastPort {
		return fmt.Errorf("minimsg: port %d is the system broadcast port and cannot be destroyed", port)
	}
	s.lock.Enter()
	defer s.lock.Exit()
	v, ok := s.postOffice.Get(port)
	if !ok {
		return fmt.Errorf("minimsg: unknown port %d", port)
	}
	mb := v.(*mailbox)
	mb.correspondents.Iterate(func(_ uint32, cv any, _ uint32, _ any) int {
		c := cv.(*correspondent)
		if c.hasAlarm {
			s.alarms.Deregister(c.alarmID)
		}
		return 0
	}, 0, nil)
	s.postOffice.Remove(port)
	return nil
}

// Send validates and dispatches one message from the from port to the to
// port, either over the local fast-path (if to's mailbox lives in this
// process) or queued for the correspondent's ack/retry machinery. Send
// does not block on delivery; it returns once the message has been
// handed off locally or handed to the transport.
func (s *System) Send(from, to uint32, body []byte, replyTo uint32) error {
	if len(body) == 0 || len(body) > transport.MaxMsgSize {
		return fmt.Errorf("minimsg: invalid message length %d", len(body))
	}

	s.lock.Enter()
	defer s.lock.Exit()

	v, ok := s.postOffice.Get(from)
	if !ok {
		return fmt.Errorf("minimsg: unknown local port %d", from)
	}
	fromMB := v.(*mailbox)
	corr := s.correspondentFor(fromMB, to)
	corr.lastSent++
	thisID := corr.lastSent

	if s.Metrics != nil {
		s.Metrics.Sent.Inc()
	}

	if dv, ok := s.postOffice.Get(to); ok {
		destMB := dv.(*mailbox)
		destCorr := s.correspondentFor(destMB, from)
		s.deliverLocked(destMB, destCorr, &inbound{body: cloneBody(body), senderPort: from, thisID: thisID, replyTo: replyTo})
		return nil
	}

	out := &outbound{thisID: thisID, replyTo: replyTo, destPort: to, body: cloneBody(body)}
	if corr.pending == nil {
		corr.pending = out
		corr.tries = 0
		s.transmitLocked(from, corr)
	} else {
		corr.waiting.Append(out)
	}
	return nil
}

// Receive blocks until a message is available at me, then returns its
// body (truncated to maxLen), the logical sender port, and its message
// id.
func (s *System) Receive(me uint32, maxLen int) (body []byte, fromPort uint32, msgID uint32, err error) {
	s.lock.Enter()
	v, ok := s.postOffice.Get(me)
	s.lock.Exit()
	if !ok {
		return nil, 0, 0, fmt.Errorf("minimsg: unknown local port %d", me)
	}
	mb := v.(*mailbox)

	mb.avail.P()

	s.lock.Enter()
	defer s.lock.Exit()
	raw, ok := mb.arrived.PopFront()
	if !ok {
		return nil, 0, 0, fmt.Errorf("minimsg: receive woke with no message queued on port %d", me)
	}
	msg := raw.(*inbound)
	return truncate(msg.body, maxLen), msg.senderPort, msg.thisID, nil
}

// RPC sends body to the to port as a query and blocks until the matching
// response arrives, allowing other outstanding RPCs on the same
// correspondent to resolve in any order (§4.5).
func (s *System) RPC(me, to uint32, body []byte, maxLen int) ([]byte, error) {
	if len(body) == 0 || len(body) > transport.MaxMsgSize {
		return nil, fmt.Errorf("minimsg: invalid message length %d", len(body))
	}

	s.lock.Enter()
	v, ok := s.postOffice.Get(me)
	if !ok {
		s.lock.Exit()
		return nil, fmt.Errorf("minimsg: unknown local port %d", me)
	}
	mb := v.(*mailbox)
	corr := s.correspondentFor(mb, to)
	corr.lastSent++
	queryID := corr.lastSent

	if s.Metrics != nil {
		s.Metrics.Sent.Inc()
	}

	if dv, ok := s.postOffice.Get(to); ok {
		destMB := dv.(*mailbox)
		destCorr := s.correspondentFor(destMB, me)
		s.deliverLocked(destMB, destCorr, &inbound{body: cloneBody(body), senderPort: me, thisID: queryID, replyTo: 0})
	} else {
		out := &outbound{thisID: queryID, replyTo: 0, destPort: to, body: cloneBody(body)}
		if corr.pending == nil {
			corr.pending = out
			corr.tries = 0
			s.transmitLocked(me, corr)
		} else {
			corr.waiting.Append(out)
		}
	}
	s.lock.Exit()

	for {
		corr.rspAvailable.P()

		s.lock.Enter()
		raw, ok := corr.rspArrived.PopFront()
		if !ok {
			s.lock.Exit()
			continue
		}
		resp := raw.(*inbound)
		if resp.replyTo != queryID {
			corr.rspArrived.Append(resp)
			s.lock.Exit()
			corr.rspAvailable.V()
			continue
		}
		s.lock.Exit()
		return truncate(resp.body, maxLen), nil
	}
}

func cloneBody(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func truncate(b []byte, maxLen int) []byte {
	if maxLen >= 0 && len(b) > maxLen {
		return b[:maxLen]
	}
	return b
}
