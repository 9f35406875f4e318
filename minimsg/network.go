package minimsg

import "github.com/barrycburton/Minisystem-Message-Passing/transport"

// deliverLocked routes msg into mb via corr (the correspondent keyed by
// msg's sender on mb), applying duplicate suppression and the
// normal-message-vs-RPC-response split described in §4.5. Callers must
// hold s.lock.
func (s *System) deliverLocked(mb *mailbox, corr *correspondent, msg *inbound) {
	if msg.thisID <= corr.lastReceived {
		return
	}
	corr.lastReceived = msg.thisID

	if msg.replyTo == 0 {
		mb.arrived.Append(msg)
		mb.avail.V()
	} else {
		corr.rspArrived.Append(msg)
		corr.rspAvailable.V()
	}
}

// transmitLocked sends corr's pending outbound message and (re)registers
// its retransmission alarm. Callers must hold s.lock.
func (s *System) transmitLocked(localPort uint32, corr *correspondent) {
	out := corr.pending
	if out == nil {
		return
	}
	pkt := transport.Packet{
		GroupID:    s.groupID,
		DestPort:   out.destPort,
		Type:       transport.TypeData,
		SenderPort: localPort,
		ThisID:     out.thisID,
		ReplyTo:    out.replyTo,
		Body:       out.body,
	}
	buf := transport.Encode(pkt)
	if corr.remoteAddr.Zero() || out.destPort == transport.BroadcastPort {
		s.transport.Broadcast(buf)
	} else {
		s.transport.Send(corr.remoteAddr, buf)
	}

	if corr.hasAlarm {
		s.alarms.Deregister(corr.alarmID)
	}
	corr.alarmID = s.alarms.Register(s.ackTimeoutTicks, s.retryCallback, retryArg{localPort: localPort, remotePort: corr.remotePort})
	corr.hasAlarm = true
}

// retryArg is the argument bundle passed to a retransmission alarm's
// callback, identifying which mailbox/correspondent to act on; alarms
// outlive the closures that registered them, so this carries keys rather
// than pointers captured at registration time.
type retryArg struct {
	localPort  uint32
	remotePort uint32
}

// retryCallback is invoked by the alarm system (outside its own lock,
// §4.3) when a retransmission timeout fires. It re-sends the still-
// pending message, or gives up after MaxTries and promotes the next
// waiting message (the §9-resolved MINIMSG_MAX_TRIES behavior).
func (s *System) retryCallback(arg any) {
	ra := arg.(retryArg)

	s.lock.Enter()
	defer s.lock.Exit()

	v, ok := s.postOffice.Get(ra.localPort)
	if !ok {
		return
	}
	mb := v.(*mailbox)
	cv, ok := mb.correspondents.Get(ra.remotePort)
	if !ok {
		return
	}
	corr := cv.(*correspondent)
	if corr.pending == nil {
		// Acked and raced with the alarm firing; nothing to do.
		return
	}

	corr.tries++
	if s.Metrics != nil {
		s.Metrics.Retried.Inc()
	}

	if corr.tries >= s.maxTries {
		if s.Metrics != nil {
			s.Metrics.Dropped.Inc()
		}
		s.logger().Warnf("minimsg: giving up on message %d to port %d after %d tries", corr.pending.thisID, ra.remotePort, s.maxTries)
		corr.pending = nil
		corr.hasAlarm = false
		if next, ok := corr.waiting.PopFront(); ok {
			corr.pending = next.(*outbound)
			corr.tries = 0
			s.transmitLocked(ra.localPort, corr)
		}
		return
	}

	s.transmitLocked(ra.localPort, corr)
}

// sendAckLocked replies to an incoming DATA packet's sender. Acks are not
// themselves retried: if one is lost, the sender's own retransmission
// alarm will eventually cause a duplicate DATA (and hence another ack
// attempt). Callers must hold s.lock.
func (s *System) sendAckLocked(localPort uint32, corr *correspondent, msgID uint32) {
	pkt := transport.Packet{
		GroupID:    s.groupID,
		DestPort:   corr.remotePort,
		Type:       transport.TypeAck,
		SenderPort: localPort,
		ReplyTo:    msgID,
	}
	buf := transport.Encode(pkt)
	if corr.remoteAddr.Zero() {
		s.transport.Broadcast(buf)
	} else {
		s.transport.Send(corr.remoteAddr, buf)
	}
}

// onPacket is the transport arrival callback: parse, discriminate by
// type, and route per §4.6.
func (s *System) onPacket(pkt transport.Packet) {
	if pkt.GroupID != s.groupID {
		return
	}

	s.lock.Enter()
	defer s.lock.Exit()

	switch pkt.Type {
	case transport.TypeAck:
		s.handleAckLocked(pkt)
	case transport.TypeData:
		s.handleDataLocked(pkt)
	}
}

func (s *System) handleAckLocked(pkt transport.Packet) {
	v, ok := s.postOffice.Get(pkt.DestPort)
	if !ok {
		return
	}
	mb := v.(*mailbox)
	cv, ok := mb.correspondents.Get(pkt.SenderPort)
	if !ok {
		return
	}
	corr := cv.(*correspondent)
	if corr.remoteAddr.Zero() {
		corr.remoteAddr = pkt.PeerAddr
	}
	if corr.pending == nil || corr.pending.thisID != pkt.ReplyTo {
		return
	}

	if s.Metrics != nil {
		s.Metrics.Acked.Inc()
	}
	if corr.hasAlarm {
		s.alarms.Deregister(corr.alarmID)
		corr.hasAlarm = false
	}
	corr.pending = nil
	corr.tries = 0
	if next, ok := corr.waiting.PopFront(); ok {
		corr.pending = next.(*outbound)
		s.transmitLocked(pkt.DestPort, corr)
	}
}

func (s *System) handleDataLocked(pkt transport.Packet) {
	destPort := pkt.DestPort
	var mb *mailbox
	if destPort == transport.BroadcastPort {
		v, _ := s.postOffice.Get(transport.BroadcastPort)
		mb = v.(*mailbox)
	} else {
		v, ok := s.postOffice.Get(destPort)
		if !ok {
			return
		}
		mb = v.(*mailbox)
	}

	corr := s.correspondentFor(mb, pkt.SenderPort)
	if corr.remoteAddr.Zero() {
		corr.remoteAddr = pkt.PeerAddr
	}

	// Always ack, even duplicates, so a sender whose ack was lost the
	// first time still converges.
	s.sendAckLocked(mb.id, corr, pkt.ThisID)

	if pkt.ThisID > corr.lastReceived {
		s.deliverLocked(mb, corr, &inbound{
			body:       cloneBody(pkt.Body),
			senderPort: pkt.SenderPort,
			thisID:     pkt.ThisID,
			replyTo:    pkt.ReplyTo,
		})
	}
}
