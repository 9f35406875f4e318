package transport

import "encoding/binary"

// PacketType discriminates DATA from ACK on the wire, per §6's net_type
// enum.
type PacketType uint32

const (
	// TypeData carries an application message body.
	TypeData PacketType = iota
	// TypeAck acknowledges receipt of a DATA message by id.
	TypeAck
)

// HeaderLen is the fixed-size prefix common to every packet (bytes 0..26
// of the wire format): group id, destination port, net_type, sender port,
// this_id, reply_to, body_len.
const HeaderLen = 26

// MaxMsgSize is the largest body a single message may carry.
const MaxMsgSize = 5196

// BroadcastPort is the reserved port id every peer's system mailbox
// listens on.
const BroadcastPort = 1

// Packet is the decoded form of one wire frame: network header, message
// header, and body (body is empty/nil for ACKs).
type Packet struct {
	GroupID     uint16
	DestPort    uint32
	Type        PacketType
	SenderPort  uint32
	ThisID      uint32
	ReplyTo     uint32
	Body        []byte
	PeerAddr    Address // filled in by the receiving Transport, not encoded
}

// Encode renders p as a little-endian wire frame per §6's byte layout.
func Encode(p Packet) []byte {
	buf := make([]byte, HeaderLen+len(p.Body))
	binary.LittleEndian.PutUint16(buf[0:2], p.GroupID)
	binary.LittleEndian.PutUint32(buf[2:6], p.DestPort)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(p.Type))
	binary.LittleEndian.PutUint32(buf[10:14], p.SenderPort)
	binary.LittleEndian.PutUint32(buf[14:18], p.ThisID)
	binary.LittleEndian.PutUint32(buf[18:22], p.ReplyTo)
	binary.LittleEndian.PutUint32(buf[22:26], uint32(len(p.Body)))
	copy(buf[26:], p.Body)
	return buf
}

// Decode parses a wire frame produced by Encode. It returns false if b is
// too short to hold a header or claims a body longer than MaxMsgSize.
func Decode(b []byte) (Packet, bool) {
	if len(b) < HeaderLen {
		return Packet{}, false
	}
	bodyLen := binary.LittleEndian.Uint32(b[22:26])
	if bodyLen > MaxMsgSize || len(b) < HeaderLen+int(bodyLen) {
		return Packet{}, false
	}
	p := Packet{
		GroupID:    binary.LittleEndian.Uint16(b[0:2]),
		DestPort:   binary.LittleEndian.Uint32(b[2:6]),
		Type:       PacketType(binary.LittleEndian.Uint32(b[6:10])),
		SenderPort: binary.LittleEndian.Uint32(b[10:14]),
		ThisID:     binary.LittleEndian.Uint32(b[14:18]),
		ReplyTo:    binary.LittleEndian.Uint32(b[18:22]),
	}
	if bodyLen > 0 {
		p.Body = make([]byte, bodyLen)
		copy(p.Body, b[26:26+bodyLen])
	}
	return p, true
}
