package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{
		GroupID:    42,
		DestPort:   7,
		Type:       TypeData,
		SenderPort: 3,
		ThisID:     99,
		ReplyTo:    0,
		Body:       []byte("hello world"),
	}
	got, ok := Decode(Encode(p))
	require.True(t, ok)
	assert.Equal(t, p.GroupID, got.GroupID)
	assert.Equal(t, p.DestPort, got.DestPort)
	assert.Equal(t, p.Type, got.Type)
	assert.Equal(t, p.SenderPort, got.SenderPort)
	assert.Equal(t, p.ThisID, got.ThisID)
	assert.Equal(t, p.ReplyTo, got.ReplyTo)
	assert.Equal(t, p.Body, got.Body)
}

func TestEncodeDecodeAckHasNoBody(t *testing.T) {
	p := Packet{GroupID: 1, DestPort: 2, Type: TypeAck, SenderPort: 3, ThisID: 4, ReplyTo: 4}
	got, ok := Decode(Encode(p))
	require.True(t, ok)
	assert.Empty(t, got.Body)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, ok := Decode([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestDecodeRejectsOversizeBody(t *testing.T) {
	buf := Encode(Packet{Body: make([]byte, 10)})
	// Lie about the body length in the header without supplying the bytes.
	buf[22] = 255
	buf[23] = 255
	_, ok := Decode(buf)
	assert.False(t, ok)
}

func TestLegacyTokenMonotonic(t *testing.T) {
	lt := NewLegacyToken(200, 9000, 9001)
	a := lt.Next()
	b := lt.Next()
	assert.Less(t, a, b)
}
