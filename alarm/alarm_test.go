package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireOrderNonDecreasingFireTick(t *testing.T) {
	var s System
	var order []string

	s.Register(5, func(arg any) { order = append(order, arg.(string)) }, "late")
	s.Register(1, func(arg any) { order = append(order, arg.(string)) }, "early")
	s.Register(3, func(arg any) { order = append(order, arg.(string)) }, "mid")

	s.SetTick(10)
	for s.FireNext() {
	}
	assert.Equal(t, []string{"early", "mid", "late"}, order)
}

func TestTiesFireInRegistrationOrder(t *testing.T) {
	var s System
	var order []string

	s.Register(2, func(arg any) { order = append(order, arg.(string)) }, "first")
	s.Register(2, func(arg any) { order = append(order, arg.(string)) }, "second")
	s.Register(2, func(arg any) { order = append(order, arg.(string)) }, "third")

	s.SetTick(2)
	for s.FireNext() {
	}
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestHasReadyRespectsTick(t *testing.T) {
	var s System
	s.Register(5, func(any) {}, nil)

	s.SetTick(4)
	assert.False(t, s.HasReady())

	s.SetTick(5)
	assert.True(t, s.HasReady())
}

func TestDeregisterPreventsFiring(t *testing.T) {
	var s System
	fired := false
	id := s.Register(1, func(any) { fired = true }, nil)

	ok := s.Deregister(id)
	require.True(t, ok)

	s.SetTick(5)
	assert.False(t, s.FireNext())
	assert.False(t, fired)
}

func TestDeregisterUnknownIsFalse(t *testing.T) {
	var s System
	id := s.Register(1, func(any) {}, nil)
	s.SetTick(1)
	s.FireNext()

	assert.False(t, s.Deregister(id))
}

func TestHasRemaining(t *testing.T) {
	var s System
	assert.False(t, s.HasRemaining())
	s.Register(1, func(any) {}, nil)
	assert.True(t, s.HasRemaining())
	s.SetTick(1)
	s.FireNext()
	assert.False(t, s.HasRemaining())
}
