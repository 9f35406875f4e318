package system

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/barrycburton/Minisystem-Message-Passing/alarm"
	"github.com/barrycburton/Minisystem-Message-Passing/sched"
	"github.com/barrycburton/Minisystem-Message-Passing/transport"
)

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

// TestRunStopsTickPumpAfterQuiescence exercises the main loop end to end:
// a scheduler with a sleeping thread only resolves once Tick actually
// advances, and Run must return (and close registered closers) once the
// scheduler itself goes quiescent.
func TestRunStopsTickPumpAfterQuiescence(t *testing.T) {
	var alarms alarm.System
	sch := sched.New(&alarms)

	var woke bool
	sch.Fork(func(any) {
		sch.SleepWithTimeout(3)
		woke = true
	}, nil)

	closer := &countingCloser{}
	r := New(sch, time.Millisecond, WithClosers(closer))

	err := r.Run(func(any) {}, nil)

	assert.NoError(t, err)
	assert.True(t, woke)
	assert.Equal(t, 1, closer.closed)
}

// TestRunClosesTransport confirms a transport's Close is invoked once the
// scheduler quiesces, standing in for SPEC_FULL §2.G's supervised shutdown
// of the tick pump and the transport's receive-loop goroutine. A second
// Close of a SimTransport closes its already-closed inbox and panics, which
// is how the test observes that Run closed it.
func TestRunClosesTransport(t *testing.T) {
	var alarms alarm.System
	sch := sched.New(&alarms)
	fabric := transport.NewSimFabric(0, rand.New(rand.NewSource(5)))
	tr := transport.NewSimTransport(fabric, "only", 1, nil)

	sch.Fork(func(any) {}, nil)

	r := New(sch, time.Millisecond, WithClosers(tr))
	err := r.Run(func(any) {}, nil)
	assert.NoError(t, err)
	assert.Panics(t, func() { _ = tr.Close() })
}
