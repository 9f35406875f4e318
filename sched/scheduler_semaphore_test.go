// External test package: semaphore imports sched, so an internal
// (package sched) test file cannot import semaphore without an import
// cycle. Living here as package sched_test sidesteps that while still
// exercising sched.UnlockAndStop/MarkRunnable through a real scheduler run.
package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barrycburton/Minisystem-Message-Passing/sched"
	"github.com/barrycburton/Minisystem-Message-Passing/semaphore"
)

// TestBoundedBufferProducerConsumerStop mirrors spec §8 end-to-end
// scenario 3 at the scheduler level: a producer and consumer exchange 100
// integers through a BUFFER_SIZE=10 slice guarded by two semaphores, which
// in turn block/wake threads via sched.UnlockAndStop/sched.MarkRunnable. The
// consumer must read exactly 1..100 in order.
func TestBoundedBufferProducerConsumerStop(t *testing.T) {
	s := sched.New(nil)

	const bufferSize = 10
	const total = 100

	notEmpty := semaphore.New(s, 0)
	notFull := semaphore.New(s, bufferSize)

	var buf []int
	var received []int

	s.Fork(func(any) {
		for n := 1; n <= total; n++ {
			notFull.P()
			buf = append(buf, n)
			notEmpty.V()
		}
	}, nil)

	s.Fork(func(any) {
		for n := 0; n < total; n++ {
			notEmpty.P()
			v := buf[0]
			buf = buf[1:]
			received = append(received, v)
			notFull.V()
		}
	}, nil)

	s.Run(func(any) {}, nil)

	want := make([]int, total)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, received)
}
