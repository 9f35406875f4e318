// Package semaphore implements a counting semaphore whose wait queue holds
// blocked threads, built on the scheduler's stop/MarkRunnable primitives.
// Grounded on original_source/Project-Solution-4/synch.c.
package semaphore

import (
	"github.com/barrycburton/Minisystem-Message-Passing/container/fifo"
	"github.com/barrycburton/Minisystem-Message-Passing/sched"
	"github.com/barrycburton/Minisystem-Message-Passing/sync2"
)

// Semaphore is a counting semaphore. The reference implementation guards
// count and the wait queue with a test-and-set spinlock, because P/V may be
// called with interrupts enabled (§4.2); sync2.Section plays that role
// here.
type Semaphore struct {
	lock  sync2.Section
	count int
	wait  fifo.Queue
	sched *sched.Scheduler
}

// New constructs a Semaphore bound to sch with the given initial count.
func New(sch *sched.Scheduler, count int) *Semaphore {
	return &Semaphore{count: count, sched: sch}
}

// P acquires the semaphore, blocking the calling thread if the count is
// zero. Per §4.2: while count == 0, enqueue self on the wait queue and
// atomically release the spinlock and suspend; when count > 0, decrement
// and return.
func (s *Semaphore) P() {
	s.lock.Enter()
	for s.count == 0 {
		self := s.sched.Self()
		s.wait.Append(self)
		// UnlockAndStop releases s.lock (our "spinlock") and stops the
		// current thread within the scheduler's own critical section, so
		// no V can mark us runnable between the release and becoming
		// not-runnable.
		s.sched.UnlockAndStop(s.lock.Exit)
		// Resolves the "post-wake interrupt state" open question (see
		// DESIGN.md): re-enter explicitly rather than assume the spinlock
		// is still held on wake.
		s.lock.Enter()
	}
	s.count--
	s.lock.Exit()
}

// V releases the semaphore: increments count, and if any thread is
// waiting, wakes the one at the head of the FIFO wait queue.
func (s *Semaphore) V() {
	s.lock.Enter()
	s.count++
	if v, ok := s.wait.PopFront(); ok {
		s.sched.MarkRunnable(v.(*sched.Thread))
	}
	s.lock.Exit()
}

// Count returns the current counter value, for diagnostics/tests only —
// not part of the spec's public semaphore surface.
func (s *Semaphore) Count() int {
	s.lock.Enter()
	defer s.lock.Exit()
	return s.count
}
