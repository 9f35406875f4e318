// Package alarm implements the tick-driven timer subsystem: a priority
// queue of (fire-tick, callback, arg) entries consulted by the scheduler's
// idle thread. Ordering is by non-decreasing fire-tick, with registration
// order breaking ties, matching original_source/Project-Solution-4/alarm.c.
package alarm

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/barrycburton/Minisystem-Message-Passing/container/pqueue"
	"github.com/barrycburton/Minisystem-Message-Passing/internal/clockutil"
)

// Callback is invoked when an alarm fires. It runs with interrupts
// conceptually re-enabled (in this port: without the scheduler's critical
// section held) and MUST NOT block — it should do no more than mark a
// thread runnable or similar bookkeeping.
type Callback func(arg any)

// ID identifies a registered alarm for later deregistration.
type ID struct {
	node *pqueue.Node
}

// System is the process-wide alarm queue. The zero value is ready to use.
// System is safe for concurrent use: Register/Deregister/HasReady/FireNext
// all take an internal lock, since alarms may be registered from a thread's
// context while FireNext runs from the idle thread.
type System struct {
	mu    sync.Mutex
	queue pqueue.Queue
	tick  uint64
	seq   clockutil.Counter

	Logger *logrus.Logger
}

type entry struct {
	callback Callback
	arg      any
	seq      uint64
}

func (s *System) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// SetTick sets the current tick value, as observed by the clock driver.
// Callers typically call this once per clock period before checking
// HasReady/FireNext.
func (s *System) SetTick(tick uint64) {
	s.mu.Lock()
	s.tick = tick
	s.mu.Unlock()
}

// Tick returns the alarm system's current view of the tick counter.
func (s *System) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Register schedules callback(arg) to fire at the first tick >= the current
// tick plus the given delay-in-ticks. It returns an ID usable with
// Deregister. Register should be called with the scheduler's critical
// section held, matching §4.3 of the spec ("performed with interrupts
// masked"); System itself only guards its own internal state.
func (s *System) Register(delayTicks uint64, cb Callback, arg any) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	fireTick := s.tick + delayTicks
	seq := s.seq.Tick()
	// pqueue breaks priority ties by insertion order, and Insert calls here
	// happen in Register call order, so ties on fireTick already fire in
	// registration order; seq is carried on the entry purely for diagnostic
	// logging, not as a secondary sort key.
	node := s.queue.Insert(int64(fireTick), &entry{callback: cb, arg: arg, seq: seq})
	return ID{node: node}
}

// Deregister removes a previously registered alarm. It returns false if the
// alarm was not found (already fired, or unknown) — deregistration is
// idempotent-safe and tolerates racing with a concurrent fire.
func (s *System) Deregister(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Delete(id.node)
}

// HasRemaining reports whether any alarm is still registered.
func (s *System) HasRemaining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len() > 0
}

// Len returns the number of currently registered alarms.
func (s *System) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// HasReady reports whether the head of the queue's fire-tick has already
// been reached.
func (s *System) HasReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headReadyLocked()
}

func (s *System) headReadyLocked() bool {
	n, ok := s.queue.Peek()
	return ok && n.Priority <= int64(s.tick)
}

// FireNext pops the earliest-firing ready alarm and invokes its callback.
// It is a no-op (returns false) if no alarm is ready. Per §4.3, the
// callback runs without the alarm system's lock held so it may safely
// register further alarms or touch scheduler state.
func (s *System) FireNext() bool {
	s.mu.Lock()
	if !s.headReadyLocked() {
		s.mu.Unlock()
		return false
	}
	node, _ := s.queue.Pop()
	s.mu.Unlock()

	e := node.Value.(*entry)
	s.logger().Debugf("alarm: firing entry registered as seq=%d at tick=%d", e.seq, s.Tick())
	e.callback(e.arg)
	return true
}
