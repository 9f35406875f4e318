// Package sched implements the minithread scheduler core: thread
// lifecycle, the two-level ready queue with aging, quantum enforcement,
// and the idle thread. Grounded on
// original_source/Project-Solution-4/minithread.c and minithread-changes.c.
//
// Go gives us no manual stack allocation or context-switch primitive
// (explicitly out of scope per spec §1), so each Thread is backed by its
// own goroutine gated by a buffered handoff channel: "scheduling" a thread
// means sending on its channel and, symmetrically, the thread being
// switched away from blocks receiving on its own channel until scheduled
// again. Exactly one thread's goroutine is ever unblocked at a time,
// preserving the "one execution context at a time" invariant (§1
// Non-goals, §5) without real OS-level preemption.
//
// Because Go cannot forcibly suspend a running goroutine from the outside,
// clock-driven quantum expiry (§4.4's clock handler) is split in two: Tick
// advances the shared tick counter (safe to call from any goroutine, e.g.
// a background ticker standing in for the clock driver), and Poll is the
// cooperative suspension point a thread body calls to actually apply a
// pending demotion. Yield and Stop also apply §4.4's transitions directly.
// This is the "poll integrated with cooperative suspension points"
// rendition §9 explicitly sanctions for hosts without stack switching.
package sched

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/barrycburton/Minisystem-Message-Passing/alarm"
	"github.com/barrycburton/Minisystem-Message-Passing/container/fifo"
	"github.com/barrycburton/Minisystem-Message-Passing/container/multiqueue"
	"github.com/barrycburton/Minisystem-Message-Passing/metrics"
	"github.com/barrycburton/Minisystem-Message-Passing/sync2"
)

// Scheduling quanta, in ticks, per §6.
const (
	ShortQuanta uint64 = 2
	LongQuanta  uint64 = 4
	PromoteAge  uint64 = 4
)

// Scheduler is the process-wide scheduler singleton. Construct with New.
type Scheduler struct {
	cs sync2.Section

	current *Thread
	idle    *Thread
	ready   *multiqueue.Queue
	stopped fifo.Queue
	dead    fifo.Queue
	lastID  int64
	tick    uint64
	quantumEnd uint64

	alarms *alarm.System
	done   chan struct{}

	Logger  *logrus.Logger
	Metrics *metrics.Scheduler
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger overrides the default (logrus.StandardLogger()) logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Scheduler) { s.Logger = l }
}

// WithMetrics attaches a metrics bundle; scheduler operations populate it
// if set, and are no-ops with respect to metrics otherwise.
func WithMetrics(m *metrics.Scheduler) Option {
	return func(s *Scheduler) { s.Metrics = m }
}

// New constructs a Scheduler driven by the given alarm system (may be nil,
// in which case step 1 of the schedule algorithm never fires idle early and
// SleepWithTimeout/retransmission timers are unavailable).
func New(alarms *alarm.System, opts ...Option) *Scheduler {
	s := &Scheduler{
		ready:  multiqueue.New(NumLevels),
		alarms: alarms,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// Create allocates a new thread in the STOPPED state without starting it.
func (s *Scheduler) Create(proc func(arg any), arg any) *Thread {
	s.cs.Enter()
	s.lastID++
	t := &Thread{
		ID:       s.lastID,
		priority: PriorityShort,
		state:    stateStopped,
		resumeCh: make(chan struct{}, 1),
		body:     proc,
		arg:      arg,
		sched:    s,
	}
	s.stopped.Append(t)
	if s.Metrics != nil {
		s.Metrics.ThreadsCreated.Inc()
	}
	s.cs.Exit()
	s.spawnGoroutine(t)
	return t
}

// Start moves a STOPPED thread to READY, enqueuing it at its own priority
// (SHORT for a freshly created thread) with age set to the current tick.
func (s *Scheduler) Start(t *Thread) {
	s.cs.Enter()
	if t.state != stateStopped {
		s.cs.Exit()
		return
	}
	s.stopped.DeleteValue(t)
	s.readyLocked(t)
	s.cs.Exit()
}

// readyLocked transitions t into the ready queue at its current priority.
// Must be called with the critical section held.
func (s *Scheduler) readyLocked(t *Thread) {
	t.state = stateReady
	t.age = s.tick
	s.ready.Enqueue(int(t.priority), t)
	if s.Metrics != nil {
		s.Metrics.ReadyDepth.Set(float64(s.ready.Len()))
	}
}

// Fork creates and immediately starts a thread, returning its handle.
func (s *Scheduler) Fork(proc func(arg any), arg any) *Thread {
	t := s.Create(proc, arg)
	s.Start(t)
	return t
}

// Self returns the handle of the currently running thread.
func (s *Scheduler) Self() *Thread {
	s.cs.Enter()
	defer s.cs.Exit()
	return s.current
}

// MarkRunnable wakes a STOPPED thread, moving it to READY. Used by
// semaphore V and alarm callbacks; a no-op if the thread is not currently
// stopped (it may have already been woken, or may be dead).
func (s *Scheduler) MarkRunnable(t *Thread) {
	s.cs.Enter()
	if t.state != stateStopped {
		s.cs.Exit()
		return
	}
	s.stopped.DeleteValue(t)
	s.readyLocked(t)
	s.cs.Exit()
}

// Yield voluntarily relinquishes the processor: RUNNING -> READY, priority
// forced to SHORT, age reset to the current tick.
func (s *Scheduler) Yield() {
	s.cs.Enter()
	cur := s.current
	cur.priority = PriorityShort
	s.readyLocked(cur)
	s.dispatchLocked(cur, true)
}

// Stop blocks the current thread: RUNNING -> STOPPED, priority forced to
// SHORT. The thread remains stopped until a later MarkRunnable call.
func (s *Scheduler) Stop() {
	s.cs.Enter()
	cur := s.current
	cur.priority = PriorityShort
	cur.state = stateStopped
	s.stopped.Append(cur)
	s.dispatchLocked(cur, true)
}

// UnlockAndStop atomically runs release (expected to clear some external
// lock/flag) and then stops the current thread, all within one critical
// section, so no concurrent MarkRunnable can be observed between the
// release and the thread becoming not-runnable.
func (s *Scheduler) UnlockAndStop(release func()) {
	s.cs.Enter()
	release()
	cur := s.current
	cur.priority = PriorityShort
	cur.state = stateStopped
	s.stopped.Append(cur)
	s.dispatchLocked(cur, true)
}

// SleepWithTimeout registers an alarm that marks the current thread
// runnable after delayTicks ticks, then stops it. Registration and the
// stop transition happen under one critical section.
func (s *Scheduler) SleepWithTimeout(delayTicks uint64) {
	s.cs.Enter()
	cur := s.current
	if s.alarms != nil {
		s.alarms.Register(delayTicks, func(any) { s.MarkRunnable(cur) }, nil)
	}
	cur.priority = PriorityShort
	cur.state = stateStopped
	s.stopped.Append(cur)
	s.dispatchLocked(cur, true)
}

// Poll is the cooperative suspension point a long-running thread body
// should call periodically (e.g. at a loop back-edge). If the current
// thread's quantum has expired, it performs the clock handler's RUNNING ->
// READY-at-LONG transition; otherwise it returns immediately. See the
// package doc for why this stands in for true preemption.
func (s *Scheduler) Poll() {
	s.cs.Enter()
	cur := s.current
	if cur == nil || cur == s.idle || s.tick < s.quantumEnd {
		s.cs.Exit()
		return
	}
	cur.priority = PriorityLong
	s.readyLocked(cur)
	if s.Metrics != nil {
		s.Metrics.QuantumExpirations.Inc()
	}
	s.dispatchLocked(cur, true)
}

// Tick advances the shared tick counter by one and propagates it to the
// alarm system. Call periodically from whatever stands in for the clock
// driver (§1 treats the clock driver itself as an external collaborator).
func (s *Scheduler) Tick() {
	s.cs.Enter()
	s.tick++
	if s.alarms != nil {
		s.alarms.SetTick(s.tick)
	}
	s.cs.Exit()

	if s.Metrics != nil && s.alarms != nil {
		s.Metrics.AlarmDepth.Set(float64(s.alarms.Len()))
	}
}

// CurrentTick returns the scheduler's view of the tick counter.
func (s *Scheduler) CurrentTick() uint64 {
	s.cs.Enter()
	defer s.cs.Exit()
	return s.tick
}

// selectNextLocked implements the §4.4 schedule algorithm. Must be called
// with the critical section held.
func (s *Scheduler) selectNextLocked() *Thread {
	if s.alarms != nil && s.current != s.idle && s.alarms.HasReady() {
		return s.idle
	}
	if s.ready.Len() > 0 {
		s.ageLocked()
		if v, ok := s.ready.Dequeue(int(PriorityShort)); ok {
			return v.(*Thread)
		}
	}
	return s.idle
}

// ageLocked promotes every LONG-level thread whose age has reached
// PromoteAge back to SHORT, preserving age. Must be called with the
// critical section held.
func (s *Scheduler) ageLocked() {
	var stale []*Thread
	s.ready.IterateLevel(int(PriorityLong), func(v any) int {
		th := v.(*Thread)
		if s.tick-th.age >= PromoteAge {
			stale = append(stale, th)
		}
		return 0
	})
	for _, th := range stale {
		s.ready.RemoveFromLevel(int(PriorityLong), th)
		th.priority = PriorityShort
		s.ready.Enqueue(int(PriorityShort), th)
	}
}

// dispatchLocked performs the context switch to the next selected thread.
// Must be called with the critical section held; it releases the section
// before handing off control and does not reacquire it. If waitForPrev is
// true, the caller's goroutine blocks here until it is itself resumed by a
// later dispatch; pass false when prev is exiting for good.
func (s *Scheduler) dispatchLocked(prev *Thread, waitForPrev bool) {
	next := s.selectNextLocked()
	s.current = next
	next.state = stateRunning
	if next.priority == PriorityShort {
		s.quantumEnd = s.tick + ShortQuanta
	} else {
		s.quantumEnd = s.tick + LongQuanta
	}
	if s.Metrics != nil {
		s.Metrics.ReadyDepth.Set(float64(s.ready.Len()))
	}
	same := prev == next
	s.cs.Exit()

	if same {
		return
	}
	next.resumeCh <- struct{}{}
	if waitForPrev {
		<-prev.resumeCh
	}
}

// spawnGoroutine creates the backing goroutine for a freshly created
// thread. It blocks until the thread is first scheduled, runs its body,
// and then exits it.
func (s *Scheduler) spawnGoroutine(t *Thread) {
	go func() {
		<-t.resumeCh
		t.body(t.arg)
		s.threadExit(t)
	}()
}

// threadExit transitions RUNNING -> DEAD and schedules the next thread.
// The idle thread exiting is special-cased: it means the system has
// quiesced (see idleBody) and Run should unblock.
func (s *Scheduler) threadExit(t *Thread) {
	s.cs.Enter()
	if t == s.idle {
		s.cs.Exit()
		close(s.done)
		return
	}
	t.state = stateDead
	s.dead.Append(t)
	s.dispatchLocked(t, false)
}

// Run starts the system: it creates the idle thread, forks mainProc (after
// any threads already forked before Run), and blocks until the idle thread observes
// total quiescence (§4.4's idle body loop condition) and returns, i.e.
// until every forked thread has run to completion and been reaped.
func (s *Scheduler) Run(mainProc func(arg any), arg any) {
	s.cs.Enter()
	s.idle = &Thread{ID: 0, priority: PriorityLong, state: stateReady, resumeCh: make(chan struct{}, 1), body: s.idleBody, sched: s}
	s.cs.Exit()
	s.spawnGoroutine(s.idle)

	s.Fork(mainProc, arg)

	s.cs.Enter()
	s.dispatchLocked(nil, false)
	<-s.done
}

// idleBody drains ready alarms and dead threads, yields to any ready
// thread, and otherwise spins briefly to let other goroutines (a tick
// pump, a newly forked thread, an incoming packet) make progress, exactly
// mirroring §4.4's idle thread body. It returns once ready, stopped, dead,
// and the alarm queue are all simultaneously empty, which halts Run.
func (s *Scheduler) idleBody(_ any) {
	for {
		for s.alarms != nil && s.alarms.FireNext() {
		}
		s.reapDead()

		s.cs.Enter()
		readyLen := s.ready.Len()
		if readyLen > 0 {
			s.dispatchLocked(s.current, true)
			continue
		}
		quiescent := s.stopped.Len() == 0 && s.dead.Len() == 0 && (s.alarms == nil || !s.alarms.HasRemaining())
		s.cs.Exit()

		if quiescent {
			return
		}
		runtime.Gosched()
	}
}

// reapDead frees every thread currently on the dead queue. Go's garbage
// collector reclaims the goroutine and its stack once the Thread value is
// unreferenced; there is no manual stack-free primitive to call (§1 puts
// stack allocation/free out of scope), so this just drains the queue.
func (s *Scheduler) reapDead() {
	s.cs.Enter()
	for {
		v, ok := s.dead.PopFront()
		if !ok {
			break
		}
		if s.Metrics != nil {
			s.Metrics.ThreadsReaped.Inc()
		}
		s.logger().Debugf("sched: reaped thread id=%d", v.(*Thread).ID)
	}
	s.cs.Exit()
}
