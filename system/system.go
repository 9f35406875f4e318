// Package system provides the top-level run loop that ties a scheduler's
// tick pump to its Run call and tears down any attached transports once
// the scheduler goes quiescent, mirroring §4.4's assumption of a clock
// driver external to the scheduler itself.
package system

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/barrycburton/Minisystem-Message-Passing/sched"
)

// Runner supervises one scheduler's tick-pump goroutine and any
// transports that should be closed once the scheduler quiesces.
type Runner struct {
	sched        *sched.Scheduler
	tickInterval time.Duration
	closers      []io.Closer

	Logger *logrus.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithLogger overrides the default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Runner) { r.Logger = l }
}

// WithClosers registers transports (or anything else) to Close once Run
// returns, so the transport's own receive-loop goroutine (UDPTransport's
// recvLoop, for instance) is torn down alongside the tick pump rather than
// leaking past system shutdown.
func WithClosers(closers ...io.Closer) Option {
	return func(r *Runner) { r.closers = append(r.closers, closers...) }
}

// New constructs a Runner driving sch with a tick every tickInterval.
func New(sch *sched.Scheduler, tickInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{sched: sch, tickInterval: tickInterval}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) logger() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logrus.StandardLogger()
}

// Run starts mainProc on the scheduler and drives it with periodic Ticks
// until the scheduler goes quiescent (§4.4's idle body loop condition),
// then closes every registered closer. The tick-pump goroutine and the
// scheduler's own Run are supervised together via errgroup: when the
// scheduler's Run returns, the shared context is cancelled and the tick
// pump exits rather than leaking. The tick pump only returns on that
// cancellation, and nothing stops the scheduler's Run from its side.
func (r *Runner) Run(mainProc func(arg any), arg any) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		r.sched.Run(mainProc, arg)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(r.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				r.sched.Tick()
			}
		}
	})

	err := g.Wait()

	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil {
			r.logger().Warnf("system: error closing %T: %v", c, cerr)
		}
	}
	return err
}
