// Package metrics defines the Prometheus collectors the scheduler and
// messaging layer populate. Wiring a *prometheus.Registry in is optional:
// every metric type here is safe to use unregistered (a *Scheduler or
// *Messaging built with a nil Registerer still records into the underlying
// prometheus metric objects; they just aren't scraped anywhere). A zero
// Scheduler or Messaging struct has nil metric fields and is not usable.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scheduler holds the scheduler-facing metrics named in SPEC_FULL.md §2.G.
type Scheduler struct {
	ReadyDepth         prometheus.Gauge
	AlarmDepth         prometheus.Gauge
	QuantumExpirations prometheus.Counter
	ThreadsCreated     prometheus.Counter
	ThreadsReaped      prometheus.Counter
}

// NewScheduler builds a Scheduler metrics bundle and, if reg is non-nil,
// registers every collector with it.
func NewScheduler(reg prometheus.Registerer) *Scheduler {
	m := &Scheduler{
		ReadyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "minithread", Subsystem: "scheduler", Name: "ready_queue_depth",
			Help: "Number of threads currently queued across all ready levels.",
		}),
		AlarmDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "minithread", Subsystem: "alarm", Name: "registered_depth",
			Help: "Number of alarms currently registered.",
		}),
		QuantumExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "scheduler", Name: "quantum_expirations_total",
			Help: "Number of times a running thread's quantum expired at a poll point.",
		}),
		ThreadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "scheduler", Name: "threads_created_total",
			Help: "Number of threads created via Create/Fork.",
		}),
		ThreadsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "scheduler", Name: "threads_reaped_total",
			Help: "Number of dead threads reclaimed by the idle thread.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ReadyDepth, m.AlarmDepth, m.QuantumExpirations, m.ThreadsCreated, m.ThreadsReaped)
	}
	return m
}

// Messaging holds the port/correspondent-facing counters from SPEC_FULL.md
// §8.G.
type Messaging struct {
	Sent    prometheus.Counter
	Acked   prometheus.Counter
	Retried prometheus.Counter
	Dropped prometheus.Counter
}

// NewMessaging builds a Messaging metrics bundle and, if reg is non-nil,
// registers every collector with it.
func NewMessaging(reg prometheus.Registerer) *Messaging {
	m := &Messaging{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "minimsg", Name: "messages_sent_total",
			Help: "Number of messages handed to Send, local and remote.",
		}),
		Acked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "minimsg", Name: "messages_acked_total",
			Help: "Number of outbound messages that received an ack.",
		}),
		Retried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "minimsg", Name: "messages_retried_total",
			Help: "Number of retransmission alarm fires.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minithread", Subsystem: "minimsg", Name: "messages_dropped_total",
			Help: "Number of pending messages given up on after MaxTries.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Sent, m.Acked, m.Retried, m.Dropped)
	}
	return m
}
