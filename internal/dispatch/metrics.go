package dispatch

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/idempotency"
)

// metrics is nil when metrics are disabled; every method is nil-safe.
type metrics struct {
	calls       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	attempts    *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	idempotency *prometheus.CounterVec
	waits       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	return &metrics{
		calls: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "computectl",
				Subsystem: "dispatch",
				Name:      "calls_total",
				Help:      "Total number of operation calls by result",
			},
			[]string{"operation", "result"},
		)),
		latency: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "computectl",
				Subsystem: "dispatch",
				Name:      "call_duration_seconds",
				Help:      "Duration of operation calls including retries in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"operation"},
		)),
		attempts: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "computectl",
				Subsystem: "dispatch",
				Name:      "call_attempts",
				Help:      "Number of transport attempts per call",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"operation"},
		)),
		retries: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "computectl",
				Subsystem: "dispatch",
				Name:      "retries_total",
				Help:      "Total number of retries by error kind",
			},
			[]string{"operation", "kind"},
		)),
		idempotency: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "computectl",
				Subsystem: "idempotency",
				Name:      "hits_total",
				Help:      "Calls answered by the idempotency tracker by source",
			},
			[]string{"operation", "source"},
		)),
		waits: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "computectl",
				Subsystem: "waiter",
				Name:      "outcomes_total",
				Help:      "Total number of finished waits by terminal state",
			},
			[]string{"operation", "state"},
		)),
	}
}

// register returns the already registered collector when an identical one
// exists, so several clients can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) recordCall(op string, err error, d time.Duration, attempts int) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op, resultLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(d.Seconds())
	if attempts > 0 {
		m.attempts.WithLabelValues(op).Observe(float64(attempts))
	}
}

func (m *metrics) recordRetry(op, kind string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op, kind).Inc()
}

func (m *metrics) recordIdempotency(op string, src idempotency.Source) {
	if m == nil {
		return
	}
	m.idempotency.WithLabelValues(op, string(src)).Inc()
}

func (m *metrics) recordWait(op, state string) {
	if m == nil {
		return
	}
	m.waits.WithLabelValues(op, state).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if ce, ok := apierr.As(err); ok {
		return string(ce.Kind)
	}
	return string(apierr.KindUnknown)
}
