package observe

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PromObserver struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPromObserver registers the span metrics with reg.
func NewPromObserver(reg prometheus.Registerer) (*PromObserver, error) {
	o := &PromObserver{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rss_harvest",
				Name:      "operations_total",
				Help:      "Total number of pipeline operations",
			},
			[]string{"op", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rss_harvest",
				Name:      "operation_duration_seconds",
				Help:      "Duration of pipeline operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	if err := reg.Register(o.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(o.durations); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *PromObserver) Start(_ context.Context, op string, _ ...any) Span {
	return &promSpan{observer: o, op: op, start: time.Now()}
}

type promSpan struct {
	observer *PromObserver
	op       string
	start    time.Time
}

func (s *promSpan) End(err error, _ ...any) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.observer.operations.WithLabelValues(s.op, status).Inc()
	s.observer.durations.WithLabelValues(s.op).Observe(time.Since(s.start).Seconds())
}
