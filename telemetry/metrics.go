// Package telemetry instruments a client.Dal with Prometheus metrics and
// OpenTelemetry traces. Both are exposed as client.Middleware values.
package telemetry

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/satishbabariya/coconutdal/runtime/client"
)

// Outcome label values.
const (
	OutcomeSuccess       = "success"
	OutcomeDatabaseError = "database_error"
	OutcomeError         = "error"
)

// Default histogram buckets for command duration (in seconds)
var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds the collectors fed by Middleware.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	captured   *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace and registers them with
// reg. Collectors already registered by an earlier call are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of executed commands",
			},
			[]string{"operation", "variant", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Command execution time",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "variant"},
		),
		captured: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captured_errors_total",
				Help:      "Database errors recorded as a Dal's last error",
			},
			[]string{"variant"},
		),
	}

	var err error
	if m.operations, err = register(reg, m.operations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.captured, err = register(reg, m.captured); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware records every command.
func (m *Metrics) Middleware() client.Middleware {
	return func(ctx context.Context, event *client.QueryEvent, next func() error) error {
		err := next()

		variant := event.Variant.String()
		outcome := OutcomeSuccess
		switch {
		case err != nil && event.Classified:
			outcome = OutcomeDatabaseError
			m.captured.WithLabelValues(variant).Inc()
		case err != nil:
			outcome = OutcomeError
		}
		m.operations.WithLabelValues(event.Operation, variant, outcome).Inc()
		m.duration.WithLabelValues(event.Operation, variant).Observe(event.Duration.Seconds())
		return err
	}
}
