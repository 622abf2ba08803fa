package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

const namespace = "license_gateway"

// Metrics holds the service collectors. It observes validation and
// activation outcomes and is updated by housekeeping.
type Metrics struct {
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	activationsTotal   *prometheus.CounterVec
	licensesIssued     prometheus.Counter
	lapsedLicenses     prometheus.Gauge
}

var (
	_ licensing.ValidationObserver = (*Metrics)(nil)
	_ licensing.ActivationObserver = (*Metrics)(nil)
)

func New(registerer prometheus.Registerer) *Metrics {
	validationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "requests_total",
			Help:      "License validation requests by result and reason.",
		},
		[]string{"result", "reason"},
	)
	registerer.MustRegister(validationsTotal)

	validationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Time spent serving license validation requests.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"status_code"},
	)
	registerer.MustRegister(validationDuration)

	activationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activation",
			Name:      "events_total",
			Help:      "Device activations and deactivations.",
		},
		[]string{"action"},
	)
	registerer.MustRegister(activationsTotal)

	licensesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "licenses", Name: "issued_total",
		Help: "License keys issued since start.",
	})
	registerer.MustRegister(licensesIssued)

	lapsedLicenses := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "licenses", Name: "lapsed",
		Help: "Licenses with status active whose expiry has passed.",
	})
	registerer.MustRegister(lapsedLicenses)

	return &Metrics{
		validationsTotal:   validationsTotal,
		validationDuration: validationDuration,
		activationsTotal:   activationsTotal,
		licensesIssued:     licensesIssued,
		lapsedLicenses:     lapsedLicenses,
	}
}

func (m *Metrics) ObserveValidation(_ context.Context, _ licensing.ValidationRequest, res licensing.ValidationResult) {
	m.validationsTotal.WithLabelValues(res.Kind.String(), res.Reason).Inc()
}

func (m *Metrics) ObserveValidationDuration(statusCode string, d time.Duration) {
	m.validationDuration.WithLabelValues(statusCode).Observe(d.Seconds())
}

func (m *Metrics) ObserveActivation(_ context.Context, _ *models.Activation, activated bool) {
	action := "deactivated"
	if activated {
		action = "activated"
	}
	m.activationsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) LicenseIssued() {
	m.licensesIssued.Inc()
}

func (m *Metrics) SetLapsedLicenses(n int) {
	m.lapsedLicenses.Set(float64(n))
}
