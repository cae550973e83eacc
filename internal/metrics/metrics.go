// Package metrics provides Prometheus metrics for the goshape service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for goshape.
type Collector struct {
	// Validation metrics
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Input metrics
	DecodeErrors   *prometheus.CounterVec
	DecodeWarnings *prometheus.CounterVec

	// Registry metrics
	SchemaReloads *prometheus.CounterVec
	SchemasLoaded prometheus.Gauge
}

// New creates a collector registered on the default registerer.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goshape",
				Name:      "validations_total",
				Help:      "Total number of validations by schema and result",
			},
			[]string{"schema", "result"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goshape",
				Name:      "validation_duration_seconds",
				Help:      "Time spent validating a decoded value",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"schema"},
		),
		DecodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goshape",
				Name:      "decode_errors_total",
				Help:      "Total number of rejected inputs by issue code",
			},
			[]string{"code"},
		),
		DecodeWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goshape",
				Name:      "decode_warnings_total",
				Help:      "Total number of non-fatal input issues by issue code",
			},
			[]string{"code"},
		),
		SchemaReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goshape",
				Name:      "schema_reloads_total",
				Help:      "Total number of schema reloads by result",
			},
			[]string{"result"},
		),
		SchemasLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "goshape",
				Name:      "schemas_loaded",
				Help:      "Number of schemas currently registered",
			},
		),
	}
}

// ObserveValidation records one validation.
func (c *Collector) ObserveValidation(schema string, valid bool, d time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	c.Validations.WithLabelValues(schema, result).Inc()
	c.ValidationDuration.WithLabelValues(schema).Observe(d.Seconds())
}

// ObserveDecodeError records a rejected input.
func (c *Collector) ObserveDecodeError(code string) {
	c.DecodeErrors.WithLabelValues(code).Inc()
}

// ObserveDecodeWarning records a non-fatal input issue, such as a duplicate
// key under the warn policy.
func (c *Collector) ObserveDecodeWarning(code string) {
	c.DecodeWarnings.WithLabelValues(code).Inc()
}

// ObserveReload records a reload attempt and the resulting schema count.
func (c *Collector) ObserveReload(loaded int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.SchemaReloads.WithLabelValues(result).Inc()
	c.SchemasLoaded.Set(float64(loaded))
}
