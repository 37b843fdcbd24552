// Package metrics exposes Prometheus instrumentation for sizing calculations:
//
//	tranche_calculations_total{direction,mode}   calculations served
//	tranche_calculation_errors_total{reason}     rejected calculations
//	tranche_calculation_duration_seconds         time spent in the pipeline
//	tranche_table_rows                           rows per returned table
//	tranche_config_reloads_total{result}         grid config hot reloads
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the calculator service.
type Metrics struct {
	Calculations  *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	Duration      prometheus.Histogram
	TableRows     prometheus.Histogram
	ConfigReloads *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tranche_calculations_total",
				Help: "Sizing tables calculated",
			},
			[]string{"direction", "mode"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tranche_calculation_errors_total",
				Help: "Calculations rejected, split by reason",
			},
			[]string{"reason"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tranche_calculation_duration_seconds",
				Help:    "Time spent computing a sizing table",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
		),
		TableRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tranche_table_rows",
				Help:    "Rows in returned sizing tables",
				Buckets: prometheus.LinearBuckets(10, 10, 6),
			},
		),
		ConfigReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tranche_config_reloads_total",
				Help: "Grid configuration reloads, split by result",
			},
			[]string{"result"}, // ok|error
		),
	}
	reg.MustRegister(m.Calculations, m.Errors, m.Duration, m.TableRows, m.ConfigReloads)
	return m
}

// ObserveCalculation records a successful calculation.
func (m *Metrics) ObserveCalculation(direction, mode string, rows int, elapsed time.Duration) {
	m.Calculations.WithLabelValues(direction, mode).Inc()
	m.Duration.Observe(elapsed.Seconds())
	m.TableRows.Observe(float64(rows))
}

// ObserveError records a rejected calculation.
func (m *Metrics) ObserveError(reason string) {
	m.Errors.WithLabelValues(reason).Inc()
}

// ObserveReload records a configuration reload attempt.
func (m *Metrics) ObserveReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ConfigReloads.WithLabelValues(result).Inc()
}
