package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCalculation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCalculation("declining", "default", 27, 2*time.Millisecond)
	m.ObserveCalculation("declining", "default", 27, time.Millisecond)
	m.ObserveCalculation("rising", "alternate", 50, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calculations.WithLabelValues("declining", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calculations.WithLabelValues("rising", "alternate")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestObserveErrorAndReload(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveError("invalid_direction")
	m.ObserveReload(true)
	m.ObserveReload(false)
	m.ObserveReload(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("invalid_direction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConfigReloads.WithLabelValues("error")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
