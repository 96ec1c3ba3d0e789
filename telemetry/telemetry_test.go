package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func resetCounters() {
	resolvePassCounterLock.Lock()
	resolvePassCounter = nil
	resolvePassCounterLock.Unlock()

	iterationCapCounterLock.Lock()
	iterationCapCounter = nil
	iterationCapCounterLock.Unlock()

	validationFailCounterLock.Lock()
	validationFailCounter = nil
	validationFailCounterLock.Unlock()
}

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.ObserveResolvePasses(3)
	collector.IncIterationCapHit()
	collector.IncValidationFailure("arm_1200_excludes_basket_1400")
}

func TestPrometheusCollectorRegistersAndReusesCounters(t *testing.T) {
	resetCounters()

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	collector.ObserveResolvePasses(2)
	collector.IncIterationCapHit()
	collector.IncValidationFailure("r1")
	collector.IncValidationFailure("r1")

	metrics, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range metrics {
		byName[mf.GetName()] = mf
	}
	requireCounterValue(t, byName["configurator_resolve_passes_total"], 2)
	requireCounterValue(t, byName["configurator_resolve_iteration_cap_total"], 1)

	failures := byName["configurator_validation_failures_total"]
	require.NotNil(t, failures)
	require.Len(t, failures.Metric, 1)
	require.Equal(t, "r1", failures.Metric[0].Label[0].GetValue())
	require.Equal(t, float64(2), failures.Metric[0].Counter.GetValue())

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.resolvePasses, again.resolvePasses)

	again.ObserveResolvePasses(1)

	metrics, err = reg.Gather()
	require.NoError(t, err)
	for _, mf := range metrics {
		if mf.GetName() == "configurator_resolve_passes_total" {
			requireCounterValue(t, mf, 3)
		}
	}
}

func TestObserveIgnoresNonPositivePasses(t *testing.T) {
	resetCounters()

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.ObserveResolvePasses(0)
	collector.ObserveResolvePasses(-4)

	metrics, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range metrics {
		if mf.GetName() == "configurator_resolve_passes_total" {
			requireCounterValue(t, mf, 0)
		}
	}
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.NotNil(t, mf)
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}
