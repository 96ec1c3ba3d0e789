package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the resolution engine.
//
// Implementations should be inexpensive to call because hooks are executed
// inline with the resolution loop, which runs on every UI interaction.
type Collector interface {
	ObserveResolvePasses(passes int)
	IncIterationCapHit()
	IncValidationFailure(rule string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveResolvePasses(int)    {}
func (noopCollector) IncIterationCapHit()         {}
func (noopCollector) IncValidationFailure(string) {}

// PrometheusCollector exposes engine counters via Prometheus.
type PrometheusCollector struct {
	resolvePasses      prometheus.Counter
	iterationCapHits   prometheus.Counter
	validationFailures *prometheus.CounterVec
}

var (
	resolvePassCounter        prometheus.Counter
	resolvePassCounterLock    sync.Mutex
	iterationCapCounter       prometheus.Counter
	iterationCapCounterLock   sync.Mutex
	validationFailCounter     *prometheus.CounterVec
	validationFailCounterLock sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	resolvePassCounterLock.Lock()
	if resolvePassCounter == nil {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "configurator_resolve_passes_total",
			Help: "Number of fixed-point passes executed by the resolution engine.",
		})
		registered, err := registerCounter(reg, counter)
		if err != nil {
			resolvePassCounterLock.Unlock()
			return nil, err
		}
		resolvePassCounter = registered
	}
	resolvePassCounterLock.Unlock()

	iterationCapCounterLock.Lock()
	if iterationCapCounter == nil {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "configurator_resolve_iteration_cap_total",
			Help: "Number of resolutions that exhausted the iteration cap without converging.",
		})
		registered, err := registerCounter(reg, counter)
		if err != nil {
			iterationCapCounterLock.Unlock()
			return nil, err
		}
		iterationCapCounter = registered
	}
	iterationCapCounterLock.Unlock()

	validationFailCounterLock.Lock()
	if validationFailCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "configurator_validation_failures_total",
			Help: "Number of rule violations reported by validation, per rule.",
		}, []string{"rule"})
		if err := reg.Register(counter); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					validationFailCounter = existing
				} else {
					validationFailCounterLock.Unlock()
					return nil, err
				}
			} else {
				validationFailCounterLock.Unlock()
				return nil, err
			}
		} else {
			validationFailCounter = counter
		}
	}
	validationFailCounterLock.Unlock()

	return &PrometheusCollector{
		resolvePasses:      resolvePassCounter,
		iterationCapHits:   iterationCapCounter,
		validationFailures: validationFailCounter,
	}, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// ObserveResolvePasses records the passes consumed by one resolution.
func (p *PrometheusCollector) ObserveResolvePasses(passes int) {
	if p == nil || p.resolvePasses == nil || passes <= 0 {
		return
	}
	p.resolvePasses.Add(float64(passes))
}

// IncIterationCapHit records a resolution that hit the pass cap.
func (p *PrometheusCollector) IncIterationCapHit() {
	if p == nil || p.iterationCapHits == nil {
		return
	}
	p.iterationCapHits.Inc()
}

// IncValidationFailure records a rule violation surfaced by validation.
func (p *PrometheusCollector) IncValidationFailure(rule string) {
	if p == nil || p.validationFailures == nil {
		return
	}
	p.validationFailures.WithLabelValues(rule).Inc()
}
