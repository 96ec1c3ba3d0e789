package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mixy/configurator/config"
	"github.com/mixy/configurator/telemetry"
)

// maxResolvePasses bounds the fixed-point loop. Cyclic rule authoring must
// terminate; validation reports whatever inconsistency remains.
const maxResolvePasses = 10

// Engine resolves configurations against an immutable catalog, capability
// table and rule set. It holds no mutable state between calls.
type Engine struct {
	cfg         *config.Config
	options     map[string]*config.OptionConfig
	caps        map[string][]config.Value
	rules       []*compiledRule
	derivations []*compiledDerivation
	logger      zerolog.Logger
	collector   telemetry.Collector
}

// Option customises engine construction.
type Option func(*Engine)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCollector attaches a telemetry collector.
func WithCollector(collector telemetry.Collector) Option {
	return func(e *Engine) { e.collector = collector }
}

// New compiles the rule set and derivations and indexes the catalog.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	e := &Engine{
		cfg:       cfg,
		options:   make(map[string]*config.OptionConfig, len(cfg.Options)),
		caps:      make(map[string][]config.Value, len(cfg.Capabilities)),
		logger:    zerolog.Nop(),
		collector: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for i := range cfg.Options {
		opt := &cfg.Options[i]
		e.options[opt.ID] = opt
	}
	for i := range cfg.Capabilities {
		cap := &cfg.Capabilities[i]
		e.caps[capKey(cap.ModelID, cap.OptionID)] = cap.AllowedValues
	}

	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	e.rules = rules

	derivations, err := compileDerivations(cfg.Derivations)
	if err != nil {
		return nil, err
	}
	e.derivations = derivations

	return e, nil
}

func capKey(modelID, optionID string) string {
	return modelID + "\x00" + optionID
}

// AllowedValues returns the ordered value domain of an option under a model,
// or nil when the option does not apply to the model.
func (e *Engine) AllowedValues(modelID, optionID string) []config.Value {
	allowed, ok := e.caps[capKey(modelID, optionID)]
	if !ok {
		return nil
	}
	out := make([]config.Value, len(allowed))
	copy(out, allowed)
	return out
}

// CreateInitialConfig selects a base model and seeds type-appropriate
// defaults: the first allowed value for non-booleans, false where false is
// allowed (else true) for booleans. The result is resolved before return.
// An unknown model yields an empty configuration.
func (e *Engine) CreateInitialConfig(modelID string) Configuration {
	if _, ok := e.cfg.Model(modelID); !ok {
		e.logger.Debug().Str("model", modelID).Msg("initial config requested for unknown model")
		return Configuration{}
	}
	cfg := NewConfiguration(modelID)
	for i := range e.cfg.Capabilities {
		cap := &e.cfg.Capabilities[i]
		if cap.ModelID != modelID || len(cap.AllowedValues) == 0 {
			continue
		}
		cfg.Options[cap.OptionID] = e.defaultValue(cap)
	}
	return e.Resolve(cfg)
}

func (e *Engine) defaultValue(cap *config.CapabilityConfig) config.Value {
	boolean := false
	if opt, ok := e.options[cap.OptionID]; ok && opt.Type == config.OptionTypeBool {
		boolean = true
	}
	if !boolean {
		boolean = cap.AllowedValues[0].Kind() == config.ValueKindBool
	}
	if boolean {
		unselected := config.BoolValue(false)
		for _, v := range cap.AllowedValues {
			if v.Equal(unselected) {
				return unselected
			}
		}
		return config.BoolValue(true)
	}
	return cap.AllowedValues[0]
}
