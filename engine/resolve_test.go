package engine

import (
	"strings"
	"testing"

	"github.com/mixy/configurator/config"
)

func TestResolveIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)

	configs := []Configuration{
		eng.CreateInitialConfig("330_100"),
		eng.CreateInitialConfig("blue_label"),
	}
	armed := eng.ToggleOption(configs[0], "arm_option", config.StringValue("1200 Twin"))
	configs = append(configs, armed)

	for i, cfg := range configs {
		once := eng.Resolve(cfg)
		twice := eng.Resolve(once)
		if !once.Equal(twice) {
			t.Fatalf("config %d: second resolve pass changed the configuration", i)
		}
	}
}

func TestResolveDerivesVacuumFromVariant(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	if v, _ := cfg.Option("vacuum"); v.Bool() {
		t.Fatalf("vacuum must start false")
	}

	cfg = eng.ToggleOption(cfg, "variant", config.StringValue("Twin VAC"))
	if v, _ := cfg.Option("vacuum"); !v.Bool() {
		t.Fatalf("vacuum must mirror the VAC marker in the variant name")
	}

	cfg = eng.ToggleOption(cfg, "variant", config.StringValue("Standard"))
	if v, _ := cfg.Option("vacuum"); v.Bool() {
		t.Fatalf("vacuum must drop when the variant loses the VAC marker")
	}
}

func TestResolvePrunesDependentSelections(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	cfg = eng.ToggleOption(cfg, "variant", config.StringValue("Twin VAC"))
	cfg = eng.ToggleOption(cfg, "pump_p1", config.BoolValue(true))
	if v, _ := cfg.Option("pump_p1"); !v.Bool() {
		t.Fatalf("pump must be selectable while vacuum is active")
	}

	// Dropping the vacuum variant invalidates the pump's requirement; the
	// next resolution pass must force it back off.
	cfg = eng.ToggleOption(cfg, "variant", config.StringValue("Standard"))
	if v, _ := cfg.Option("pump_p1"); v.Bool() {
		t.Fatalf("pump must be pruned once its vacuum requirement fails")
	}
}

func TestResolveAppliesRequireEffect(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	cfg = eng.ToggleOption(cfg, "chassis", config.StringValue("Large"))
	if v, _ := cfg.Option("support_premium"); !v.Bool() {
		t.Fatalf("large chassis must force premium support on")
	}
}

func TestResolveReplacesExcludedValue(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	cfg = eng.ToggleOption(cfg, "basket", config.StringValue("1400"))
	if v, _ := cfg.Option("basket"); !v.Equal(config.StringValue("1400")) {
		t.Fatalf("basket 1400 must be selectable with the 800 Single arm")
	}

	cfg = eng.ToggleOption(cfg, "arm_option", config.StringValue("1200 Twin"))
	if v, _ := cfg.Option("basket"); !v.Equal(config.StringValue("1000")) {
		t.Fatalf("excluded basket must fall back to the first available value, got %s", v)
	}
}

func newCyclicEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.Config{
		Models: []config.ModelConfig{{ID: "m1"}},
		Options: []config.OptionConfig{
			{ID: "a", Type: config.OptionTypeBool, Configurable: true},
			{ID: "b", Type: config.OptionTypeEnum, Configurable: true},
		},
		Capabilities: []config.CapabilityConfig{
			{ModelID: "m1", OptionID: "a", AllowedValues: boolDomain()},
			{ModelID: "m1", OptionID: "b", AllowedValues: strDomain("x")},
		},
		Rules: []config.RuleConfig{
			{
				ID:     "a_requires_b_x",
				When:   config.RuleWhen{OptionID: "a", Value: config.ValueSet{config.BoolValue(true)}},
				Effect: config.RuleEffect{Type: config.EffectRequire, OptionID: "b", Value: config.ValueSet{config.StringValue("x")}},
				Reason: "a needs b set to x",
			},
			{
				ID:     "a_excludes_b_x",
				When:   config.RuleWhen{OptionID: "a", Value: config.ValueSet{config.BoolValue(true)}},
				Effect: config.RuleEffect{Type: config.EffectExclude, OptionID: "b", Value: config.ValueSet{config.StringValue("x")}},
				Reason: "a forbids b set to x",
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("cyclic fixture invalid: %v", err)
	}
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func TestResolveTerminatesOnCyclicRules(t *testing.T) {
	eng := newCyclicEngine(t)

	cfg := NewConfiguration("m1")
	cfg.Options["a"] = config.BoolValue(true)

	// Must return despite the require/exclude cycle; the iteration cap is
	// the only termination guarantee here.
	resolved := eng.Resolve(cfg)

	result := eng.Validate(resolved)
	if result.Valid {
		t.Fatalf("cyclic rules must leave a residual conflict")
	}
	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, "b set to x") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected residual conflict about b, got %v", result.Errors)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")
	cfg.Options["chassis"] = config.StringValue("Large")

	before := cfg.Clone()
	resolved := eng.Resolve(cfg)

	if !cfg.Equal(before) {
		t.Fatalf("Resolve mutated its input")
	}
	if v, _ := resolved.Option("support_premium"); !v.Bool() {
		t.Fatalf("resolved copy must carry the rule effect")
	}
}
