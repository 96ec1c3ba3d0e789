package engine

import (
	"testing"

	"github.com/mixy/configurator/config"
)

func TestToggleUnknownOptionIsNoOp(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	next := eng.ToggleOption(cfg, "warp_drive", config.BoolValue(true))
	if !next.Equal(cfg) {
		t.Fatalf("toggling an unknown option must return the input unchanged")
	}
}

func TestToggleUnavailableValueIsNoOp(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	next := eng.ToggleOption(cfg, "basket", config.StringValue("9999"))
	if !next.Equal(cfg) {
		t.Fatalf("toggling a value outside the domain must return the input unchanged")
	}
}

func TestToggleClearsExclusiveSiblings(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	cfg = eng.ToggleOption(cfg, "fap_standard", config.BoolValue(true))
	if v, _ := cfg.Option("fap_standard"); !v.Bool() {
		t.Fatalf("fap_standard must be selectable")
	}

	cfg = eng.ToggleOption(cfg, "fap_gold", config.BoolValue(true))
	if v, _ := cfg.Option("fap_gold"); !v.Bool() {
		t.Fatalf("fap_gold must win the toggle")
	}
	for _, sibling := range []string{"fap_standard", "fap_platinum"} {
		if v, _ := cfg.Option(sibling); v.Bool() {
			t.Fatalf("%s must be cleared when fap_gold is selected", sibling)
		}
	}
}

func TestToggleExclusiveGroupBypassesGate(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	// pump_p1 requires vacuum and is unavailable right now, but members of
	// an exclusive group skip the gate so siblings can be switched freely.
	// Resolution then prunes the unsatisfiable selection straight back off.
	if eng.IsOptionAvailable(cfg, "pump_p1", config.BoolValue(true)) {
		t.Fatalf("pump must be unavailable without vacuum")
	}
	next := eng.ToggleOption(cfg, "pump_p1", config.BoolValue(true))
	if v, _ := next.Option("pump_p1"); v.Bool() {
		t.Fatalf("resolution must prune the pump again")
	}
}

func TestToggleExclusiveGroupRejectsForeignValue(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")

	// Exclusive siblings skip rule gating, not the capability domain.
	next := eng.ToggleOption(cfg, "fap_gold", config.StringValue("bogus"))
	if !next.Equal(cfg) {
		t.Fatalf("out-of-domain value must be a no-op even inside an exclusive group")
	}
	if v, _ := next.Option("fap_gold"); v.Kind() != config.ValueKindBool {
		t.Fatalf("fap_gold must keep its boolean state, got %s", v)
	}
	if !eng.Validate(next).Valid {
		t.Fatalf("configuration must stay valid")
	}
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.CreateInitialConfig("330_100")
	before := cfg.Clone()

	_ = eng.ToggleOption(cfg, "chassis", config.StringValue("Large"))
	if !cfg.Equal(before) {
		t.Fatalf("ToggleOption mutated its input")
	}
}
