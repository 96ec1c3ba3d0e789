package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mixy/configurator/config"
	"github.com/mixy/configurator/engine"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	cfg := &config.Config{
		Models: []config.ModelConfig{
			{ID: "330_100", BasePrice: dec(t, "125000")},
			{
				ID: "blue_label", BasePrice: dec(t, "98000"),
				VariantOption: "variant",
				VariantPrices: map[string]decimal.Decimal{"Twin VAC": dec(t, "109000")},
			},
		},
		Options: []config.OptionConfig{
			{ID: "variant", Type: config.OptionTypeEnum, Configurable: true},
			{ID: "chassis", Type: config.OptionTypeEnum, Configurable: true},
			{
				ID: "arm_option", Type: config.OptionTypeEnum, Configurable: true,
				ValuePrices: map[string]decimal.Decimal{"800 Single": dec(t, "1500"), "1200 Twin": dec(t, "2600")},
			},
			{
				ID: "support_premium", Type: config.OptionTypeBool, Configurable: true,
				PriceBy: "chassis",
				PriceTable: config.MustPriceTable(
					config.PriceEntry{Key: "Compact", Price: dec(t, "800")},
					config.PriceEntry{Key: "Medium +", Price: dec(t, "1100")},
					config.PriceEntry{Key: "Large", Price: dec(t, "1500")},
				),
			},
			{ID: "fap_gold", Type: config.OptionTypeBool, Configurable: true, Price: decPtr(t, "1200"), MultiplierOption: "fap_warranty_years"},
			{ID: "fap_warranty_years", Type: config.OptionTypeIndex, Configurable: true},
			{ID: "cart_medium", Type: config.OptionTypeBool, Configurable: true, Accessory: true, Price: decPtr(t, "650")},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture config invalid: %v", err)
	}
	return NewResolver(cfg)
}

func configWith(modelID string, options map[string]config.Value) engine.Configuration {
	cfg := engine.NewConfiguration(modelID)
	for id, value := range options {
		cfg.Options[id] = value
	}
	return cfg
}

func TestBasePriceVariantTable(t *testing.T) {
	r := newResolver(t)

	plain := configWith("blue_label", nil)
	if got := r.BasePrice(plain); !got.Equal(dec(t, "98000")) {
		t.Fatalf("base without variant = %s, want 98000", got)
	}

	vac := configWith("blue_label", map[string]config.Value{"variant": config.StringValue("Twin VAC")})
	if got := r.BasePrice(vac); !got.Equal(dec(t, "109000")) {
		t.Fatalf("variant base = %s, want 109000", got)
	}

	unknown := configWith("blue_label", map[string]config.Value{"variant": config.StringValue("Standard")})
	if got := r.BasePrice(unknown); !got.Equal(dec(t, "98000")) {
		t.Fatalf("unlisted variant must fall back to the model default, got %s", got)
	}
}

func TestOptionPriceValueOverrides(t *testing.T) {
	r := newResolver(t)
	cfg := configWith("330_100", nil)

	if got := r.OptionPrice(cfg, "arm_option", config.StringValue("1200 Twin")); !got.Equal(dec(t, "2600")) {
		t.Fatalf("arm override = %s, want 2600", got)
	}
	if got := r.OptionPrice(cfg, "arm_option", config.StringValue("900 Mono")); !got.IsZero() {
		t.Fatalf("unlisted arm value must price at zero, got %s", got)
	}
	if got := r.OptionPrice(cfg, "cart_medium", config.BoolValue(true)); !got.Equal(dec(t, "650")) {
		t.Fatalf("flat price = %s, want 650", got)
	}
	if got := r.OptionPrice(cfg, "cart_medium", config.BoolValue(false)); !got.IsZero() {
		t.Fatalf("deselected boolean must price at zero, got %s", got)
	}
	if got := r.OptionPrice(cfg, "warp_drive", config.BoolValue(true)); !got.IsZero() {
		t.Fatalf("unknown option must price at zero, got %s", got)
	}
}

func TestOptionPriceAttributeTable(t *testing.T) {
	r := newResolver(t)

	medium := configWith("330_100", map[string]config.Value{"chassis": config.StringValue("Medium +")})
	if got := r.OptionPrice(medium, "support_premium", config.BoolValue(true)); !got.Equal(dec(t, "1100")) {
		t.Fatalf("attribute-keyed price = %s, want 1100", got)
	}

	// Attribute unresolved: the first declared entry is the fallback.
	bare := configWith("330_100", nil)
	if got := r.OptionPrice(bare, "support_premium", config.BoolValue(true)); !got.Equal(dec(t, "800")) {
		t.Fatalf("fallback price = %s, want 800", got)
	}

	// Attribute resolved but missing from the table: same fallback.
	odd := configWith("330_100", map[string]config.Value{"chassis": config.StringValue("Extra Large")})
	if got := r.OptionPrice(odd, "support_premium", config.BoolValue(true)); !got.Equal(dec(t, "800")) {
		t.Fatalf("miss fallback price = %s, want 800", got)
	}
}

func TestMultiplierScalesLinearly(t *testing.T) {
	r := newResolver(t)

	priceAt := func(years float64) decimal.Decimal {
		cfg := configWith("330_100", map[string]config.Value{
			"fap_gold":           config.BoolValue(true),
			"fap_warranty_years": config.NumberValue(years),
		})
		return r.OptionPrice(cfg, "fap_gold", config.BoolValue(true))
	}

	one := priceAt(1)
	two := priceAt(2)
	five := priceAt(5)
	if !two.Equal(one.Mul(decimal.NewFromInt(2))) {
		t.Fatalf("price at 2 years = %s, want twice %s", two, one)
	}
	if !five.Equal(one.Mul(decimal.NewFromInt(5))) {
		t.Fatalf("price at 5 years = %s, want five times %s", five, one)
	}

	// Without the multiplier option assigned the base price stands.
	cfg := configWith("330_100", map[string]config.Value{"fap_gold": config.BoolValue(true)})
	if got := r.OptionPrice(cfg, "fap_gold", config.BoolValue(true)); !got.Equal(dec(t, "1200")) {
		t.Fatalf("price without multiplier = %s, want 1200", got)
	}
}

func TestTotalPriceSumsContributions(t *testing.T) {
	r := newResolver(t)

	cfg := configWith("330_100", map[string]config.Value{
		"arm_option":         config.StringValue("1200 Twin"),
		"fap_gold":           config.BoolValue(true),
		"fap_warranty_years": config.NumberValue(3),
		"cart_medium":        config.BoolValue(true),
	})

	// 125000 + 2600 + 1200*3 + 650
	want := dec(t, "131850")
	if got := r.TotalPrice(cfg); !got.Equal(want) {
		t.Fatalf("total = %s, want %s", got, want)
	}

	// Pricing is pure: a second call over the same snapshot must agree.
	if got := r.TotalPrice(cfg); !got.Equal(want) {
		t.Fatalf("total changed between calls")
	}
}

func TestBreakdownOrderFollowsCatalog(t *testing.T) {
	r := newResolver(t)

	cfg := configWith("330_100", map[string]config.Value{
		"cart_medium": config.BoolValue(true),
		"arm_option":  config.StringValue("800 Single"),
	})
	breakdown := r.Breakdown(cfg)
	if len(breakdown.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(breakdown.Lines))
	}
	if breakdown.Lines[0].OptionID != "arm_option" || breakdown.Lines[1].OptionID != "cart_medium" {
		t.Fatalf("lines must follow catalog declaration order, got %+v", breakdown.Lines)
	}
	if !breakdown.Total.Equal(dec(t, "127150")) {
		t.Fatalf("total = %s, want 127150", breakdown.Total)
	}
}
