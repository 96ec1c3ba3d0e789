package pricing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mixy/configurator/config"
	"github.com/mixy/configurator/engine"
)

// Resolver computes configuration prices. It is a pure function of the
// catalog and the configuration passed in; it may be called on every
// keystroke for live feedback.
type Resolver struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// Option customises resolver construction.
type Option func(*Resolver)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver builds a resolver over an immutable catalog.
func NewResolver(cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BasePrice returns the price of the chosen base model. When the catalog
// carries a variant-keyed price table and the variant option is assigned,
// the (model, variant) entry wins; otherwise the flat per-model default.
func (r *Resolver) BasePrice(c engine.Configuration) decimal.Decimal {
	model, ok := r.cfg.Model(c.ModelID)
	if !ok {
		return decimal.Zero
	}
	if model.VariantOption != "" && len(model.VariantPrices) > 0 {
		if variant, ok := c.Options[model.VariantOption]; ok && !variant.IsZero() {
			if price, ok := model.VariantPrices[variant.Key()]; ok {
				return price
			}
			r.logger.Debug().Str("model", model.ID).Str("variant", variant.Key()).
				Msg("no variant price entry, falling back to model base price")
		}
	}
	return model.BasePrice
}

// OptionPrice resolves the contribution of one option/value pair. The
// sources apply in order: attribute-keyed price table, per-value override,
// flat price. A multiplier option scales the resolved price afterwards.
// Unselected or unpriced states contribute zero; a table miss never fails,
// it falls back to the first declared entry.
func (r *Resolver) OptionPrice(c engine.Configuration, optionID string, value config.Value) decimal.Decimal {
	opt, ok := r.cfg.Option(optionID)
	if !ok {
		return decimal.Zero
	}
	if value.IsZero() || (value.Kind() == config.ValueKindBool && !value.Bool()) {
		return decimal.Zero
	}

	price := r.resolveBase(c, opt, value)

	if opt.MultiplierOption != "" {
		if factor, ok := c.Options[opt.MultiplierOption]; ok && factor.Kind() == config.ValueKindNumber {
			price = price.Mul(decimal.NewFromFloat(factor.Num()))
		}
	}
	return price
}

func (r *Resolver) resolveBase(c engine.Configuration, opt *config.OptionConfig, value config.Value) decimal.Decimal {
	if opt.PriceBy != "" && opt.PriceTable.Len() > 0 {
		if attr, ok := c.Options[opt.PriceBy]; ok && !attr.IsZero() {
			if price, ok := opt.PriceTable.Lookup(attr.Key()); ok {
				return price
			}
			r.logger.Debug().Str("option", opt.ID).Str("attribute", attr.Key()).
				Msg("no price table entry for attribute, using first entry")
		}
		_, price, _ := opt.PriceTable.First()
		return price
	}
	if len(opt.ValuePrices) > 0 {
		if price, ok := opt.ValuePrices[value.Key()]; ok {
			return price
		}
	}
	if opt.Price != nil {
		return *opt.Price
	}
	return decimal.Zero
}

// Line is one option's contribution to the total.
type Line struct {
	OptionID string
	Label    string
	Value    config.Value
	Price    decimal.Decimal
}

// Breakdown itemises a configuration's price.
type Breakdown struct {
	Base  decimal.Decimal
	Lines []Line
	Total decimal.Decimal
}

// TotalPrice sums the base price and every selected option's contribution.
func (r *Resolver) TotalPrice(c engine.Configuration) decimal.Decimal {
	return r.Breakdown(c).Total
}

// Breakdown walks the catalog in declaration order so itemisation is stable
// across calls.
func (r *Resolver) Breakdown(c engine.Configuration) Breakdown {
	out := Breakdown{Base: r.BasePrice(c)}
	total := out.Base
	for i := range r.cfg.Options {
		opt := &r.cfg.Options[i]
		value, ok := c.Options[opt.ID]
		if !ok {
			continue
		}
		price := r.OptionPrice(c, opt.ID, value)
		if price.IsZero() {
			continue
		}
		label := opt.DisplayName
		if label == "" {
			label = opt.ID
		}
		out.Lines = append(out.Lines, Line{OptionID: opt.ID, Label: label, Value: value, Price: price})
		total = total.Add(price)
	}
	out.Total = total
	return out
}
