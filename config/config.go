package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// OptionType classifies how an option's value is presented and encoded.
type OptionType string

const (
	// OptionTypeBool is a yes/no option.
	OptionTypeBool OptionType = "bool"
	// OptionTypeEnum selects one of a list of named values.
	OptionTypeEnum OptionType = "enum"
	// OptionTypeIndex selects one of an ordered numeric range.
	OptionTypeIndex OptionType = "index"
	// OptionTypeCustom carries free-form values.
	OptionTypeCustom OptionType = "custom"
)

// EffectType is the action a rule takes on its target option.
type EffectType string

const (
	// EffectRequire forces the target option onto the effect value.
	EffectRequire EffectType = "require"
	// EffectExclude forces the target option away from the effect value.
	EffectExclude EffectType = "exclude"
)

// DependencyTerm is one alternative of a catalog-level dependency. A term is
// satisfied when the referenced option's current value is a member of Value,
// or lies inside the Min/Max bounds for numeric comparisons.
type DependencyTerm struct {
	Value ValueSet `json:"value,omitempty" yaml:"value,omitempty"`
	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Dependency describes catalog-level requires/excludes metadata. The Options
// map has OR semantics: satisfying any single entry satisfies the dependency.
type Dependency struct {
	Options map[string]DependencyTerm `json:"options" yaml:"options"`
}

// OptionConfig is one catalog entry.
type OptionConfig struct {
	ID               string                     `json:"id" yaml:"id"`
	DisplayName      string                     `json:"display_name" yaml:"display_name"`
	Type             OptionType                 `json:"type" yaml:"type"`
	Group            string                     `json:"group,omitempty" yaml:"group,omitempty"`
	Configurable     bool                       `json:"configurable" yaml:"configurable"`
	Accessory        bool                       `json:"accessory,omitempty" yaml:"accessory,omitempty"`
	Price            *decimal.Decimal           `json:"price,omitempty" yaml:"price,omitempty"`
	PriceBy          string                     `json:"price_by,omitempty" yaml:"price_by,omitempty"`
	PriceTable       PriceTable                 `json:"price_table,omitempty" yaml:"price_table,omitempty"`
	ValuePrices      map[string]decimal.Decimal `json:"value_prices,omitempty" yaml:"value_prices,omitempty"`
	MultiplierOption string                     `json:"multiplier_option,omitempty" yaml:"multiplier_option,omitempty"`
	Requires         *Dependency                `json:"requires,omitempty" yaml:"requires,omitempty"`
	Excludes         *Dependency                `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// ModelConfig describes one base model of the machine family. The declaration
// order of models is codec-significant: it drives the leading model character.
type ModelConfig struct {
	ID            string                     `json:"id" yaml:"id"`
	Label         string                     `json:"label,omitempty" yaml:"label,omitempty"`
	BasePrice     decimal.Decimal            `json:"base_price" yaml:"base_price"`
	VariantOption string                     `json:"variant_option,omitempty" yaml:"variant_option,omitempty"`
	VariantPrices map[string]decimal.Decimal `json:"variant_prices,omitempty" yaml:"variant_prices,omitempty"`
}

// CapabilityConfig lists the allowed values of one option under one model.
// The order of AllowedValues is semantically significant: it is the index
// used by the code codec and by the default-selection policy.
type CapabilityConfig struct {
	ModelID       string   `json:"model_id" yaml:"model_id"`
	ModelLabel    string   `json:"model_label,omitempty" yaml:"model_label,omitempty"`
	OptionID      string   `json:"option_id" yaml:"option_id"`
	Raw           string   `json:"raw,omitempty" yaml:"raw,omitempty"`
	AllowedValues []Value  `json:"allowed_values" yaml:"allowed_values"`
}

// RuleWhen is the condition half of a rule. Absent clauses are vacuously
// true. Expr, when present, is an expression evaluated against the current
// configuration; it must yield a boolean.
type RuleWhen struct {
	ModelID  StringSet `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	OptionID string    `json:"option_id,omitempty" yaml:"option_id,omitempty"`
	Value    ValueSet  `json:"value,omitempty" yaml:"value,omitempty"`
	Expr     string    `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// RuleEffect is the action half of a rule.
type RuleEffect struct {
	Type     EffectType `json:"type" yaml:"type"`
	OptionID string     `json:"option_id" yaml:"option_id"`
	Value    ValueSet   `json:"value" yaml:"value"`
}

// RuleConfig is one declarative compatibility rule. Rules apply in
// declaration order; that order is a deliberate, observable tie-break.
type RuleConfig struct {
	ID     string     `json:"rule_id" yaml:"rule_id"`
	When   RuleWhen   `json:"when" yaml:"when"`
	Effect RuleEffect `json:"effect" yaml:"effect"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// DerivationConfig computes a derived attribute at the start of every
// resolution pass, before any rule runs. Target names the option that
// receives the expression result.
type DerivationConfig struct {
	Target string `json:"target" yaml:"target"`
	Expr   string `json:"expr" yaml:"expr"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `json:"enabled" yaml:"enabled"`
	URL     string            `json:"url" yaml:"url"`
	Labels  map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `json:"level,omitempty" yaml:"level,omitempty"`
	Format string     `json:"format,omitempty" yaml:"format,omitempty"`
	Loki   LokiConfig `json:"loki,omitempty" yaml:"loki,omitempty"`
}

// TelemetryConfig enables metric collection.
type TelemetryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Config is the root document: the catalog, the capability table and the
// rule set, plus ambient runtime options. All of it is immutable after Load.
type Config struct {
	Name            string             `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string             `json:"description,omitempty" yaml:"description,omitempty"`
	Logging         LoggingConfig      `json:"logging,omitempty" yaml:"logging,omitempty"`
	Telemetry       TelemetryConfig    `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	Models          []ModelConfig      `json:"models" yaml:"models"`
	Options         []OptionConfig     `json:"options" yaml:"options"`
	ExclusiveGroups []string           `json:"exclusive_groups,omitempty" yaml:"exclusive_groups,omitempty"`
	Capabilities    []CapabilityConfig `json:"capabilities" yaml:"capabilities"`
	Rules           []RuleConfig       `json:"rules" yaml:"rules"`
	Derivations     []DerivationConfig `json:"derivations,omitempty" yaml:"derivations,omitempty"`
}

// Load reads the configuration from a file or directory. A directory is
// merged from its .json/.yaml/.yml files in lexical order, so the catalog,
// capability table and rule set may live in separate documents.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	var cfg *Config
	if info.IsDir() {
		cfg, err = loadDir(abs)
	} else {
		cfg, err = loadFile(abs)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	format := documentFormat(path)
	if err := validateDocument(raw, format); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	var cfg Config
	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	return &cfg, nil
}

func loadDir(path string) (*Config, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch documentFormat(entry.Name()) {
		case formatJSON, formatYAML:
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("config dir %s contains no documents", path)
	}
	sort.Strings(names)

	merged := &Config{}
	for _, name := range names {
		part, err := loadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		mergeConfig(merged, part)
	}
	return merged, nil
}

type documentFormatKind int

const (
	formatJSON documentFormatKind = iota
	formatYAML
	formatUnknown
)

func documentFormat(path string) documentFormatKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatUnknown
	}
}

func mergeConfig(dst, src *Config) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Logging.Level != "" || src.Logging.Format != "" || src.Logging.Loki.Enabled {
		dst.Logging = src.Logging
	}
	if src.Telemetry.Enabled {
		dst.Telemetry = src.Telemetry
	}
	dst.Models = append(dst.Models, src.Models...)
	dst.Options = append(dst.Options, src.Options...)
	dst.ExclusiveGroups = append(dst.ExclusiveGroups, src.ExclusiveGroups...)
	dst.Capabilities = append(dst.Capabilities, src.Capabilities...)
	dst.Rules = append(dst.Rules, src.Rules...)
	dst.Derivations = append(dst.Derivations, src.Derivations...)
}

// Validate checks referential integrity of the loaded documents. The limit
// of 62 allowed values per capability keeps every domain index encodable as
// a single code character; the model list is capped for the same reason, as
// its index is the leading code character.
func (c *Config) Validate() error {
	if len(c.Models) > codeAlphabetSize {
		return fmt.Errorf("%d models exceed the %d encodable models", len(c.Models), codeAlphabetSize)
	}
	models := make(map[string]struct{}, len(c.Models))
	for _, model := range c.Models {
		if model.ID == "" {
			return errors.New("model id must not be empty")
		}
		if _, ok := models[model.ID]; ok {
			return fmt.Errorf("duplicate model id %q", model.ID)
		}
		models[model.ID] = struct{}{}
	}

	options := make(map[string]*OptionConfig, len(c.Options))
	for i := range c.Options {
		opt := &c.Options[i]
		if opt.ID == "" {
			return errors.New("option id must not be empty")
		}
		if _, ok := options[opt.ID]; ok {
			return fmt.Errorf("duplicate option id %q", opt.ID)
		}
		options[opt.ID] = opt
	}
	for _, opt := range c.Options {
		if opt.MultiplierOption != "" {
			if _, ok := options[opt.MultiplierOption]; !ok {
				return fmt.Errorf("option %s: unknown multiplier option %q", opt.ID, opt.MultiplierOption)
			}
		}
		if opt.PriceBy != "" && opt.PriceTable.Len() == 0 {
			return fmt.Errorf("option %s: price_by set without price_table", opt.ID)
		}
		for _, dep := range []*Dependency{opt.Requires, opt.Excludes} {
			if dep == nil {
				continue
			}
			for ref := range dep.Options {
				if _, ok := options[ref]; !ok {
					return fmt.Errorf("option %s: dependency references unknown option %q", opt.ID, ref)
				}
			}
		}
	}

	for _, model := range c.Models {
		if model.VariantOption == "" {
			continue
		}
		if _, ok := options[model.VariantOption]; !ok {
			return fmt.Errorf("model %s: unknown variant option %q", model.ID, model.VariantOption)
		}
	}

	seen := make(map[string]struct{}, len(c.Capabilities))
	for _, cap := range c.Capabilities {
		if _, ok := models[cap.ModelID]; !ok {
			return fmt.Errorf("capability references unknown model %q", cap.ModelID)
		}
		if _, ok := options[cap.OptionID]; !ok {
			return fmt.Errorf("capability references unknown option %q", cap.OptionID)
		}
		if len(cap.AllowedValues) == 0 {
			return fmt.Errorf("capability %s/%s has no allowed values", cap.ModelID, cap.OptionID)
		}
		if len(cap.AllowedValues) > codeAlphabetSize {
			return fmt.Errorf("capability %s/%s exceeds %d allowed values", cap.ModelID, cap.OptionID, codeAlphabetSize)
		}
		key := cap.ModelID + "\x00" + cap.OptionID
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate capability for %s/%s", cap.ModelID, cap.OptionID)
		}
		seen[key] = struct{}{}
	}

	rules := make(map[string]struct{}, len(c.Rules))
	for _, rule := range c.Rules {
		if rule.ID == "" {
			return errors.New("rule id must not be empty")
		}
		if _, ok := rules[rule.ID]; ok {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		rules[rule.ID] = struct{}{}
		switch rule.Effect.Type {
		case EffectRequire, EffectExclude:
		default:
			return fmt.Errorf("rule %s: unknown effect type %q", rule.ID, rule.Effect.Type)
		}
		if rule.Effect.OptionID == "" {
			return fmt.Errorf("rule %s: effect option id must not be empty", rule.ID)
		}
		if _, ok := options[rule.Effect.OptionID]; !ok {
			return fmt.Errorf("rule %s: effect references unknown option %q", rule.ID, rule.Effect.OptionID)
		}
		if rule.When.OptionID != "" {
			if _, ok := options[rule.When.OptionID]; !ok {
				return fmt.Errorf("rule %s: condition references unknown option %q", rule.ID, rule.When.OptionID)
			}
		}
		for _, modelID := range rule.When.ModelID {
			if _, ok := models[modelID]; !ok {
				return fmt.Errorf("rule %s: condition references unknown model %q", rule.ID, modelID)
			}
		}
	}

	for _, derivation := range c.Derivations {
		if derivation.Target == "" {
			return errors.New("derivation target must not be empty")
		}
		if derivation.Expr == "" {
			return fmt.Errorf("derivation %s: expression must not be empty", derivation.Target)
		}
		if _, ok := options[derivation.Target]; !ok {
			return fmt.Errorf("derivation targets unknown option %q", derivation.Target)
		}
	}

	return nil
}

// codeAlphabetSize mirrors the codec alphabet length; domains or model lists
// larger than this cannot be expressed as a single positional character.
const codeAlphabetSize = 62

// Model returns the model definition for id.
func (c *Config) Model(id string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].ID == id {
			return &c.Models[i], true
		}
	}
	return nil, false
}

// Option returns the catalog entry for id.
func (c *Config) Option(id string) (*OptionConfig, bool) {
	for i := range c.Options {
		if c.Options[i].ID == id {
			return &c.Options[i], true
		}
	}
	return nil, false
}

// Capability returns the capability entry for the model/option pair.
func (c *Config) Capability(modelID, optionID string) (*CapabilityConfig, bool) {
	for i := range c.Capabilities {
		cap := &c.Capabilities[i]
		if cap.ModelID == modelID && cap.OptionID == optionID {
			return cap, true
		}
	}
	return nil, false
}

// ExclusiveGroup reports whether group members are mutually exclusive.
func (c *Config) ExclusiveGroup(group string) bool {
	if group == "" {
		return false
	}
	for _, name := range c.ExclusiveGroups {
		if name == group {
			return true
		}
	}
	return false
}
