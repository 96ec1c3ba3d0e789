package codec

import (
	"fmt"
	"strings"

	"github.com/mixy/configurator/config"
	"github.com/mixy/configurator/engine"
)

// alphabet maps domain indices onto single characters. Position in the
// string is the encoded index, so the order is part of the wire format.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// sentinel marks an unset or not-applicable option slot.
const sentinel = '_'

// separator splits the product segment from the accessory segment.
const separator = '-'

// Codec encodes configurations into positional codes. The product segment
// (model character plus one character per model-scoped catalog option) is a
// stable SKU key: accessory selections live in their own segment and can
// never perturb it.
type Codec struct {
	cfg       *config.Config
	product   []string
	accessory []string
}

// New indexes the catalog. Product and accessory slots follow catalog
// declaration order, which is therefore part of the code format.
func New(cfg *config.Config) *Codec {
	c := &Codec{cfg: cfg}
	for i := range cfg.Options {
		opt := &cfg.Options[i]
		if opt.Accessory {
			c.accessory = append(c.accessory, opt.ID)
		} else {
			c.product = append(c.product, opt.ID)
		}
	}
	return c
}

// Encode renders the configuration as "<product>-<accessories>".
func (c *Codec) Encode(cfg engine.Configuration) string {
	var b strings.Builder
	b.Grow(len(c.product) + len(c.accessory) + 2)

	modelIndex := -1
	for i := range c.cfg.Models {
		if c.cfg.Models[i].ID == cfg.ModelID {
			modelIndex = i
			break
		}
	}
	if modelIndex >= 0 && modelIndex < len(alphabet) {
		b.WriteByte(alphabet[modelIndex])
	} else {
		b.WriteByte(sentinel)
	}

	for _, optionID := range c.product {
		b.WriteByte(c.encodeSlot(cfg, optionID))
	}
	b.WriteByte(separator)
	for _, optionID := range c.accessory {
		b.WriteByte(c.encodeAccessorySlot(cfg, optionID))
	}
	return b.String()
}

func (c *Codec) encodeSlot(cfg engine.Configuration, optionID string) byte {
	if cfg.ModelID == "" {
		return sentinel
	}
	allowed := c.allowedValues(cfg.ModelID, optionID)
	if allowed == nil {
		return sentinel
	}
	value, ok := cfg.Options[optionID]
	if !ok {
		return sentinel
	}
	for i, candidate := range allowed {
		if candidate.Equal(value) && i < len(alphabet) {
			return alphabet[i]
		}
	}
	return sentinel
}

func (c *Codec) encodeAccessorySlot(cfg engine.Configuration, optionID string) byte {
	opt, _ := c.cfg.Option(optionID)
	if opt != nil && opt.Type == config.OptionTypeBool {
		if value, ok := cfg.Options[optionID]; ok && value.Bool() {
			return '1'
		}
		return '0'
	}
	return c.encodeSlot(cfg, optionID)
}

func (c *Codec) allowedValues(modelID, optionID string) []config.Value {
	cap, ok := c.cfg.Capability(modelID, optionID)
	if !ok {
		return nil
	}
	return cap.AllowedValues
}

// ProductSegment extracts the stable product half of a code.
func ProductSegment(code string) string {
	if idx := strings.IndexByte(code, separator); idx >= 0 {
		return code[:idx]
	}
	return code
}

// Parse is the inverse of Encode for the current format. Sentinel characters
// leave the option unset; structural problems (unknown model character, bad
// segment length, index outside the value domain) are reported as errors.
// Callers should re-resolve the result before trusting it: a hand-edited
// code may describe an inconsistent selection.
func (c *Codec) Parse(code string) (engine.Configuration, error) {
	if code == "" {
		return engine.Configuration{}, fmt.Errorf("code must not be empty")
	}
	product := ProductSegment(code)
	accessory := ""
	if idx := strings.IndexByte(code, separator); idx >= 0 {
		accessory = code[idx+1:]
	}
	if len(product) == 0 {
		return engine.Configuration{}, fmt.Errorf("code has no product segment")
	}

	cfg := engine.NewConfiguration("")
	modelChar := product[0]
	if modelChar != sentinel {
		modelIndex := strings.IndexByte(alphabet, modelChar)
		if modelIndex < 0 || modelIndex >= len(c.cfg.Models) {
			return engine.Configuration{}, fmt.Errorf("unknown model character %q", string(modelChar))
		}
		cfg.ModelID = c.cfg.Models[modelIndex].ID
	}

	if len(product) != len(c.product)+1 {
		return engine.Configuration{}, fmt.Errorf("product segment has %d characters, want %d", len(product), len(c.product)+1)
	}
	for i, optionID := range c.product {
		if err := c.parseSlot(&cfg, optionID, product[i+1]); err != nil {
			return engine.Configuration{}, err
		}
	}

	if accessory == "" {
		return cfg, nil
	}
	if len(accessory) != len(c.accessory) {
		return engine.Configuration{}, fmt.Errorf("accessory segment has %d characters, want %d", len(accessory), len(c.accessory))
	}
	for i, optionID := range c.accessory {
		if err := c.parseAccessorySlot(&cfg, optionID, accessory[i]); err != nil {
			return engine.Configuration{}, err
		}
	}
	return cfg, nil
}

func (c *Codec) parseSlot(cfg *engine.Configuration, optionID string, ch byte) error {
	if ch == sentinel {
		return nil
	}
	if cfg.ModelID == "" {
		return fmt.Errorf("option %s encoded without a model", optionID)
	}
	allowed := c.allowedValues(cfg.ModelID, optionID)
	if allowed == nil {
		return fmt.Errorf("option %s does not apply to model %s", optionID, cfg.ModelID)
	}
	index := strings.IndexByte(alphabet, ch)
	if index < 0 || index >= len(allowed) {
		return fmt.Errorf("option %s: character %q outside the value domain", optionID, string(ch))
	}
	cfg.Options[optionID] = allowed[index]
	return nil
}

func (c *Codec) parseAccessorySlot(cfg *engine.Configuration, optionID string, ch byte) error {
	opt, _ := c.cfg.Option(optionID)
	if opt != nil && opt.Type == config.OptionTypeBool {
		switch ch {
		case '1':
			cfg.Options[optionID] = config.BoolValue(true)
		case '0':
			cfg.Options[optionID] = config.BoolValue(false)
		case sentinel:
		default:
			return fmt.Errorf("accessory %s: character %q is not a boolean flag", optionID, string(ch))
		}
		return nil
	}
	return c.parseSlot(cfg, optionID, ch)
}
