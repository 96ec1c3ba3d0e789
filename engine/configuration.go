package engine

import (
	"github.com/mixy/configurator/config"
)

// Configuration is the single mutable entity of the system: a chosen base
// model plus the currently assigned option values. Engine operations never
// mutate their input; they clone, work on the copy and return it, so a
// caller may keep any number of past snapshots (cart entries, undo history)
// without them interfering.
type Configuration struct {
	ModelID string
	Options map[string]config.Value
}

// NewConfiguration returns an empty configuration for the given model.
func NewConfiguration(modelID string) Configuration {
	return Configuration{ModelID: modelID, Options: make(map[string]config.Value)}
}

// Clone returns a deep copy. Values are immutable, so copying the map is
// sufficient to sever all shared structure.
func (c Configuration) Clone() Configuration {
	out := Configuration{ModelID: c.ModelID, Options: make(map[string]config.Value, len(c.Options))}
	for id, value := range c.Options {
		out.Options[id] = value
	}
	return out
}

// Option returns the current value of an option.
func (c Configuration) Option(id string) (config.Value, bool) {
	value, ok := c.Options[id]
	return value, ok
}

// Equal reports whether two configurations assign the same model and values.
func (c Configuration) Equal(o Configuration) bool {
	if c.ModelID != o.ModelID || len(c.Options) != len(o.Options) {
		return false
	}
	for id, value := range c.Options {
		other, ok := o.Options[id]
		if !ok || !value.Equal(other) {
			return false
		}
	}
	return true
}

// isSelected reports whether a value counts as a "selected" state: true for
// booleans, any non-empty string, any number.
func isSelected(v config.Value) bool {
	switch v.Kind() {
	case config.ValueKindBool:
		return v.Bool()
	case config.ValueKindString:
		return v.Str() != ""
	case config.ValueKindNumber:
		return true
	default:
		return false
	}
}
