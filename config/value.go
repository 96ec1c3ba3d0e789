package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind describes the primitive type carried by an option value.
type ValueKind string

const (
	// ValueKindBool represents boolean values.
	ValueKindBool ValueKind = "bool"
	// ValueKindString represents plain UTF-8 strings.
	ValueKindString ValueKind = "string"
	// ValueKindNumber represents floating point numbers.
	ValueKindNumber ValueKind = "number"
)

// Value is the closed sum of types an option value can take. The zero Value
// means "unset" and is distinct from false, "" and 0.
type Value struct {
	kind ValueKind
	b    bool
	s    string
	n    float64
}

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: ValueKindBool, b: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: ValueKindString, s: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: ValueKindNumber, n: n} }

// Kind reports the kind of the value, or "" for the unset value.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value is unset.
func (v Value) IsZero() bool { return v.kind == "" }

// Bool returns the boolean payload. Non-bool values report false.
func (v Value) Bool() bool { return v.kind == ValueKindBool && v.b }

// Str returns the string payload, or "" for non-string values.
func (v Value) Str() string {
	if v.kind != ValueKindString {
		return ""
	}
	return v.s
}

// Num returns the numeric payload, or 0 for non-number values.
func (v Value) Num() float64 {
	if v.kind != ValueKindNumber {
		return 0
	}
	return v.n
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueKindBool:
		return v.b == o.b
	case ValueKindString:
		return v.s == o.s
	case ValueKindNumber:
		return v.n == o.n
	default:
		return true
	}
}

// Key returns the stringified form used as lookup key in price override and
// variant tables. Numbers render without a trailing fraction ("2", not "2.0").
func (v Value) Key() string {
	switch v.kind {
	case ValueKindBool:
		return strconv.FormatBool(v.b)
	case ValueKindString:
		return v.s
	case ValueKindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.IsZero() {
		return "<unset>"
	}
	return v.Key()
}

// Native returns the payload as a plain Go value for expression environments.
func (v Value) Native() interface{} {
	switch v.kind {
	case ValueKindBool:
		return v.b
	case ValueKindString:
		return v.s
	case ValueKindNumber:
		return v.n
	default:
		return nil
	}
}

// FromNative converts a plain Go value into a Value.
func FromNative(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return v, nil
	case bool:
		return BoolValue(v), nil
	case string:
		return StringValue(v), nil
	case float64:
		return NumberValue(v), nil
	case float32:
		return NumberValue(float64(v)), nil
	case int:
		return NumberValue(float64(v)), nil
	case int8:
		return NumberValue(float64(v)), nil
	case int16:
		return NumberValue(float64(v)), nil
	case int32:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case uint:
		return NumberValue(float64(v)), nil
	case uint8:
		return NumberValue(float64(v)), nil
	case uint16:
		return NumberValue(float64(v)), nil
	case uint32:
		return NumberValue(float64(v)), nil
	case uint64:
		return NumberValue(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", v.String(), err)
		}
		return NumberValue(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// UnmarshalJSON accepts boolean, string and numeric literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	parsed, err := FromNative(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON renders the native payload.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalYAML accepts boolean, string and numeric scalars.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		return fmt.Errorf("value node is nil")
	}
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	parsed, err := FromNative(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML renders the native payload.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Native(), nil
}

// ValueSet is an ordered set of values. In documents it may be written either
// as a single scalar or as a list; order is preserved because the first
// element is the canonical replacement used by require effects.
type ValueSet []Value

// Contains reports whether the set holds a value equal to v.
func (s ValueSet) Contains(v Value) bool {
	for _, member := range s {
		if member.Equal(v) {
			return true
		}
	}
	return false
}

// First returns the first member, or the unset value for an empty set.
func (s ValueSet) First() Value {
	if len(s) == 0 {
		return Value{}
	}
	return s[0]
}

// UnmarshalJSON accepts either a scalar literal or a list of literals.
func (s *ValueSet) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var values []Value
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		*s = values
		return nil
	}
	var single Value
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = ValueSet{single}
	return nil
}

// MarshalJSON renders single-element sets as a scalar.
func (s ValueSet) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]Value(s))
}

// UnmarshalYAML accepts either a scalar node or a sequence node.
func (s *ValueSet) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		return fmt.Errorf("value set node is nil")
	}
	if node.Kind == yaml.SequenceNode {
		var values []Value
		if err := node.Decode(&values); err != nil {
			return err
		}
		*s = values
		return nil
	}
	var single Value
	if err := node.Decode(&single); err != nil {
		return err
	}
	*s = ValueSet{single}
	return nil
}

// StringSet is a set of identifiers that may be written as a scalar or list.
type StringSet []string

// Contains reports membership. An empty set matches nothing.
func (s StringSet) Contains(id string) bool {
	for _, member := range s {
		if member == id {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts either a string or a list of strings.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		*s = ids
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = StringSet{single}
	return nil
}

// UnmarshalYAML accepts either a scalar node or a sequence node.
func (s *StringSet) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		return fmt.Errorf("string set node is nil")
	}
	if node.Kind == yaml.SequenceNode {
		var ids []string
		if err := node.Decode(&ids); err != nil {
			return err
		}
		*s = ids
		return nil
	}
	var single string
	if err := node.Decode(&single); err != nil {
		return err
	}
	*s = StringSet{single}
	return nil
}
