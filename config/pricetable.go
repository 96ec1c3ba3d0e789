package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PriceTable maps lookup keys to decimal prices while preserving the
// declaration order of its entries. Order matters: when an attribute-keyed
// lookup misses, the resolver falls back to the first declared entry.
type PriceTable struct {
	keys   []string
	prices map[string]decimal.Decimal
}

// PriceEntry is one key/price pair used to build tables programmatically.
type PriceEntry struct {
	Key   string
	Price decimal.Decimal
}

// NewPriceTable builds a table from ordered entries.
func NewPriceTable(entries ...PriceEntry) (PriceTable, error) {
	var t PriceTable
	for _, entry := range entries {
		if err := t.set(entry.Key, entry.Price); err != nil {
			return PriceTable{}, err
		}
	}
	return t, nil
}

// MustPriceTable is NewPriceTable that panics on duplicate keys; intended
// for fixed tables in fixtures.
func MustPriceTable(entries ...PriceEntry) PriceTable {
	t, err := NewPriceTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries.
func (t PriceTable) Len() int { return len(t.keys) }

// Lookup returns the price stored under key.
func (t PriceTable) Lookup(key string) (decimal.Decimal, bool) {
	price, ok := t.prices[key]
	return price, ok
}

// First returns the first declared entry, the fallback for unresolved
// attribute lookups.
func (t PriceTable) First() (string, decimal.Decimal, bool) {
	if len(t.keys) == 0 {
		return "", decimal.Zero, false
	}
	key := t.keys[0]
	return key, t.prices[key], true
}

// Keys returns the declared keys in order.
func (t PriceTable) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *PriceTable) set(key string, price decimal.Decimal) error {
	if t.prices == nil {
		t.prices = make(map[string]decimal.Decimal)
	}
	if _, exists := t.prices[key]; exists {
		return fmt.Errorf("duplicate price table key %q", key)
	}
	t.keys = append(t.keys, key)
	t.prices[key] = price
	return nil
}

// UnmarshalJSON decodes an object while keeping its key order.
func (t *PriceTable) UnmarshalJSON(data []byte) error {
	*t = PriceTable{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode price table: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("price table must be an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode price table key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("price table key must be a string")
		}
		var raw json.Number
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode price for %q: %w", key, err)
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			return fmt.Errorf("parse price for %q: %w", key, err)
		}
		if err := t.set(key, price); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode price table: %w", err)
	}
	return nil
}

// MarshalJSON renders the table as an object in declaration order.
func (t PriceTable) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range t.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encoded, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		b.Write(encoded)
		b.WriteByte(':')
		b.WriteString(t.prices[key].String())
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalYAML decodes a mapping node while keeping its key order.
func (t *PriceTable) UnmarshalYAML(node *yaml.Node) error {
	*t = PriceTable{}
	if node == nil {
		return fmt.Errorf("price table node is nil")
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("price table must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("decode price table key: %w", err)
		}
		var raw string
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("decode price for %q: %w", key, err)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse price for %q: %w", key, err)
		}
		if err := t.set(key, price); err != nil {
			return err
		}
	}
	return nil
}

// MarshalYAML renders the table as a mapping in declaration order.
func (t PriceTable) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range t.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: t.prices[key].String()},
		)
	}
	return node, nil
}
