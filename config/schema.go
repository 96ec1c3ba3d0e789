package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// documentSchema is the CUE contract every configuration document must
// satisfy before it is decoded. Structural mistakes (wrong effect types,
// non-scalar values, malformed dependencies) are rejected here with a CUE
// path in the error, which is far more readable than a decode failure.
const documentSchema = `
#Value:     bool | string | number
#ValueSet:  #Value | [...#Value]
#StringSet: string | [...string]

#Dependency: {
	options: [string]: {
		value?: #ValueSet
		min?:   number
		max?:   number
	}
}

#Model: {
	id:              string & !=""
	label?:          string
	base_price:      number
	variant_option?: string
	variant_prices?: [string]: number
}

#Option: {
	id:                 string & !=""
	display_name?:      string
	type:               "bool" | "enum" | "index" | "custom"
	group?:             string
	configurable?:      bool
	accessory?:         bool
	price?:             number
	price_by?:          string
	price_table?: [string]: number
	value_prices?: [string]: number
	multiplier_option?: string
	requires?:          #Dependency
	excludes?:          #Dependency
}

#Capability: {
	model_id:       string & !=""
	model_label?:   string
	option_id:      string & !=""
	raw?:           string
	allowed_values: [...#Value] & [_, ...]
}

#Rule: {
	rule_id: string & !=""
	when: {
		model_id?:  #StringSet
		option_id?: string
		value?:     #ValueSet
		expr?:      string
	}
	effect: {
		type:      "require" | "exclude"
		option_id: string & !=""
		value?:    #ValueSet
	}
	reason?: string
}

#Derivation: {
	target: string & !=""
	expr:   string & !=""
}

#Document: {
	name?:        string
	description?: string
	logging?: {
		level?:  string
		format?: string
		loki?: {
			enabled?: bool
			url?:     string
			labels?: [string]: string
		}
	}
	telemetry?: enabled?: bool
	models?: [...#Model]
	options?: [...#Option]
	exclusive_groups?: [...string]
	capabilities?: [...#Capability]
	rules?: [...#Rule]
	derivations?: [...#Derivation]
}
`

func validateDocument(raw []byte, format documentFormatKind) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(documentSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	contract := schema.LookupPath(cue.ParsePath("#Document"))
	if err := contract.Err(); err != nil {
		return fmt.Errorf("lookup document contract: %w", err)
	}

	var data cue.Value
	switch format {
	case formatYAML:
		file, err := cueyaml.Extract("document", raw)
		if err != nil {
			return fmt.Errorf("parse document: %w", err)
		}
		data = ctx.BuildFile(file)
	default:
		data = ctx.CompileBytes(raw)
	}
	if err := data.Err(); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	unified := contract.Unify(data)
	if err := unified.Err(); err != nil {
		return fmt.Errorf("schema mismatch: %w", err)
	}
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("schema mismatch: %w", err)
	}
	return nil
}
