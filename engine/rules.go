package engine

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mixy/configurator/config"
)

type compiledRule struct {
	cfg   config.RuleConfig
	when  *vm.Program
	order int
}

type compiledDerivation struct {
	cfg     config.DerivationConfig
	program *vm.Program
	order   int
}

func compileRules(cfgs []config.RuleConfig) ([]*compiledRule, error) {
	rules := make([]*compiledRule, 0, len(cfgs))
	for idx, cfg := range cfgs {
		rule := &compiledRule{cfg: cfg, order: idx}
		if cfg.When.Expr != "" {
			program, err := compileExpression(cfg.When.Expr)
			if err != nil {
				return nil, fmt.Errorf("rule %s condition: %w", cfg.ID, err)
			}
			rule.when = program
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileDerivations(cfgs []config.DerivationConfig) ([]*compiledDerivation, error) {
	derivations := make([]*compiledDerivation, 0, len(cfgs))
	for idx, cfg := range cfgs {
		program, err := compileExpression(cfg.Expr)
		if err != nil {
			return nil, fmt.Errorf("derivation %s: %w", cfg.Target, err)
		}
		derivations = append(derivations, &compiledDerivation{cfg: cfg, program: program, order: idx})
	}
	return derivations, nil
}

func compileExpression(exprStr string) (*vm.Program, error) {
	return expr.Compile(exprStr, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
}

// exprEnv builds the evaluation environment: every assigned option value is
// visible under its id, plus a small helper vocabulary. Substring checks use
// the language's own `contains` operator, so no helper is provided for them.
func (e *Engine) exprEnv(c Configuration) map[string]interface{} {
	env := make(map[string]interface{}, len(c.Options)+5)
	for id, value := range c.Options {
		env[id] = value.Native()
	}
	env["model"] = c.ModelID
	env["value"] = func(id string) interface{} {
		if v, ok := c.Options[id]; ok {
			return v.Native()
		}
		return nil
	}
	env["has"] = func(id string) bool {
		_, ok := c.Options[id]
		return ok
	}
	env["lower"] = strings.ToLower
	return env
}

func (e *Engine) ruleMatches(rule *compiledRule, c Configuration) bool {
	when := rule.cfg.When
	if len(when.ModelID) > 0 && !when.ModelID.Contains(c.ModelID) {
		return false
	}
	if when.OptionID != "" {
		current, ok := c.Options[when.OptionID]
		if !ok {
			return false
		}
		if len(when.Value) > 0 {
			if !when.Value.Contains(current) {
				return false
			}
		} else if !isSelected(current) {
			return false
		}
	}
	if rule.when != nil {
		out, err := vm.Run(rule.when, e.exprEnv(c))
		if err != nil {
			e.logger.Warn().Err(err).Str("rule", rule.cfg.ID).Msg("rule condition failed")
			return false
		}
		matched, ok := out.(bool)
		if !ok {
			e.logger.Warn().Str("rule", rule.cfg.ID).Msgf("rule condition returned %T, want bool", out)
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

// applyDerivations recomputes derived attributes. Rules may depend on them,
// so this runs at the start of every resolution pass.
func (e *Engine) applyDerivations(work *Configuration) bool {
	changed := false
	for _, derivation := range e.derivations {
		out, err := vm.Run(derivation.program, e.exprEnv(*work))
		if err != nil {
			e.logger.Warn().Err(err).Str("target", derivation.cfg.Target).Msg("derivation failed")
			continue
		}
		value, err := config.FromNative(out)
		if err != nil {
			e.logger.Warn().Err(err).Str("target", derivation.cfg.Target).Msg("derivation result unusable")
			continue
		}
		current, has := work.Options[derivation.cfg.Target]
		if value.IsZero() {
			if has {
				delete(work.Options, derivation.cfg.Target)
				changed = true
			}
			continue
		}
		if !has || !current.Equal(value) {
			work.Options[derivation.cfg.Target] = value
			changed = true
		}
	}
	return changed
}

func (e *Engine) dependencySatisfied(c Configuration, dep *config.Dependency) bool {
	if dep == nil || len(dep.Options) == 0 {
		return true
	}
	// OR semantics: any single satisfied term is enough.
	for ref, term := range dep.Options {
		current, ok := c.Options[ref]
		if !ok {
			continue
		}
		if len(term.Value) > 0 {
			if term.Value.Contains(current) {
				return true
			}
			continue
		}
		if term.Min != nil || term.Max != nil {
			if current.Kind() != config.ValueKindNumber {
				continue
			}
			n := current.Num()
			if term.Min != nil && n < *term.Min {
				continue
			}
			if term.Max != nil && n > *term.Max {
				continue
			}
			return true
		}
		if isSelected(current) {
			return true
		}
	}
	return false
}
