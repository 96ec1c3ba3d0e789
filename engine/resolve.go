package engine

import (
	"github.com/mixy/configurator/config"
)

// Resolve drives the configuration to a fixed point: derived attributes are
// recomputed, catalog dependencies pruned and rule effects applied, over and
// over, until one full pass changes nothing or the pass cap is reached. The
// input is never mutated.
func (e *Engine) Resolve(c Configuration) Configuration {
	work := c.Clone()
	if work.Options == nil {
		work.Options = make(map[string]config.Value)
	}

	passes := 0
	converged := false
	for passes < maxResolvePasses {
		passes++
		changed := e.applyDerivations(&work)
		if e.pruneDependencies(&work) {
			changed = true
		}
		if e.applyRules(&work) {
			changed = true
		}
		if !changed {
			converged = true
			break
		}
	}

	e.collector.ObserveResolvePasses(passes)
	if !converged {
		e.collector.IncIterationCapHit()
		e.logger.Warn().Str("model", work.ModelID).Int("passes", passes).
			Msg("resolution stopped at iteration cap, configuration may be inconsistent")
	} else {
		e.logger.Trace().Str("model", work.ModelID).Int("passes", passes).Msg("resolution converged")
	}
	return work
}

// pruneDependencies forces any selected option whose catalog-level
// requirements are no longer met back to its unselected state.
func (e *Engine) pruneDependencies(work *Configuration) bool {
	changed := false
	for i := range e.cfg.Options {
		opt := &e.cfg.Options[i]
		if opt.Requires == nil && opt.Excludes == nil {
			continue
		}
		current, ok := work.Options[opt.ID]
		if !ok || !isSelected(current) {
			continue
		}
		violated := false
		if opt.Requires != nil && !e.dependencySatisfied(*work, opt.Requires) {
			violated = true
		}
		if opt.Excludes != nil && len(opt.Excludes.Options) > 0 && e.dependencySatisfied(*work, opt.Excludes) {
			violated = true
		}
		if !violated {
			continue
		}
		e.unselect(work, opt.ID, current)
		changed = true
	}
	return changed
}

func (e *Engine) unselect(work *Configuration, optionID string, current config.Value) {
	if current.Kind() == config.ValueKindBool {
		work.Options[optionID] = config.BoolValue(false)
		return
	}
	delete(work.Options, optionID)
}

// applyRules walks the rule set in declaration order. That order is a
// visible tie-break: reordering rules changes resolution outcomes.
func (e *Engine) applyRules(work *Configuration) bool {
	changed := false
	for _, rule := range e.rules {
		if !e.ruleMatches(rule, *work) {
			continue
		}
		target := rule.cfg.Effect.OptionID
		if _, ok := e.options[target]; !ok {
			continue
		}
		current, has := work.Options[target]

		switch rule.cfg.Effect.Type {
		case config.EffectRequire:
			if len(rule.cfg.Effect.Value) == 0 {
				continue
			}
			if has && rule.cfg.Effect.Value.Contains(current) {
				continue
			}
			work.Options[target] = rule.cfg.Effect.Value.First()
			changed = true
			e.logger.Trace().Str("rule", rule.cfg.ID).Str("option", target).Msg("require effect applied")

		case config.EffectExclude:
			if !has || !rule.cfg.Effect.Value.Contains(current) {
				continue
			}
			if current.Kind() == config.ValueKindBool {
				work.Options[target] = config.BoolValue(!current.Bool())
			} else if replacement, ok := e.replacementValue(*work, target, rule.cfg.Effect.Value); ok {
				work.Options[target] = replacement
			} else {
				delete(work.Options, target)
			}
			changed = true
			e.logger.Trace().Str("rule", rule.cfg.ID).Str("option", target).Msg("exclude effect applied")
		}
	}
	return changed
}

// replacementValue picks the first allowed value that is outside the
// excluded set and itself available under the current configuration.
func (e *Engine) replacementValue(c Configuration, optionID string, excluded config.ValueSet) (config.Value, bool) {
	for _, candidate := range e.caps[capKey(c.ModelID, optionID)] {
		if excluded.Contains(candidate) {
			continue
		}
		if !e.IsOptionAvailable(c, optionID, candidate) {
			continue
		}
		return candidate, true
	}
	return config.Value{}, false
}

// ToggleOption assigns a value and re-resolves. Unknown options and values
// rejected by the availability gate are silent no-ops: the input comes from
// interactive UI events and must never crash the interaction.
//
// Members of an exclusive group bypass the rule and dependency half of the
// gate so the user can switch between mutually exclusive siblings; selecting
// one clears the boolean siblings of the same group. The capability domain
// still applies: no toggle may introduce a value the model does not offer.
func (e *Engine) ToggleOption(c Configuration, optionID string, value config.Value) Configuration {
	opt, ok := e.options[optionID]
	if !ok {
		e.logger.Debug().Str("option", optionID).Msg("toggle ignored for unknown option")
		return c
	}
	if !e.inDomain(c, optionID, value) {
		e.logger.Debug().Str("option", optionID).Stringer("value", value).Msg("toggle rejected, value outside the model domain")
		return c
	}
	exclusive := e.cfg.ExclusiveGroup(opt.Group)
	if !exclusive && !e.IsOptionAvailable(c, optionID, value) {
		e.logger.Debug().Str("option", optionID).Stringer("value", value).Msg("toggle rejected by availability gate")
		return c
	}

	work := c.Clone()
	if work.Options == nil {
		work.Options = make(map[string]config.Value)
	}
	work.Options[optionID] = value

	if exclusive && isSelected(value) {
		for i := range e.cfg.Options {
			sibling := &e.cfg.Options[i]
			if sibling.ID == optionID || sibling.Group != opt.Group {
				continue
			}
			if current, ok := work.Options[sibling.ID]; ok && current.Kind() == config.ValueKindBool && current.Bool() {
				work.Options[sibling.ID] = config.BoolValue(false)
			}
		}
	}

	return e.Resolve(work)
}

// inDomain checks capability-table membership only. Before a model is chosen
// there is no domain to check against.
func (e *Engine) inDomain(c Configuration, optionID string, value config.Value) bool {
	if c.ModelID == "" {
		return true
	}
	allowed, ok := e.caps[capKey(c.ModelID, optionID)]
	return ok && containsValue(allowed, value)
}
