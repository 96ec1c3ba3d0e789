package engine

import (
	"fmt"

	"github.com/mixy/configurator/config"
)

// IsOptionAvailable reports whether value may be assigned to the option
// under the current configuration: it must be inside the model's allowed
// domain, must not trigger any matching exclude rule and must not violate
// the option's catalog-level dependencies.
func (e *Engine) IsOptionAvailable(c Configuration, optionID string, value config.Value) bool {
	return len(e.ConflictReasons(c, optionID, value)) == 0
}

// ConflictReasons collects every reason the option/value pair is
// unavailable. The list is empty exactly when the pair is available. All
// matching exclude rules contribute their reason; the collection never
// short-circuits because a UI may want to display all of them at once.
func (e *Engine) ConflictReasons(c Configuration, optionID string, value config.Value) []string {
	opt, ok := e.options[optionID]
	if !ok {
		return []string{fmt.Sprintf("unknown option %q", optionID)}
	}

	var reasons []string

	// Capability domain. Absence of an entry only disqualifies once a model
	// has been chosen.
	if c.ModelID != "" {
		if allowed, ok := e.caps[capKey(c.ModelID, optionID)]; ok {
			if !containsValue(allowed, value) {
				reasons = append(reasons, fmt.Sprintf("%s is not available as %s on model %s", e.displayName(opt), value, c.ModelID))
			}
		} else {
			reasons = append(reasons, fmt.Sprintf("%s does not apply to model %s", e.displayName(opt), c.ModelID))
		}
	}

	for _, rule := range e.rules {
		if rule.cfg.Effect.Type != config.EffectExclude || rule.cfg.Effect.OptionID != optionID {
			continue
		}
		if !rule.cfg.Effect.Value.Contains(value) {
			continue
		}
		if !e.ruleMatches(rule, c) {
			continue
		}
		reasons = append(reasons, e.ruleReason(rule))
	}

	if opt.Requires != nil && !e.dependencySatisfied(c, opt.Requires) {
		reasons = append(reasons, fmt.Sprintf("%s requirements are not met", e.displayName(opt)))
	}
	if opt.Excludes != nil && len(opt.Excludes.Options) > 0 && e.dependencySatisfied(c, opt.Excludes) {
		reasons = append(reasons, fmt.Sprintf("%s is excluded by the current selection", e.displayName(opt)))
	}

	return reasons
}

func (e *Engine) ruleReason(rule *compiledRule) string {
	if rule.cfg.Reason != "" {
		return rule.cfg.Reason
	}
	return fmt.Sprintf("rule %s forbids this selection", rule.cfg.ID)
}

func (e *Engine) displayName(opt *config.OptionConfig) string {
	if opt.DisplayName != "" {
		return opt.DisplayName
	}
	return opt.ID
}

func containsValue(values []config.Value, v config.Value) bool {
	for _, member := range values {
		if member.Equal(v) {
			return true
		}
	}
	return false
}
