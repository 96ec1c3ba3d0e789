package engine

import (
	"fmt"

	"github.com/mixy/configurator/config"
)

// ValidationResult reports every rule or dependency violated by a
// configuration.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate is the authoritative consistency check. It is independent of
// Resolve: every rule is re-checked against the configuration as it stands,
// so residual conflicts survive even when the iteration cap cut resolution
// short. Resolve is best-effort repair; this is ground truth.
func (e *Engine) Validate(c Configuration) ValidationResult {
	var errs []string

	for _, rule := range e.rules {
		if !e.ruleMatches(rule, c) {
			continue
		}
		current, has := c.Options[rule.cfg.Effect.OptionID]
		violated := false
		switch rule.cfg.Effect.Type {
		case config.EffectRequire:
			violated = !has || !rule.cfg.Effect.Value.Contains(current)
		case config.EffectExclude:
			violated = has && rule.cfg.Effect.Value.Contains(current)
		}
		if violated {
			errs = append(errs, e.ruleReason(rule))
			e.collector.IncValidationFailure(rule.cfg.ID)
		}
	}

	for i := range e.cfg.Options {
		opt := &e.cfg.Options[i]
		if opt.Requires == nil && opt.Excludes == nil {
			continue
		}
		current, ok := c.Options[opt.ID]
		if !ok || !isSelected(current) {
			continue
		}
		if opt.Requires != nil && !e.dependencySatisfied(c, opt.Requires) {
			errs = append(errs, fmt.Sprintf("%s requirements are not met", e.displayName(opt)))
		}
		if opt.Excludes != nil && len(opt.Excludes.Options) > 0 && e.dependencySatisfied(c, opt.Excludes) {
			errs = append(errs, fmt.Sprintf("%s is excluded by the current selection", e.displayName(opt)))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
