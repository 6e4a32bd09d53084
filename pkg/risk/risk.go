// Package risk classifies plan steps that require human approval before
// execution.
//
// An action is risky when its kind matches one of the configured patterns.
// The set is configuration, not hard-coded at call sites: callers build a
// Classifier from config and every plan — including recovery plans — passes
// through it before execution.
package risk

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/wayfind/pkg/plan"
)

// DefaultRiskyKinds is the default set of action kinds whose semantics
// imply an irreversible side effect.
var DefaultRiskyKinds = []string{
	"submit",
	"submit_form",
	"proceed_to_checkout",
	"auto_login",
	"delete",
	"confirm_purchase",
	"make_payment",
}

// Classifier is a pure, side-effect free classifier mapping steps to an
// approval requirement. Safe for concurrent use after construction.
type Classifier struct {
	patterns []glob.Glob
	sources  []string
}

// NewClassifier compiles the given kind patterns. Patterns use glob syntax
// so config entries like "confirm_*" cover families of kinds.
func NewClassifier(kinds []string) (*Classifier, error) {
	patterns := make([]glob.Glob, 0, len(kinds))
	for _, kind := range kinds {
		g, err := glob.Compile(kind)
		if err != nil {
			return nil, fmt.Errorf("invalid risky action pattern %q: %w", kind, err)
		}
		patterns = append(patterns, g)
	}
	return &Classifier{patterns: patterns, sources: kinds}, nil
}

// Default returns a classifier over DefaultRiskyKinds.
func Default() *Classifier {
	c, err := NewClassifier(DefaultRiskyKinds)
	if err != nil {
		// The default set contains no metacharacters; compilation cannot fail.
		panic(err)
	}
	return c
}

// Patterns returns the configured pattern strings.
func (c *Classifier) Patterns() []string {
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

// Risky reports whether a single step requires approval.
func (c *Classifier) Risky(step plan.Step) bool {
	for _, g := range c.patterns {
		if g.Match(string(step.Kind)) {
			return true
		}
	}
	return false
}

// PlanRisky reports whether any step of the plan requires approval.
func (c *Classifier) PlanRisky(p *plan.Plan) bool {
	if p == nil {
		return false
	}
	for _, step := range p.Steps {
		if c.Risky(step) {
			return true
		}
	}
	return false
}

// Annotate returns a copy of the plan with the derived Risky flag set on
// each step. The input plan is not modified.
func (c *Classifier) Annotate(p *plan.Plan) *plan.Plan {
	if p == nil {
		return nil
	}
	steps := make([]plan.Step, len(p.Steps))
	for i, step := range p.Steps {
		step.Risky = c.Risky(step)
		steps[i] = step
	}
	return &plan.Plan{Steps: steps}
}
