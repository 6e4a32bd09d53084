// Package planner turns natural-language goals into action plans using an
// LLM provider, and generates recovery plans after execution failures.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/wayfind/pkg/llm"
	"github.com/entrhq/wayfind/pkg/llm/tokenizer"
	"github.com/entrhq/wayfind/pkg/orchestrator"
	"github.com/entrhq/wayfind/pkg/plan"
)

const (
	// DefaultMaxRetries bounds how many times a malformed completion is
	// retried with a format reminder.
	DefaultMaxRetries = 3

	// DefaultContextBudget is the token budget for the page-context
	// portion of the prompt.
	DefaultContextBudget = 4000

	// retryDelay spaces out retries against flaky model output.
	retryDelay = time.Second
)

// Planner implements the orchestrator's Planner port over an LLM provider.
type Planner struct {
	provider      llm.Provider
	tok           *tokenizer.Tokenizer
	maxRetries    int
	contextBudget int
}

// Option configures a Planner.
type Option func(*Planner)

// WithMaxRetries sets the malformed-output retry bound.
func WithMaxRetries(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithContextBudget sets the page-context token budget.
func WithContextBudget(tokens int) Option {
	return func(p *Planner) {
		if tokens > 0 {
			p.contextBudget = tokens
		}
	}
}

// New creates a planner over the given provider.
func New(provider llm.Provider, opts ...Option) (*Planner, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider is required")
	}
	tok, err := tokenizer.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	p := &Planner{
		provider:      provider,
		tok:           tok,
		maxRetries:    DefaultMaxRetries,
		contextBudget: DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GeneratePlan produces a plan for the goal, grounded in the current page
// context when one is available.
func (p *Planner) GeneratePlan(ctx context.Context, goal, pageContext string) (*plan.Plan, error) {
	prompt := buildPlanPrompt(goal, p.boundContext(pageContext))
	return p.complete(ctx, prompt)
}

// SelfHeal produces a recovery plan replacing the remainder of a failed
// plan. The prompt always restates the original goal so recovery completes
// the task rather than merely fixing the failed step.
func (p *Planner) SelfHeal(ctx context.Context, rc orchestrator.RecoveryContext) (*plan.Plan, error) {
	rc.PageContext = p.boundContext(rc.PageContext)
	prompt := buildRecoveryPrompt(rc)
	return p.complete(ctx, prompt)
}

// boundContext truncates page context to the configured token budget.
func (p *Planner) boundContext(pageContext string) string {
	return p.tok.Truncate(pageContext, p.contextBudget)
}

// complete runs the prompt against the provider, retrying malformed output
// with a format reminder up to the retry bound.
func (p *Planner) complete(ctx context.Context, prompt string) (*plan.Plan, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			prompt += "\n\nREMINDER: Return ONLY a valid JSON array, no explanations or markdown."
		}

		response, err := p.provider.Complete(ctx, []llm.Message{
			llm.SystemMessage(systemPrompt),
			llm.UserMessage(prompt),
		})
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}

		parsed, err := parsePlan(response)
		if err != nil {
			lastErr = err
			continue
		}
		if err := validatePlan(parsed); err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}

	return nil, fmt.Errorf("no valid plan after %d attempts: %w", p.maxRetries, lastErr)
}
