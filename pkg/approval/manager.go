// Package approval decides whether risky plans may execute. Decisions come
// from auto-approval patterns or from a human prompt bounded by a timeout.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/wayfind/pkg/orchestrator"
	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/entrhq/wayfind/pkg/types"
)

// DefaultTimeout is how long a pending approval waits before it is treated
// as a rejection.
const DefaultTimeout = 2 * time.Minute

// PromptFunc asks a human to approve or reject a plan. It runs on its own
// goroutine so a slow human cannot block the manager's timeout handling.
type PromptFunc func(p *plan.Plan) (bool, error)

// Manager implements the orchestrator's Decider port. A plan is approved
// automatically when every risky step matches an auto-approve pattern;
// otherwise the prompt decides, subject to the timeout.
type Manager struct {
	timeout     time.Duration
	autoApprove []glob.Glob
	patterns    []string
	prompt      PromptFunc
	emit        types.Emitter
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets how long to wait for a prompt response.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithEmitter sets the event emitter for approval outcomes.
func WithEmitter(emit types.Emitter) Option {
	return func(m *Manager) {
		if emit != nil {
			m.emit = emit
		}
	}
}

// WithAutoApprove registers glob patterns for risky action kinds that skip
// the prompt.
func WithAutoApprove(patterns []string) Option {
	return func(m *Manager) {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			m.autoApprove = append(m.autoApprove, g)
			m.patterns = append(m.patterns, pattern)
		}
	}
}

// NewManager creates a manager that consults prompt for plans it cannot
// auto-approve. A nil prompt rejects everything not auto-approved.
func NewManager(prompt PromptFunc, opts ...Option) *Manager {
	m := &Manager{
		timeout: DefaultTimeout,
		prompt:  prompt,
		emit:    types.NopEmitter,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AutoApprovePatterns returns the configured auto-approve patterns.
func (m *Manager) AutoApprovePatterns() []string {
	return m.patterns
}

// Decide implements orchestrator.Decider.
func (m *Manager) Decide(ctx context.Context, p *plan.Plan) (orchestrator.Decision, error) {
	if m.allAutoApproved(p) {
		m.emit(types.NewApprovalResultEvent(true))
		return orchestrator.DecisionApprove, nil
	}

	if m.prompt == nil {
		m.emit(types.NewApprovalResultEvent(false))
		return orchestrator.DecisionReject, nil
	}

	type promptResult struct {
		approved bool
		err      error
	}
	responses := make(chan promptResult, 1)
	go func() {
		approved, err := m.prompt(p)
		responses <- promptResult{approved: approved, err: err}
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return orchestrator.DecisionReject, ctx.Err()

	case <-timer.C:
		m.emit(types.NewApprovalResultEvent(false))
		return orchestrator.DecisionReject, nil

	case resp := <-responses:
		if resp.err != nil {
			return orchestrator.DecisionReject, fmt.Errorf("approval prompt failed: %w", resp.err)
		}
		m.emit(types.NewApprovalResultEvent(resp.approved))
		if resp.approved {
			return orchestrator.DecisionApprove, nil
		}
		return orchestrator.DecisionReject, nil
	}
}

// allAutoApproved reports whether every risky step's kind matches an
// auto-approve pattern. Plans with no risky steps never reach the decider,
// so an empty pattern list auto-approves nothing.
func (m *Manager) allAutoApproved(p *plan.Plan) bool {
	if len(m.autoApprove) == 0 || p == nil {
		return false
	}
	sawRisky := false
	for _, step := range p.Steps {
		if !step.Risky {
			continue
		}
		sawRisky = true
		if !m.kindAutoApproved(string(step.Kind)) {
			return false
		}
	}
	return sawRisky
}

func (m *Manager) kindAutoApproved(kind string) bool {
	for _, g := range m.autoApprove {
		if g.Match(kind) {
			return true
		}
	}
	return false
}
