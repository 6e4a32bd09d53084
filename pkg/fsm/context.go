package fsm

import (
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/wayfind/pkg/plan"
)

// DefaultMaxSelfHeal is the default self-heal attempt budget.
const DefaultMaxSelfHeal = 2

// HistoryEntry pairs an executed step with its recorded result.
type HistoryEntry struct {
	Step   plan.Step
	Result plan.StepResult
}

// Context is the single mutable record of a run: request, state, active
// plan, execution history, and the self-heal counter. Exactly one Context
// exists per request and it is exclusively owned by the orchestrator, so
// it carries no internal locking.
type Context struct {
	id      string
	request string
	state   State

	plan   *plan.Plan
	cursor int

	history          []HistoryEntry
	selfHealAttempts int
	maxSelfHeal      int
	lastError        string

	createdAt time.Time
	updatedAt time.Time
}

// NewContext creates a context for the given request in StateIdle.
func NewContext(request string, maxSelfHeal int) *Context {
	if maxSelfHeal < 0 {
		maxSelfHeal = DefaultMaxSelfHeal
	}
	now := time.Now()
	return &Context{
		id:          uuid.New().String(),
		request:     request,
		state:       StateIdle,
		maxSelfHeal: maxSelfHeal,
		createdAt:   now,
		updatedAt:   now,
	}
}

// ID returns the run identifier.
func (c *Context) ID() string { return c.id }

// Request returns the original request text.
func (c *Context) Request() string { return c.request }

// State returns the current state.
func (c *Context) State() State { return c.state }

// CreatedAt returns the creation timestamp.
func (c *Context) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the timestamp of the last successful transition or
// mutation.
func (c *Context) UpdatedAt() time.Time { return c.updatedAt }

// Transition moves the context to the target state. An illegal move fails
// with *InvalidTransitionError and leaves the context unchanged; a legal
// move is the only way the state field ever changes.
func (c *Context) Transition(to State) error {
	if !allowed(c.state, to) {
		return &InvalidTransitionError{From: c.state, To: to}
	}
	if to == StateSelfHealing && c.selfHealAttempts >= c.maxSelfHeal {
		// Budget exhausted: ERROR is terminal from here on.
		return &InvalidTransitionError{From: c.state, To: to}
	}
	c.state = to
	c.updatedAt = time.Now()
	return nil
}

// SetPlan replaces the active plan wholesale and resets the step cursor.
// Used both for the initial plan and for recovery plans.
func (c *Context) SetPlan(p *plan.Plan) {
	c.plan = p
	c.cursor = 0
	c.updatedAt = time.Now()
}

// Plan returns the active plan (nil before planning completes).
func (c *Context) Plan() *plan.Plan { return c.plan }

// NextStep returns the next unexecuted step of the active plan. The cursor
// never regresses within a plan: once a step has a recorded successful
// result it is never offered again.
func (c *Context) NextStep() (plan.Step, bool) {
	if c.plan == nil || c.cursor >= c.plan.Len() {
		return plan.Step{}, false
	}
	return c.plan.Steps[c.cursor], true
}

// RecordStep appends the (step, result) pair to the history and advances
// the cursor past the step. The history is append-only: entries are never
// removed or mutated, including failed attempts.
func (c *Context) RecordStep(step plan.Step, result plan.StepResult) {
	c.history = append(c.history, HistoryEntry{Step: step, Result: result})
	c.cursor++
	c.updatedAt = time.Now()
}

// History returns a copy of the execution history in execution order.
func (c *Context) History() []HistoryEntry {
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// HistoryLen returns the number of recorded entries.
func (c *Context) HistoryLen() int { return len(c.history) }

// LastGoodStep returns the most recent successfully executed step, for
// recovery planning.
func (c *Context) LastGoodStep() (plan.Step, bool) {
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].Result.OK() {
			return c.history[i].Step, true
		}
	}
	return plan.Step{}, false
}

// SetLastError records the most recent error description.
func (c *Context) SetLastError(msg string) {
	c.lastError = msg
	c.updatedAt = time.Now()
}

// LastError returns the most recent error description.
func (c *Context) LastError() string { return c.lastError }

// HealBudgetRemaining reports whether another self-heal attempt may be
// started.
func (c *Context) HealBudgetRemaining() bool {
	return c.selfHealAttempts < c.maxSelfHeal
}

// IncrementHealAttempt consumes one unit of the self-heal budget. The
// counter is monotonically non-decreasing and never exceeds the configured
// maximum.
func (c *Context) IncrementHealAttempt() {
	if c.selfHealAttempts < c.maxSelfHeal {
		c.selfHealAttempts++
		c.updatedAt = time.Now()
	}
}

// SelfHealAttempts returns the number of self-heal attempts used.
func (c *Context) SelfHealAttempts() int { return c.selfHealAttempts }

// MaxSelfHeal returns the configured self-heal budget.
func (c *Context) MaxSelfHeal() int { return c.maxSelfHeal }
