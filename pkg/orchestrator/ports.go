package orchestrator

import (
	"context"

	"github.com/entrhq/wayfind/pkg/fsm"
	"github.com/entrhq/wayfind/pkg/plan"
)

// Planner generates action plans from natural-language goals. It is an
// external collaborator: the orchestrator suspends at each call and resumes
// only when the planner returns.
type Planner interface {
	// GeneratePlan turns a goal into a plan. pageContext optionally carries
	// a snapshot of the current page state to ground the plan in reality.
	// A nil error implies a syntactically valid plan; emptiness is checked
	// by the orchestrator and treated as a planning failure.
	GeneratePlan(ctx context.Context, goal, pageContext string) (*plan.Plan, error)

	// SelfHeal generates a recovery plan replacing the remainder of a
	// failed plan. The recovery plan is trusted the same as an original
	// plan: it passes through risk classification again.
	SelfHeal(ctx context.Context, rc RecoveryContext) (*plan.Plan, error)
}

// RecoveryContext carries everything the planner needs to recover from an
// execution failure without losing sight of the original goal.
type RecoveryContext struct {
	// Goal is the original request text. It never changes across recovery
	// attempts.
	Goal string

	// ErrorMessage describes the failure that triggered recovery.
	ErrorMessage string

	// FailedStep is the step whose result was failed.
	FailedStep plan.Step

	// LastGoodStep is the most recent successfully executed step, if any.
	LastGoodStep *plan.Step

	// History is the full ordered execution history so far, failed
	// attempts included.
	History []fsm.HistoryEntry

	// PageContext is a fresh snapshot of the page state, when available.
	PageContext string

	// Attempt is the 1-based number of this recovery attempt.
	Attempt int
}

// Executor performs a single step against the live session. Failures never
// cross the boundary as errors: they surface as a failed StepResult with a
// populated error description, including timeouts.
type Executor interface {
	Execute(ctx context.Context, step plan.Step) plan.StepResult
}

// Snapshotter is an optional capability of an Executor: a textual snapshot
// of the current page state, fed to the planner for initial and recovery
// planning.
type Snapshotter interface {
	PageContext(ctx context.Context) (string, error)
}

// Decision is the outcome of an approval request.
type Decision string

const (
	// DecisionApprove allows the plan to execute.
	DecisionApprove Decision = "approve"

	// DecisionReject cancels the run before any step executes.
	DecisionReject Decision = "reject"
)

// Decider answers approval requests for risky plans. The call is blocking
// from the orchestrator's perspective; callers are expected to bound it
// themselves (see the approval package's timeout wrapper) — the core
// imposes no internal timeout.
type Decider interface {
	Decide(ctx context.Context, p *plan.Plan) (Decision, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, p *plan.Plan) (Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, p *plan.Plan) (Decision, error) {
	return f(ctx, p)
}
