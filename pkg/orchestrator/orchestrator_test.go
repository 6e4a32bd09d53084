package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/wayfind/pkg/fsm"
	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/entrhq/wayfind/pkg/types"
)

// mockPlanner returns queued plans: the first call serves GeneratePlan, the
// rest serve SelfHeal in order.
type mockPlanner struct {
	plans    []*plan.Plan
	errs     []error
	calls    int
	healRCs  []RecoveryContext
	pageCtxs []string
}

func (m *mockPlanner) next() (*plan.Plan, error) {
	i := m.calls
	m.calls++
	var p *plan.Plan
	var err error
	if i < len(m.plans) {
		p = m.plans[i]
	}
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if p == nil && err == nil {
		err = errors.New("no plan queued")
	}
	return p, err
}

func (m *mockPlanner) GeneratePlan(_ context.Context, _, pageContext string) (*plan.Plan, error) {
	m.pageCtxs = append(m.pageCtxs, pageContext)
	return m.next()
}

func (m *mockPlanner) SelfHeal(_ context.Context, rc RecoveryContext) (*plan.Plan, error) {
	m.healRCs = append(m.healRCs, rc)
	return m.next()
}

// mockExecutor fails the steps whose global execution index (0-based,
// across all plans) is in failAt.
type mockExecutor struct {
	failAt   map[int]string
	executed []plan.Step
}

func (m *mockExecutor) Execute(_ context.Context, step plan.Step) plan.StepResult {
	index := len(m.executed)
	m.executed = append(m.executed, step)
	if msg, ok := m.failAt[index]; ok {
		return plan.Failure(errors.New(msg))
	}
	return plan.Success("")
}

type recordingEmitter struct {
	events []*types.Event
}

func (r *recordingEmitter) emit(e *types.Event) {
	r.events = append(r.events, e)
}

func (r *recordingEmitter) ofType(t types.EventType) []*types.Event {
	var out []*types.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func approveAll(_ context.Context, _ *plan.Plan) (Decision, error) { return DecisionApprove, nil }
func rejectAll(_ context.Context, _ *plan.Plan) (Decision, error)  { return DecisionReject, nil }

func safePlan(n int) *plan.Plan {
	steps := make([]plan.Step, n)
	for i := range steps {
		steps[i] = plan.NewStep(plan.KindNavigate, map[string]any{"url": fmt.Sprintf("https://example.com/%d", i)})
	}
	return plan.New(steps...)
}

func riskyPlan() *plan.Plan {
	return plan.New(
		plan.NewStep(plan.KindNavigate, map[string]any{"url": "https://shop.example"}),
		plan.NewStep(plan.KindSubmit, map[string]any{"selector": "#buy"}),
	)
}

// Scenario A: 3-step non-risky plan, all succeed.
func TestExecute_AllStepsSucceed(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(3)}}
	executor := &mockExecutor{}
	emitter := &recordingEmitter{}

	o, err := New(planner, executor, WithEmitter(emitter.emit))
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "read three pages", DeciderFunc(rejectAll))
	require.NoError(t, err)

	assert.Equal(t, fsm.StateCompleted, summary.State)
	assert.Len(t, summary.History, 3)
	assert.Equal(t, 0, summary.SelfHealAttempts)
	assert.True(t, summary.Succeeded())
	assert.Equal(t, 1.0, summary.SuccessRate())

	// Non-risky plan never consulted the decider: PLANNING -> EXECUTING
	// directly, and the reject-all decider did not cancel the run.
	assert.Empty(t, emitter.ofType(types.EventTypeApprovalRequest))
}

// Scenario B: risky plan, decider rejects.
func TestExecute_RiskyPlanRejected(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{riskyPlan()}}
	executor := &mockExecutor{}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "buy the thing", DeciderFunc(rejectAll))
	require.NoError(t, err, "rejection is a deliberate outcome, not an error")

	assert.Equal(t, fsm.StateCancelled, summary.State)
	assert.Empty(t, summary.History, "no steps execute after rejection")
	assert.Empty(t, executor.executed)
	assert.NotEmpty(t, summary.FailureReason)
}

// Scenario C: step 2 of 4 fails, recovery plan of 2 steps succeeds.
func TestExecute_SelfHealRecovers(t *testing.T) {
	recovery := plan.New(
		plan.NewStep(plan.KindWait, map[string]any{"selector": "#ready", "timeout": 10}),
		plan.NewStep(plan.KindExtract, map[string]any{"top_n": 5}),
	)
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(4), recovery}}
	executor := &mockExecutor{failAt: map[int]string{1: "timeout waiting for selector"}}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.NoError(t, err)

	assert.Equal(t, fsm.StateCompleted, summary.State)
	assert.Equal(t, 1, summary.SelfHealAttempts)

	// History: step 1 ok, step 2 failed, then the two recovered steps.
	require.Len(t, summary.History, 4)
	assert.True(t, summary.History[0].Result.OK())
	assert.False(t, summary.History[1].Result.OK())
	assert.Equal(t, "timeout waiting for selector", summary.History[1].Result.Error)
	assert.Equal(t, plan.KindWait, summary.History[2].Step.Kind)
	assert.True(t, summary.History[2].Result.OK())
	assert.True(t, summary.History[3].Result.OK())

	// Recovery context carried the goal, the failed step, and the last
	// good step.
	require.Len(t, planner.healRCs, 1)
	rc := planner.healRCs[0]
	assert.Equal(t, "goal", rc.Goal)
	assert.Equal(t, "timeout waiting for selector", rc.ErrorMessage)
	require.NotNil(t, rc.LastGoodStep)
	assert.Equal(t, plan.KindNavigate, rc.LastGoodStep.Kind)
	assert.Equal(t, 1, rc.Attempt)
}

// Scenario D: recovery executions keep failing until the budget (2) is
// exhausted.
func TestExecute_SelfHealExhausted(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(2), safePlan(1), safePlan(1)}}
	executor := &mockExecutor{failAt: map[int]string{
		0: "selector not found",
		1: "selector not found",
		2: "selector not found",
	}}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.Error(t, err)

	var exhausted *SelfHealExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 2, exhausted.Attempts)

	assert.Equal(t, fsm.StateError, summary.State)
	assert.Equal(t, 2, summary.SelfHealAttempts)
	assert.Len(t, summary.History, 3, "failed attempts stay in the history")
}

// The ERROR -> SELF_HEALING gate checks the budget before the attempt is
// consumed, so every budgeted attempt actually enters SELF_HEALING. With a
// budget of 1 the single recovery plan must be requested and executed
// before the run ends exhausted.
func TestExecute_LastBudgetedAttemptRuns(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(1), safePlan(1)}}
	executor := &mockExecutor{failAt: map[int]string{
		0: "selector not found",
		1: "selector not found",
	}}
	emitter := &recordingEmitter{}

	o, err := New(planner, executor, WithMaxSelfHeal(1), WithEmitter(emitter.emit))
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.Error(t, err)

	var exhausted *SelfHealExhaustedError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	assert.Equal(t, 1, exhausted.Attempts)

	var invalid *fsm.InvalidTransitionError
	assert.False(t, errors.As(err, &invalid))

	// The recovery plan was both requested and executed.
	require.Len(t, planner.healRCs, 1)
	assert.Len(t, executor.executed, 2)
	assert.Len(t, emitter.ofType(types.EventTypeSelfHealStart), 1)
	assert.Equal(t, 1, summary.SelfHealAttempts)
}

func TestExecute_PlanningFailure(t *testing.T) {
	planner := &mockPlanner{errs: []error{errors.New("model unavailable")}}
	o, err := New(planner, &mockExecutor{})
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.Error(t, err)

	var planErr *PlanningError
	require.True(t, errors.As(err, &planErr))
	assert.False(t, planErr.Recovery)

	// Planning failures do not enter ERROR or self-heal.
	assert.Equal(t, fsm.StatePlanning, summary.State)
	assert.Equal(t, 0, summary.SelfHealAttempts)
	assert.Empty(t, summary.History)
}

func TestExecute_EmptyPlanIsPlanningError(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{plan.New()}}
	o, err := New(planner, &mockExecutor{})
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.Error(t, err)

	var planErr *PlanningError
	assert.True(t, errors.As(err, &planErr))
	assert.Equal(t, fsm.StatePlanning, summary.State)
}

func TestExecute_RecoveryPlanningFailureStops(t *testing.T) {
	planner := &mockPlanner{
		plans: []*plan.Plan{safePlan(1)},
		errs:  []error{nil, errors.New("model unavailable")},
	}
	executor := &mockExecutor{failAt: map[int]string{0: "click failed"}}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.Error(t, err)

	var planErr *PlanningError
	require.True(t, errors.As(err, &planErr))
	assert.True(t, planErr.Recovery)

	// Budget counted as used, run stops without a second attempt.
	assert.Equal(t, fsm.StateError, summary.State)
	assert.Equal(t, 1, summary.SelfHealAttempts)
	assert.Equal(t, 2, planner.calls)
}

func TestExecute_RiskyPlanApproved(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{riskyPlan()}}
	executor := &mockExecutor{}
	emitter := &recordingEmitter{}

	o, err := New(planner, executor, WithEmitter(emitter.emit))
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "buy the thing", DeciderFunc(approveAll))
	require.NoError(t, err)

	assert.Equal(t, fsm.StateCompleted, summary.State)
	assert.Len(t, summary.History, 2)
	assert.Len(t, emitter.ofType(types.EventTypeApprovalRequest), 1)
}

// Risk is rechecked on every plan: a recovery plan introducing a risky
// step triggers a second approval gate, and rejection ends the run.
func TestExecute_RecoveryPlanReGated(t *testing.T) {
	recovery := riskyPlan()
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(2), recovery}}
	executor := &mockExecutor{failAt: map[int]string{1: "timeout"}}

	decisions := 0
	decider := DeciderFunc(func(_ context.Context, p *plan.Plan) (Decision, error) {
		decisions++
		return DecisionReject, nil
	})

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", decider)
	require.Error(t, err)

	// Initial plan was not risky, so the only decision is the recovery
	// plan's gate.
	assert.Equal(t, 1, decisions)
	assert.Equal(t, fsm.StateError, summary.State)
	assert.Contains(t, summary.FailureReason, "rejected")
}

func TestExecute_NilDeciderAutoApproves(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{riskyPlan()}}
	executor := &mockExecutor{}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.NoError(t, err)
	assert.Equal(t, fsm.StateCompleted, summary.State)
}

func TestExecute_StepsRunStrictlyInOrder(t *testing.T) {
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(5)}}
	executor := &mockExecutor{}

	o, err := New(planner, executor)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), "goal", nil)
	require.NoError(t, err)

	require.Len(t, executor.executed, 5)
	for i, step := range executor.executed {
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), step.String("url"))
		assert.Equal(t, step.Params, summary.History[i].Step.Params, "history order matches execution order")
	}
}

func TestExecute_EveryTransitionIsLegal(t *testing.T) {
	recovery := safePlan(1)
	planner := &mockPlanner{plans: []*plan.Plan{safePlan(3), recovery}}
	executor := &mockExecutor{failAt: map[int]string{1: "boom"}}
	emitter := &recordingEmitter{}

	o, err := New(planner, executor, WithEmitter(emitter.emit))
	require.NoError(t, err)

	_, err = o.Execute(context.Background(), "goal", nil)
	require.NoError(t, err)

	// Exactly one terminal state is reached per run.
	var terminal int
	for _, e := range emitter.ofType(types.EventTypeStateChange) {
		to := fsm.State(e.Metadata["to"].(string))
		if to.Terminal() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestNew_RequiresPorts(t *testing.T) {
	_, err := New(nil, &mockExecutor{})
	assert.Error(t, err)

	_, err = New(&mockPlanner{}, nil)
	assert.Error(t, err)
}
