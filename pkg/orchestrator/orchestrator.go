// Package orchestrator drives the full request pipeline: plan, approve,
// execute, and — on execution failure — bounded self-healing recovery.
//
// Control flow is linear and owned entirely by the Orchestrator. All other
// components are passive: the state machine validates transitions, the
// classifier marks risky steps, and the planner/executor/decider ports are
// blocking boundaries the pipeline suspends at. One orchestrator instance
// processes one request to completion at a time; concurrent requests need
// one orchestrator, one execution context, and one isolated session each.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/wayfind/pkg/fsm"
	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/entrhq/wayfind/pkg/risk"
	"github.com/entrhq/wayfind/pkg/types"
)

// Logger is the minimal logging surface the orchestrator needs. The
// logging package's Logger satisfies it.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Orchestrator sequences the pipeline phases over an execution context.
type Orchestrator struct {
	planner     Planner
	executor    Executor
	classifier  *risk.Classifier
	maxSelfHeal int
	emit        types.Emitter
	logger      Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier sets the risk classifier. Defaults to risk.Default().
func WithClassifier(c *risk.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithMaxSelfHeal sets the self-heal attempt budget. Defaults to
// fsm.DefaultMaxSelfHeal.
func WithMaxSelfHeal(max int) Option {
	return func(o *Orchestrator) {
		o.maxSelfHeal = max
	}
}

// WithEmitter sets the event emitter receiving pipeline progress events.
func WithEmitter(emit types.Emitter) Option {
	return func(o *Orchestrator) {
		o.emit = emit
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over the given planner and executor ports.
func New(planner Planner, executor Executor, opts ...Option) (*Orchestrator, error) {
	if planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}

	o := &Orchestrator{
		planner:     planner,
		executor:    executor,
		classifier:  risk.Default(),
		maxSelfHeal: fsm.DefaultMaxSelfHeal,
		emit:        types.NopEmitter,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Execute runs the full pipeline for one request and returns a Summary
// with the complete history. The returned error is non-nil for planning
// failures, exhausted self-heal budgets, and internal contract violations;
// a rejected approval is a deliberate CANCELLED outcome, not an error.
func (o *Orchestrator) Execute(ctx context.Context, request string, decider Decider) (*Summary, error) {
	started := time.Now()
	ectx := fsm.NewContext(request, o.maxSelfHeal)
	o.logger.Infof("run %s started: %q", ectx.ID(), request)

	// Plan phase.
	if err := o.transition(ectx, fsm.StatePlanning); err != nil {
		return o.summarize(ectx, started, err.Error()), err
	}

	p, err := o.generateInitialPlan(ctx, request)
	if err != nil {
		// Planning failures are not execution failures: no ERROR state, no
		// self-heal. The run ends recorded as a failed PLANNING phase.
		planErr := &PlanningError{Err: err}
		o.logger.Errorf("run %s: %v", ectx.ID(), planErr)
		o.emit(types.NewErrorEvent(planErr))
		return o.summarize(ectx, started, planErr.Error()), planErr
	}
	p = o.classifier.Annotate(p)
	ectx.SetPlan(p)
	o.emit(types.NewPlanGeneratedEvent(p.Len(), false))
	o.logger.Infof("run %s: plan with %d steps", ectx.ID(), p.Len())

	// Approval phase. Non-risky plans go straight to EXECUTING.
	if o.classifier.PlanRisky(p) {
		if err := o.transition(ectx, fsm.StateAwaitingApproval); err != nil {
			return o.summarize(ectx, started, err.Error()), err
		}
		decision, err := o.decide(ctx, decider, p)
		if err != nil {
			o.logger.Warnf("run %s: approval decider failed: %v", ectx.ID(), err)
			decision = DecisionReject
		}
		if decision != DecisionApprove {
			if err := o.transition(ectx, fsm.StateCancelled); err != nil {
				return o.summarize(ectx, started, err.Error()), err
			}
			o.emit(types.NewRunCompleteEvent(string(fsm.StateCancelled), ectx.HistoryLen()))
			o.logger.Infof("run %s cancelled: plan rejected", ectx.ID())
			return o.summarize(ectx, started, "plan rejected by approval decider"), nil
		}
	}
	if err := o.transition(ectx, fsm.StateExecuting); err != nil {
		return o.summarize(ectx, started, err.Error()), err
	}

	// Execution with bounded self-healing.
	var stopErr error
	for {
		execErr, err := o.runSteps(ctx, ectx)
		if err != nil {
			return o.summarize(ectx, started, err.Error()), err
		}
		if execErr == nil {
			if err := o.transition(ectx, fsm.StateCompleted); err != nil {
				return o.summarize(ectx, started, err.Error()), err
			}
			o.emit(types.NewRunCompleteEvent(string(fsm.StateCompleted), ectx.HistoryLen()))
			o.logger.Infof("run %s completed: %d steps executed", ectx.ID(), ectx.HistoryLen())
			return o.summarize(ectx, started, ""), nil
		}

		if !ectx.HealBudgetRemaining() {
			stopErr = &SelfHealExhaustedError{
				Attempts:  ectx.SelfHealAttempts(),
				LastError: ectx.LastError(),
			}
			break
		}

		var err2 error
		stopErr, err2 = o.selfHeal(ctx, ectx, decider, execErr)
		if err2 != nil {
			o.emit(types.NewErrorEvent(err2))
			return o.summarize(ectx, started, err2.Error()), err2
		}
		if stopErr != nil {
			break
		}
	}

	o.emit(types.NewRunCompleteEvent(string(fsm.StateError), ectx.HistoryLen()))
	o.logger.Errorf("run %s failed: %v", ectx.ID(), stopErr)
	return o.summarize(ectx, started, stopErr.Error()), stopErr
}

// generateInitialPlan calls the planner with the request and, when the
// executor can provide one, a snapshot of the current page state.
func (o *Orchestrator) generateInitialPlan(ctx context.Context, request string) (*plan.Plan, error) {
	p, err := o.planner.GeneratePlan(ctx, request, o.snapshot(ctx))
	if err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, errors.New("planner returned an empty plan")
	}
	return p, nil
}

// snapshot asks the executor for its page context when it supports it.
// Snapshot failures degrade to planning without context.
func (o *Orchestrator) snapshot(ctx context.Context) string {
	snapshotter, ok := o.executor.(Snapshotter)
	if !ok {
		return ""
	}
	pageContext, err := snapshotter.PageContext(ctx)
	if err != nil {
		o.logger.Warnf("page snapshot failed: %v", err)
		return ""
	}
	return pageContext
}

// decide invokes the approval decider. A nil decider auto-approves with a
// warning, matching the behavior of running without an approval callback.
func (o *Orchestrator) decide(ctx context.Context, decider Decider, p *plan.Plan) (Decision, error) {
	var riskySteps int
	for _, step := range p.Steps {
		if step.Risky {
			riskySteps++
		}
	}
	o.emit(types.NewApprovalRequestEvent(riskySteps))

	if decider == nil {
		o.logger.Warnf("no approval decider configured, auto-approving risky plan")
		o.emit(types.NewApprovalResultEvent(true))
		return DecisionApprove, nil
	}

	decision, err := decider.Decide(ctx, p)
	if err != nil {
		return DecisionReject, err
	}
	o.emit(types.NewApprovalResultEvent(decision == DecisionApprove))
	return decision, nil
}

// runSteps executes the active plan from the context's cursor, strictly in
// order, recording every result. It stops at the first failure, moving the
// machine to ERROR. The second return value reports contract violations.
func (o *Orchestrator) runSteps(ctx context.Context, ectx *fsm.Context) (*ActionExecutionError, error) {
	for {
		step, ok := ectx.NextStep()
		if !ok {
			return nil, nil
		}
		index := ectx.HistoryLen()
		o.emit(types.NewStepStartEvent(index, ectx.Plan().Len(), step.Describe()))

		result := o.executor.Execute(ctx, step)
		ectx.RecordStep(step, result)
		o.emit(types.NewStepResultEvent(index, result.Status, result.Error))

		if !result.OK() {
			ectx.SetLastError(result.Error)
			if err := o.transition(ectx, fsm.StateError); err != nil {
				return nil, err
			}
			o.logger.Warnf("run %s: step %d failed: %s", ectx.ID(), index+1, result.Error)
			return &ActionExecutionError{StepIndex: index, Step: step, Message: result.Error}, nil
		}
	}
}

// selfHeal consumes one unit of the budget and attempts to replace the
// failed plan with a recovery plan. It returns (nil, nil) when execution
// may resume, (stopErr, nil) when the run ends in ERROR with the given
// final error, and a non-nil second error for contract violations.
//
// Recovery plans pass through the risk classifier again; a recovery plan
// that is risky consults the decider while the machine is still in
// SELF_HEALING, and a rejection is treated as a failed recovery.
func (o *Orchestrator) selfHeal(ctx context.Context, ectx *fsm.Context, decider Decider, execErr *ActionExecutionError) (error, error) {
	if err := o.transition(ectx, fsm.StateSelfHealing); err != nil {
		return nil, err
	}
	ectx.IncrementHealAttempt()
	o.emit(types.NewSelfHealStartEvent(ectx.SelfHealAttempts(), ectx.MaxSelfHeal()))
	o.logger.Infof("run %s: self-heal attempt %d/%d", ectx.ID(), ectx.SelfHealAttempts(), ectx.MaxSelfHeal())

	rc := RecoveryContext{
		Goal:         ectx.Request(),
		ErrorMessage: execErr.Message,
		FailedStep:   execErr.Step,
		History:      ectx.History(),
		PageContext:  o.snapshot(ctx),
		Attempt:      ectx.SelfHealAttempts(),
	}
	if last, ok := ectx.LastGoodStep(); ok {
		rc.LastGoodStep = &last
	}

	recovery, healErr := o.planner.SelfHeal(ctx, rc)
	if healErr == nil && recovery.Len() == 0 {
		healErr = errors.New("planner returned an empty recovery plan")
	}
	if healErr != nil {
		// Recovery planning itself failed: back to ERROR, budget spent,
		// and the run stops even if budget remains.
		planErr := &PlanningError{Recovery: true, Err: healErr}
		ectx.SetLastError(planErr.Error())
		if err := o.transition(ectx, fsm.StateError); err != nil {
			return nil, err
		}
		o.logger.Errorf("run %s: recovery planning failed: %v", ectx.ID(), healErr)
		return planErr, nil
	}

	recovery = o.classifier.Annotate(recovery)
	o.emit(types.NewPlanGeneratedEvent(recovery.Len(), true))

	if o.classifier.PlanRisky(recovery) {
		decision, err := o.decide(ctx, decider, recovery)
		if err != nil || decision != DecisionApprove {
			ectx.SetLastError("recovery plan rejected by approval decider")
			if terr := o.transition(ectx, fsm.StateError); terr != nil {
				return nil, terr
			}
			o.logger.Warnf("run %s: recovery plan rejected", ectx.ID())
			return &SelfHealExhaustedError{
				Attempts:  ectx.SelfHealAttempts(),
				LastError: ectx.LastError(),
			}, nil
		}
	}

	ectx.SetPlan(recovery)
	if err := o.transition(ectx, fsm.StateExecuting); err != nil {
		return nil, err
	}
	return nil, nil
}

// transition applies a state change and emits the corresponding event. Any
// failure here is an InvalidTransition contract violation: a defect in the
// orchestrator, always fatal.
func (o *Orchestrator) transition(ectx *fsm.Context, to fsm.State) error {
	from := ectx.State()
	if err := ectx.Transition(to); err != nil {
		o.logger.Errorf("run %s: %v", ectx.ID(), err)
		return err
	}
	o.emit(types.NewStateChangeEvent(string(from), string(to)))
	return nil
}
