package orchestrator

import (
	"fmt"

	"github.com/entrhq/wayfind/pkg/plan"
)

// PlanningError reports that the planner produced no plan, an empty plan,
// or malformed output. Planning failures are not execution failures: they
// are never retried by the self-heal path and surface to the caller
// immediately.
type PlanningError struct {
	Recovery bool
	Err      error
}

func (e *PlanningError) Error() string {
	if e.Recovery {
		return fmt.Sprintf("recovery planning failed: %v", e.Err)
	}
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ActionExecutionError reports a single failed step. It is recovered
// locally through the self-heal path, bounded by the configured budget;
// it only reaches the caller inside a SelfHealExhaustedError.
type ActionExecutionError struct {
	StepIndex int
	Step      plan.Step
	Message   string
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %s", e.StepIndex+1, e.Step.Describe(), e.Message)
}

// SelfHealExhaustedError reports that the self-heal budget was consumed
// without reaching completion. Fatal for the run; the Summary carries the
// full history for diagnosis.
type SelfHealExhaustedError struct {
	Attempts  int
	LastError string
}

func (e *SelfHealExhaustedError) Error() string {
	return fmt.Sprintf("self-heal budget exhausted after %d attempts: %s", e.Attempts, e.LastError)
}
