// Package fsm implements the execution state machine and the per-run
// execution context it governs.
//
// Every run moves through an explicit set of states; the transition table
// below is the single source of truth for which moves are legal. State is
// only ever changed through Context.Transition, so an illegal request
// fails with InvalidTransitionError and leaves the context untouched.
package fsm

import (
	"fmt"
)

// State is the lifecycle state of a run. No other values are representable
// through this package's API.
type State string

const (
	StateIdle             State = "idle"
	StatePlanning         State = "planning"
	StateAwaitingApproval State = "awaiting_approval"
	StateExecuting        State = "executing"
	StateError            State = "error"
	StateSelfHealing      State = "self_healing"
	StateCompleted        State = "completed"
	StateCancelled        State = "cancelled"
)

// transitions maps each state to the states reachable from it.
//
//	IDLE              → PLANNING
//	PLANNING          → AWAITING_APPROVAL | EXECUTING (no risky steps)
//	AWAITING_APPROVAL → EXECUTING | CANCELLED
//	EXECUTING         → COMPLETED | ERROR
//	ERROR             → SELF_HEALING (budget remaining only)
//	SELF_HEALING      → EXECUTING | ERROR
//
// COMPLETED and CANCELLED are terminal. ERROR is terminal once the
// self-heal budget is exhausted; ERROR → COMPLETED is never legal.
var transitions = map[State][]State{
	StateIdle:             {StatePlanning},
	StatePlanning:         {StateAwaitingApproval, StateExecuting},
	StateAwaitingApproval: {StateExecuting, StateCancelled},
	StateExecuting:        {StateCompleted, StateError},
	StateError:            {StateSelfHealing},
	StateSelfHealing:      {StateExecuting, StateError},
	StateCompleted:        {},
	StateCancelled:        {},
}

// Terminal reports whether no further automatic action is taken from s.
// ERROR is conditionally terminal; the context decides based on the
// remaining self-heal budget.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// InvalidTransitionError reports an attempted illegal state change. It
// always indicates a defect in the calling orchestration code, never a
// normal runtime condition.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// allowed reports whether from → to is in the transition table.
func allowed(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
