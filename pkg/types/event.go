// Package types defines the event model shared between the orchestrator
// and its consumers (CLI output, logging).
package types

import "time"

// EventType defines the type of event emitted during a run.
type EventType string

const (
	EventTypeStateChange     EventType = "state_change"     // EventTypeStateChange indicates a state machine transition.
	EventTypePlanGenerated   EventType = "plan_generated"   // EventTypePlanGenerated indicates the planner returned a plan.
	EventTypeApprovalRequest EventType = "approval_request" // EventTypeApprovalRequest indicates a risky plan awaits a decision.
	EventTypeApprovalResult  EventType = "approval_result"  // EventTypeApprovalResult indicates the decider answered.
	EventTypeStepStart       EventType = "step_start"       // EventTypeStepStart indicates a step is about to execute.
	EventTypeStepResult      EventType = "step_result"      // EventTypeStepResult indicates a step finished.
	EventTypeSelfHealStart   EventType = "self_heal_start"  // EventTypeSelfHealStart indicates a recovery attempt began.
	EventTypeRunComplete     EventType = "run_complete"     // EventTypeRunComplete indicates the run reached a terminal outcome.
	EventTypeError           EventType = "error"            // EventTypeError indicates a pipeline-level error.
)

// Event is a single occurrence during a run.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Message is a short human-readable description.
	Message string

	// Metadata holds optional structured details about the event.
	Metadata map[string]any
}

// Emitter is a callback receiving events as they occur. Emitters must be
// fast and must not block; the orchestrator calls them inline.
type Emitter func(event *Event)

// NopEmitter discards all events.
func NopEmitter(*Event) {}

func newEvent(eventType EventType, message string, metadata map[string]any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Message:   message,
		Metadata:  metadata,
	}
}

// NewStateChangeEvent builds an event for a state machine transition.
func NewStateChangeEvent(from, to string) *Event {
	return newEvent(EventTypeStateChange, from+" -> "+to, map[string]any{
		"from": from,
		"to":   to,
	})
}

// NewPlanGeneratedEvent builds an event for a freshly generated plan.
func NewPlanGeneratedEvent(steps int, recovery bool) *Event {
	msg := "plan generated"
	if recovery {
		msg = "recovery plan generated"
	}
	return newEvent(EventTypePlanGenerated, msg, map[string]any{
		"steps":    steps,
		"recovery": recovery,
	})
}

// NewApprovalRequestEvent builds an event for a pending approval decision.
func NewApprovalRequestEvent(riskySteps int) *Event {
	return newEvent(EventTypeApprovalRequest, "plan requires approval", map[string]any{
		"risky_steps": riskySteps,
	})
}

// NewApprovalResultEvent builds an event for an approval outcome.
func NewApprovalResultEvent(approved bool) *Event {
	msg := "plan approved"
	if !approved {
		msg = "plan rejected"
	}
	return newEvent(EventTypeApprovalResult, msg, map[string]any{
		"approved": approved,
	})
}

// NewStepStartEvent builds an event announcing step execution.
func NewStepStartEvent(index, total int, description string) *Event {
	return newEvent(EventTypeStepStart, description, map[string]any{
		"index": index,
		"total": total,
	})
}

// NewStepResultEvent builds an event for a recorded step result.
func NewStepResultEvent(index int, status, errText string) *Event {
	return newEvent(EventTypeStepResult, status, map[string]any{
		"index":  index,
		"status": status,
		"error":  errText,
	})
}

// NewSelfHealStartEvent builds an event for a recovery attempt.
func NewSelfHealStartEvent(attempt, max int) *Event {
	return newEvent(EventTypeSelfHealStart, "attempting recovery", map[string]any{
		"attempt": attempt,
		"max":     max,
	})
}

// NewRunCompleteEvent builds an event for the terminal outcome of a run.
func NewRunCompleteEvent(state string, historyLen int) *Event {
	return newEvent(EventTypeRunComplete, "run finished: "+state, map[string]any{
		"state":   state,
		"history": historyLen,
	})
}

// NewErrorEvent builds an event for a pipeline-level error.
func NewErrorEvent(err error) *Event {
	return newEvent(EventTypeError, err.Error(), nil)
}
