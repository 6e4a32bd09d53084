// Package plan defines the action plan model shared by the planner,
// orchestrator, and executor.
//
// A plan is an ordered sequence of steps. Plans are immutable: when the
// planner produces a new plan (including recovery plans) the old one is
// replaced wholesale, never patched in place.
package plan

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the type of a single browser action.
type Kind string

// Built-in action kinds. The set is open: kinds outside this list are
// carried through the plan unchanged and dispatched via the executor's
// handler registry.
const (
	KindNavigate Kind = "navigate"
	KindClick    Kind = "click"
	KindType     Kind = "type"
	KindScroll   Kind = "scroll"
	KindWait     Kind = "wait"
	KindExtract  Kind = "extract"
	KindSubmit   Kind = "submit"
)

// Smart action kinds. These compose the primitives above into higher-level
// behaviors; find_best and add_to_cart are served by the executor's
// built-in handlers, auto_login and human_pause need host-provided state
// (a credential store, a pause prompt) and are registered by the caller.
const (
	KindFindBest   Kind = "find_best"
	KindAddToCart  Kind = "add_to_cart"
	KindAutoLogin  Kind = "auto_login"
	KindHumanPause Kind = "human_pause"
)

// Step is one unit of work in a plan. Steps are immutable once created;
// Risky is derived by the risk classifier and is never part of the wire
// format.
type Step struct {
	Kind   Kind
	Params map[string]any
	Risky  bool
}

// NewStep creates a step with a copy of the given parameters.
func NewStep(kind Kind, params map[string]any) Step {
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return Step{Kind: kind, Params: copied}
}

// String returns a parameter as a string, or "" if absent or not a string.
func (s Step) String(name string) string {
	v, ok := s.Params[name]
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Int returns a parameter as an int. JSON numbers decode as float64, so
// both are accepted.
func (s Step) Int(name string) (int, bool) {
	switch v := s.Params[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Bool returns a parameter as a bool, defaulting to false.
func (s Step) Bool(name string) bool {
	v, _ := s.Params[name].(bool)
	return v
}

// Timeout returns the step's timeout parameter (seconds on the wire, as in
// the planner prompt) as a duration, or def if unset.
func (s Step) Timeout(def time.Duration) time.Duration {
	if secs, ok := s.Int("timeout"); ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Describe returns a short human-readable summary of the step, for
// rendering plans and logging.
func (s Step) Describe() string {
	switch {
	case s.String("url") != "":
		return fmt.Sprintf("%s %s", s.Kind, s.String("url"))
	case s.String("selector") != "":
		return fmt.Sprintf("%s %s", s.Kind, s.String("selector"))
	default:
		return string(s.Kind)
	}
}

// MarshalJSON encodes the step in the wire format: a flat object with the
// kind beside the parameters, e.g. {"kind":"navigate","url":"https://x"}.
func (s Step) MarshalJSON() ([]byte, error) {
	record := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		record[k] = v
	}
	record["kind"] = string(s.Kind)
	return json.Marshal(record)
}

// UnmarshalJSON decodes a flat wire record into a step. Everything except
// "kind" is treated as a parameter.
func (s *Step) UnmarshalJSON(data []byte) error {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	kind, ok := record["kind"].(string)
	if !ok || kind == "" {
		return fmt.Errorf("step record missing 'kind' field")
	}
	delete(record, "kind")
	s.Kind = Kind(kind)
	s.Params = record
	s.Risky = false
	return nil
}

// Plan is an ordered sequence of steps. Order defines execution order.
type Plan struct {
	Steps []Step
}

// New creates a plan from the given steps.
func New(steps ...Step) *Plan {
	return &Plan{Steps: steps}
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// Encode serializes the plan to its canonical wire format, a JSON array of
// flat step records.
func (p *Plan) Encode() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Steps)
}

// Decode parses a plan from its wire format. An empty array decodes to an
// empty plan; validity (non-emptiness, required parameters) is the
// planner's concern.
func Decode(data []byte) (*Plan, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &Plan{Steps: steps}, nil
}

// Result status values for executed steps.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// StepResult is the outcome of executing one step. Results are append-only
// once recorded in the execution history.
type StepResult struct {
	Status    string    `json:"status"`
	Value     string    `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool {
	return r.Status == StatusSuccess
}

// Success builds a successful result, optionally carrying an extracted
// value.
func Success(value string) StepResult {
	return StepResult{Status: StatusSuccess, Value: value, Timestamp: time.Now()}
}

// Failure builds a failed result with an error description. The executor
// boundary never raises: all failures surface this way.
func Failure(err error) StepResult {
	return StepResult{Status: StatusFailed, Error: err.Error(), Timestamp: time.Now()}
}
