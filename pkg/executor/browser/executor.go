package browser

import (
	"context"
	"fmt"

	"github.com/entrhq/wayfind/pkg/plan"
)

// Executor dispatches plan steps to action handlers over a browser
// session. It satisfies the orchestrator's Executor and Snapshotter ports.
//
// Execution failures never cross the boundary as Go errors: every failure
// is reported as a failed step result so the orchestrator can decide
// whether to self-heal.
type Executor struct {
	session  *Session
	handlers map[plan.Kind]Handler
}

// NewExecutor creates an executor over an open session with the built-in
// action handlers registered.
func NewExecutor(session *Session) *Executor {
	return &Executor{
		session:  session,
		handlers: builtinHandlers(),
	}
}

// RegisterHandler registers a handler for an action kind, replacing any
// existing one. This is how extension kinds beyond the built-ins are
// supported.
func (e *Executor) RegisterHandler(kind plan.Kind, h Handler) {
	e.handlers[kind] = h
}

// Kinds returns the registered action kinds.
func (e *Executor) Kinds() []plan.Kind {
	kinds := make([]plan.Kind, 0, len(e.handlers))
	for k := range e.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Execute runs one step and reports its outcome.
func (e *Executor) Execute(ctx context.Context, step plan.Step) plan.StepResult {
	if err := ctx.Err(); err != nil {
		return plan.Failure(err)
	}

	handler, ok := e.handlers[step.Kind]
	if !ok {
		return plan.Failure(fmt.Errorf("no handler registered for action kind %q", step.Kind))
	}

	value, err := handler(ctx, e.session, step)
	if err != nil {
		return plan.Failure(err)
	}
	return plan.Success(value)
}

// PageContext returns a compact description of the current page for
// planning: URL, title, and the interactive elements with recommended
// selectors.
func (e *Executor) PageContext(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := e.session.Content()
	if err != nil {
		return "", err
	}
	return describePage(e.session.URL(), e.session.Title(), content)
}
