package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_UnknownKindFailsAsResult(t *testing.T) {
	e := NewExecutor(nil)

	result := e.Execute(context.Background(), plan.NewStep(plan.Kind("teleport"), nil))
	assert.False(t, result.OK())
	assert.Contains(t, result.Error, `no handler registered for action kind "teleport"`)
}

func TestExecute_CancelledContext(t *testing.T) {
	e := NewExecutor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Execute(ctx, plan.NewStep(plan.KindClick, map[string]any{"selector": "#x"}))
	assert.False(t, result.OK())
	assert.Contains(t, result.Error, "context canceled")
}

func TestRegisterHandler_ExtensionKind(t *testing.T) {
	e := NewExecutor(nil)
	var seen plan.Step
	e.RegisterHandler(plan.Kind("screenshot"), func(_ context.Context, _ *Session, step plan.Step) (string, error) {
		seen = step
		return "shot.png", nil
	})

	step := plan.NewStep(plan.Kind("screenshot"), map[string]any{"path": "shot.png"})
	result := e.Execute(context.Background(), step)
	require.True(t, result.OK())
	assert.Equal(t, "shot.png", result.Value)
	assert.Equal(t, "shot.png", seen.String("path"))
}

func TestRegisterHandler_OverridesBuiltin(t *testing.T) {
	e := NewExecutor(nil)
	e.RegisterHandler(plan.KindClick, func(_ context.Context, _ *Session, _ plan.Step) (string, error) {
		return "", errors.New("clicks disabled")
	})

	result := e.Execute(context.Background(), plan.NewStep(plan.KindClick, map[string]any{"selector": "#x"}))
	assert.False(t, result.OK())
	assert.Equal(t, "clicks disabled", result.Error)
}

func TestKinds_IncludesBuiltins(t *testing.T) {
	e := NewExecutor(nil)
	kinds := e.Kinds()
	assert.Contains(t, kinds, plan.KindNavigate)
	assert.Contains(t, kinds, plan.KindSubmit)
	assert.Contains(t, kinds, plan.KindFindBest)
	assert.Contains(t, kinds, plan.KindAddToCart)
	assert.Len(t, kinds, 9)
}
