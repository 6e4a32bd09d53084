package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	all := []State{
		StateIdle, StatePlanning, StateAwaitingApproval, StateExecuting,
		StateError, StateSelfHealing, StateCompleted, StateCancelled,
	}

	legal := map[State][]State{
		StateIdle:             {StatePlanning},
		StatePlanning:         {StateAwaitingApproval, StateExecuting},
		StateAwaitingApproval: {StateExecuting, StateCancelled},
		StateExecuting:        {StateCompleted, StateError},
		StateError:            {StateSelfHealing},
		StateSelfHealing:      {StateExecuting, StateError},
		StateCompleted:        {},
		StateCancelled:        {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range legal[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, allowed(from, to), "%s -> %s", from, to)
		}
	}
}

func TestErrorToCompletedForbidden(t *testing.T) {
	assert.False(t, allowed(StateError, StateCompleted))
}

func TestTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateError.Terminal())
	assert.False(t, StateExecuting.Terminal())
}

func TestContextTransition_Valid(t *testing.T) {
	ctx := NewContext("search for something", DefaultMaxSelfHeal)
	require.Equal(t, StateIdle, ctx.State())

	before := ctx.UpdatedAt()
	require.NoError(t, ctx.Transition(StatePlanning))
	assert.Equal(t, StatePlanning, ctx.State())
	assert.False(t, ctx.UpdatedAt().Before(before))
}

func TestContextTransition_Invalid(t *testing.T) {
	ctx := NewContext("request", DefaultMaxSelfHeal)

	err := ctx.Transition(StateExecuting)
	require.Error(t, err)

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, StateIdle, invalid.From)
	assert.Equal(t, StateExecuting, invalid.To)

	// Context untouched on failure.
	assert.Equal(t, StateIdle, ctx.State())
}

func TestContextTransition_SelfHealBudget(t *testing.T) {
	ctx := NewContext("request", 1)
	require.NoError(t, ctx.Transition(StatePlanning))
	require.NoError(t, ctx.Transition(StateExecuting))
	require.NoError(t, ctx.Transition(StateError))

	// Budget remaining: ERROR -> SELF_HEALING allowed. The transition is
	// gated on the pre-attempt counter, so it must precede the increment.
	require.True(t, ctx.HealBudgetRemaining())
	require.NoError(t, ctx.Transition(StateSelfHealing))
	ctx.IncrementHealAttempt()
	require.NoError(t, ctx.Transition(StateExecuting))
	require.NoError(t, ctx.Transition(StateError))

	// Budget exhausted: ERROR is terminal now.
	assert.False(t, ctx.HealBudgetRemaining())
	err := ctx.Transition(StateSelfHealing)
	require.Error(t, err)
	assert.Equal(t, StateError, ctx.State())
}

func TestIncrementHealAttempt_NeverExceedsMax(t *testing.T) {
	ctx := NewContext("request", 2)
	for i := 0; i < 10; i++ {
		ctx.IncrementHealAttempt()
	}
	assert.Equal(t, 2, ctx.SelfHealAttempts())
}
