package planner

import (
	"testing"

	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan_CleanArray(t *testing.T) {
	p, err := parsePlan(`[{"kind":"navigate","url":"https://example.com"},{"kind":"click","selector":"#go"}]`)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, plan.KindNavigate, p.Steps[0].Kind)
	assert.Equal(t, "https://example.com", p.Steps[0].String("url"))
	assert.Equal(t, "#go", p.Steps[1].String("selector"))
}

func TestParsePlan_MarkdownFence(t *testing.T) {
	response := "Here is the plan:\n```json\n[{\"kind\":\"navigate\",\"url\":\"https://example.com\"}]\n```\nDone."
	p, err := parsePlan(response)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestParsePlan_ProseAroundArray(t *testing.T) {
	response := `Sure! The steps are: [{"kind":"wait","selector":".results","timeout":3}] and that's it.`
	p, err := parsePlan(response)
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, plan.KindWait, p.Steps[0].Kind)
}

func TestParsePlan_NestedArraysInParams(t *testing.T) {
	// Bracket matching must not stop at a ] inside a string value.
	response := `[{"kind":"click","selector":"div[data-id='x[0]']"}]`
	p, err := parsePlan(response)
	require.NoError(t, err)
	assert.Equal(t, `div[data-id='x[0]']`, p.Steps[0].String("selector"))
}

func TestParsePlan_RepairsTrailingComma(t *testing.T) {
	p, err := parsePlan(`[{"kind":"navigate","url":"https://example.com",},]`)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestParsePlan_RepairsSingleQuotes(t *testing.T) {
	p, err := parsePlan(`[{'kind': 'navigate', 'url': 'https://example.com'}]`)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", p.Steps[0].String("url"))
}

func TestParsePlan_NoArray(t *testing.T) {
	_, err := parsePlan("I cannot help with that.")
	assert.Error(t, err)
}

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name    string
		steps   []plan.Step
		wantErr string
	}{
		{
			name:    "empty plan",
			steps:   nil,
			wantErr: "no steps",
		},
		{
			name:    "navigate without url",
			steps:   []plan.Step{plan.NewStep(plan.KindNavigate, nil)},
			wantErr: "requires a url",
		},
		{
			name:    "click without selector",
			steps:   []plan.Step{plan.NewStep(plan.KindClick, nil)},
			wantErr: "requires a selector",
		},
		{
			name:    "wait without selector",
			steps:   []plan.Step{plan.NewStep(plan.KindWait, map[string]any{"timeout": 5})},
			wantErr: "requires a selector",
		},
		{
			name: "valid plan",
			steps: []plan.Step{
				plan.NewStep(plan.KindNavigate, map[string]any{"url": "https://example.com"}),
				plan.NewStep(plan.KindType, map[string]any{"selector": "#q", "text": "hello"}),
			},
		},
		{
			name:  "unknown kind passes",
			steps: []plan.Step{plan.NewStep(plan.Kind("screenshot"), nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePlan(plan.New(tt.steps...))
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
