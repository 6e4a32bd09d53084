package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/wayfind/pkg/fsm"
	"github.com/entrhq/wayfind/pkg/orchestrator"
	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/entrhq/wayfind/pkg/types"
)

// Color palette. Single source of truth for all CLI colors.
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	stepStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	okStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	riskyStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)
)

func renderBanner(model string) string {
	return headerStyle.Render("wayfind") + dimStyle.Render(" · "+model)
}

// renderPlan lists the plan's steps, flagging risky ones. Used by the
// approval prompt.
func renderPlan(p *plan.Plan) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Proposed plan") + "\n")
	for i, step := range p.Steps {
		line := fmt.Sprintf("  %d. %s", i+1, step.Describe())
		if step.Risky {
			b.WriteString(riskyStyle.Render(line+"  [risky]") + "\n")
		} else {
			b.WriteString(stepStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

// newEventRenderer returns an emitter that prints run progress as it
// happens. State transitions only show in verbose mode.
func newEventRenderer(w io.Writer, verbose bool) types.Emitter {
	return func(e *types.Event) {
		switch e.Type {
		case types.EventTypeStateChange:
			if verbose {
				fmt.Fprintln(w, dimStyle.Render("· "+e.Message))
			}
		case types.EventTypePlanGenerated:
			fmt.Fprintln(w, okStyle.Render("✓ ")+stepStyle.Render(e.Message))
		case types.EventTypeStepStart:
			index, _ := e.Metadata["index"].(int)
			total, _ := e.Metadata["total"].(int)
			fmt.Fprintln(w, stepStyle.Render(fmt.Sprintf("→ [%d/%d] %s", index+1, total, e.Message)))
		case types.EventTypeStepResult:
			if e.Message == plan.StatusSuccess {
				fmt.Fprintln(w, okStyle.Render("  ✓ done"))
			} else {
				errText, _ := e.Metadata["error"].(string)
				fmt.Fprintln(w, errorStyle.Render("  ✗ "+errText))
			}
		case types.EventTypeSelfHealStart:
			fmt.Fprintln(w, headerStyle.Render("⟳ "+e.Message))
		case types.EventTypeError:
			fmt.Fprintln(w, errorStyle.Render("✗ "+e.Message))
		}
	}
}

// renderSummary renders the final run report.
func renderSummary(s *orchestrator.Summary) string {
	if s == nil {
		return ""
	}

	var b strings.Builder

	state := string(s.State)
	switch s.State {
	case fsm.StateCompleted:
		b.WriteString(okStyle.Render("✓ "+state) + "\n")
	case fsm.StateCancelled:
		b.WriteString(dimStyle.Render("∅ "+state) + "\n")
	default:
		b.WriteString(errorStyle.Render("✗ "+state) + "\n")
	}

	fmt.Fprintf(&b, "Request: %s\n", s.Request)
	fmt.Fprintf(&b, "Steps:   %d executed of %d planned (%.0f%% ok)\n",
		s.ExecutedSteps(), s.PlannedSteps, s.SuccessRate()*100)
	if s.SelfHealAttempts > 0 {
		fmt.Fprintf(&b, "Heals:   %d\n", s.SelfHealAttempts)
	}
	if s.FailureReason != "" {
		fmt.Fprintf(&b, "Reason:  %s\n", s.FailureReason)
	}
	fmt.Fprintf(&b, "Elapsed: %s", s.Elapsed.Round(time.Millisecond))

	if len(s.History) > 0 {
		b.WriteString("\n\n" + dimStyle.Render("History:"))
		for i, entry := range s.History {
			mark := okStyle.Render("✓")
			detail := entry.Result.Value
			if !entry.Result.OK() {
				mark = errorStyle.Render("✗")
				detail = entry.Result.Error
			}
			fmt.Fprintf(&b, "\n  %s %d. %s", mark, i+1, entry.Step.Describe())
			if detail != "" {
				b.WriteString(dimStyle.Render(": " + truncate(detail, 80)))
			}
		}
	}

	return summaryBoxStyle.Render(b.String())
}

// truncate caps s at max runes, never splitting a multibyte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
