package planner

import (
	"fmt"
	"strings"

	"github.com/entrhq/wayfind/pkg/orchestrator"
)

// recentHistoryLimit caps how many executed steps the recovery prompt
// restates.
const recentHistoryLimit = 5

const systemPrompt = `You are a browser automation planner. You convert tasks into sequences of browser actions.

You ALWAYS respond with a single JSON array of action objects and nothing else.
No markdown fences, no commentary, no trailing text.

Each action object has a "kind" field plus the parameters that kind needs:

  {"kind": "navigate", "url": "https://example.com"}
  {"kind": "click", "selector": "#submit-button"}
  {"kind": "type", "selector": "input[name='q']", "text": "search terms", "press_enter": true}
  {"kind": "scroll", "direction": "down", "amount": 600}
  {"kind": "wait", "selector": ".results", "timeout": 5}
  {"kind": "extract", "selector": ".price", "attribute": "text"}
  {"kind": "submit", "selector": "form#checkout"}

Smart actions for shopping and login flows:

  {"kind": "find_best", "criteria": "cheapest"}
  {"kind": "add_to_cart"}
  {"kind": "auto_login"}
  {"kind": "human_pause", "message": "Complete the CAPTCHA"}

Rules:
- navigate requires "url"
- click, type, and wait require "selector"
- prefer stable selectors: ids, name attributes, aria labels
- keep plans minimal: only the steps the task actually needs
- never invent selectors that are not suggested by the page context
- only use the action kinds listed above
- use human_pause for anything a browser cannot do alone (CAPTCHA, payment, 2FA)`

// buildPlanPrompt assembles the initial planning prompt.
func buildPlanPrompt(goal, pageContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: %s\n", goal)

	if pageContext != "" {
		b.WriteString("\nCurrent page context:\n")
		b.WriteString(pageContext)
		b.WriteString("\n")
	} else {
		b.WriteString("\nNo page is loaded yet. Start with a navigate action.\n")
	}

	b.WriteString("\nProduce the JSON array of actions that accomplishes the task.")
	return b.String()
}

// buildRecoveryPrompt assembles the self-healing prompt. It restates the
// original goal, names the failure, and shows what already succeeded so the
// recovery plan finishes the task instead of repeating it.
func buildRecoveryPrompt(rc orchestrator.RecoveryContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A browser automation run hit an error and needs a recovery plan.\n\n")
	fmt.Fprintf(&b, "Original task (still the goal): %s\n\n", rc.Goal)
	fmt.Fprintf(&b, "Failed action: %s\n", rc.FailedStep.Describe())
	fmt.Fprintf(&b, "Error: %s\n", rc.ErrorMessage)
	fmt.Fprintf(&b, "Recovery attempt: %d\n", rc.Attempt)

	if len(rc.History) > 0 {
		// Only the tail matters for recovery; long runs would drown the
		// prompt otherwise.
		start := 0
		if len(rc.History) > recentHistoryLimit {
			start = len(rc.History) - recentHistoryLimit
		}
		b.WriteString("\nRecent actions (do not repeat the successful ones):\n")
		for i, entry := range rc.History[start:] {
			fmt.Fprintf(&b, "  %d. %s -> %s\n", start+i+1, entry.Step.Describe(), entry.Result.Status)
		}
	}
	if rc.LastGoodStep != nil {
		fmt.Fprintf(&b, "\nLast successful action: %s\n", rc.LastGoodStep.Describe())
	}

	if rc.PageContext != "" {
		b.WriteString("\nCurrent page context:\n")
		b.WriteString(rc.PageContext)
		b.WriteString("\n")
	}

	b.WriteString("\nProduce a JSON array of actions that recovers from the error and completes the original task. ")
	b.WriteString("Try a different approach than the one that failed.")
	return b.String()
}
