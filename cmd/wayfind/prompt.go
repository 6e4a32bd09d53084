package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/wayfind/pkg/plan"
)

// stdinPrompt shows the plan and reads an approve/reject answer from the
// terminal. It satisfies the approval package's PromptFunc.
func stdinPrompt(p *plan.Plan) (bool, error) {
	fmt.Println()
	fmt.Println(renderPlan(p))
	fmt.Print(riskyStyle.Render("This plan contains risky actions.") + " Proceed? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read approval response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// stdinPause blocks a human_pause step until the user presses enter. It
// satisfies the browser package's PauseFunc.
func stdinPause(message string) error {
	fmt.Println()
	fmt.Println(riskyStyle.Render("Manual step required: ") + message)
	fmt.Print("Press enter when done... ")

	reader := bufio.NewReader(os.Stdin)
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("failed to read pause response: %w", err)
	}
	fmt.Println(okStyle.Render("Resuming."))
	return nil
}
