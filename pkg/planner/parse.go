package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/wayfind/pkg/plan"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// parsePlan extracts a plan from raw model output. Models wrap JSON in
// markdown fences or prose despite instructions, so extraction is lenient:
// fences are stripped, the outermost array is located, and common JSON
// mistakes are repaired before decoding.
func parsePlan(response string) (*plan.Plan, error) {
	raw := extractJSONArray(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	parsed, err := plan.Decode([]byte(raw))
	if err != nil {
		repaired := repairJSON(raw)
		parsed, err = plan.Decode([]byte(repaired))
		if err != nil {
			return nil, fmt.Errorf("failed to parse plan: %w", err)
		}
	}
	return parsed, nil
}

// extractJSONArray locates the outermost JSON array in the response.
func extractJSONArray(response string) string {
	s := strings.TrimSpace(response)

	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// repairJSON fixes the mistakes models make most often: trailing commas
// and single-quoted strings.
func repairJSON(raw string) string {
	repaired := trailingCommaRe.ReplaceAllString(raw, "$1")
	if !strings.Contains(repaired, `"`) && strings.Contains(repaired, "'") {
		repaired = strings.ReplaceAll(repaired, "'", `"`)
	}
	return repaired
}

// validatePlan rejects plans that would fail at execution time for missing
// parameters. Unknown kinds pass through untouched: extension handlers may
// be registered for them.
func validatePlan(p *plan.Plan) error {
	if p.Len() == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i, step := range p.Steps {
		switch step.Kind {
		case plan.KindNavigate:
			if step.String("url") == "" {
				return fmt.Errorf("step %d: navigate requires a url", i)
			}
		case plan.KindClick, plan.KindType, plan.KindWait:
			if step.String("selector") == "" {
				return fmt.Errorf("step %d: %s requires a selector", i, step.Kind)
			}
		}
	}
	return nil
}
