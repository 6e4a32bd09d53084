package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/wayfind/pkg/plan"
)

// Handler executes one action kind against a session. The returned string
// is an optional extracted value surfaced in the step result.
type Handler func(ctx context.Context, s *Session, step plan.Step) (string, error)

// builtinHandlers maps the built-in action kinds to their handlers.
func builtinHandlers() map[plan.Kind]Handler {
	return map[plan.Kind]Handler{
		plan.KindNavigate: handleNavigate,
		plan.KindClick:    handleClick,
		plan.KindType:     handleType,
		plan.KindScroll:   handleScroll,
		plan.KindWait:     handleWait,
		plan.KindExtract:  handleExtract,
		plan.KindSubmit:   handleSubmit,

		plan.KindFindBest:  handleFindBest,
		plan.KindAddToCart: handleAddToCart,
	}
}

func handleNavigate(_ context.Context, s *Session, step plan.Step) (string, error) {
	url := step.String("url")
	if url == "" {
		return "", fmt.Errorf("navigate requires a url")
	}

	timeout := float64(step.Timeout(s.timeout).Milliseconds())
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   &timeout,
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	return s.page.URL(), nil
}

func handleClick(_ context.Context, s *Session, step plan.Step) (string, error) {
	selector := step.String("selector")
	if selector == "" {
		return "", fmt.Errorf("click requires a selector")
	}

	timeout := float64(step.Timeout(s.timeout).Milliseconds())
	if err := s.page.Click(selector, playwright.PageClickOptions{Timeout: &timeout}); err != nil {
		return "", fmt.Errorf("click failed: %w", err)
	}
	return "", nil
}

func handleType(_ context.Context, s *Session, step plan.Step) (string, error) {
	selector := step.String("selector")
	if selector == "" {
		return "", fmt.Errorf("type requires a selector")
	}

	timeout := float64(step.Timeout(s.timeout).Milliseconds())
	text := step.String("text")
	if err := s.page.Fill(selector, text, playwright.PageFillOptions{Timeout: &timeout}); err != nil {
		return "", fmt.Errorf("fill failed: %w", err)
	}

	if step.Bool("press_enter") {
		if err := s.page.Keyboard().Press("Enter"); err != nil {
			return "", fmt.Errorf("enter press failed: %w", err)
		}
	}
	return "", nil
}

func handleScroll(_ context.Context, s *Session, step plan.Step) (string, error) {
	amount, ok := step.Int("amount")
	if !ok || amount <= 0 {
		amount = 600
	}

	delta := float64(amount)
	if strings.EqualFold(step.String("direction"), "up") {
		delta = -delta
	}
	if err := s.page.Mouse().Wheel(0, delta); err != nil {
		return "", fmt.Errorf("scroll failed: %w", err)
	}
	return "", nil
}

func handleWait(_ context.Context, s *Session, step plan.Step) (string, error) {
	selector := step.String("selector")
	if selector == "" {
		return "", fmt.Errorf("wait requires a selector")
	}

	timeout := float64(step.Timeout(s.timeout).Milliseconds())
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: &timeout,
	})
	if err != nil {
		return "", fmt.Errorf("wait failed: %w", err)
	}
	return "", nil
}

func handleExtract(_ context.Context, s *Session, step plan.Step) (string, error) {
	selector := step.String("selector")
	if selector == "" {
		selector = "body"
	}

	// top_n extracts from the first n matches instead of just the first.
	if n, ok := step.Int("top_n"); ok && n > 1 {
		elements, err := s.page.QuerySelectorAll(selector)
		if err != nil {
			return "", fmt.Errorf("selector query failed: %w", err)
		}
		if len(elements) == 0 {
			return "", fmt.Errorf("no elements found matching selector: %s", selector)
		}
		if len(elements) > n {
			elements = elements[:n]
		}
		var values []string
		for _, element := range elements {
			value, err := extractValue(element, step.String("attribute"))
			if err != nil {
				return "", err
			}
			values = append(values, value)
		}
		return strings.Join(values, "\n"), nil
	}

	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}
	return extractValue(element, step.String("attribute"))
}

func extractValue(element playwright.ElementHandle, attr string) (string, error) {
	if attr != "" && attr != "text" {
		value, err := element.GetAttribute(attr)
		if err != nil {
			return "", fmt.Errorf("attribute extraction failed: %w", err)
		}
		return value, nil
	}
	text, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// KindScreenshot is an extension action kind, not part of the built-in
// set; register ScreenshotHandler to enable it.
const KindScreenshot plan.Kind = "screenshot"

// ScreenshotHandler captures the page to the step's "path" parameter.
func ScreenshotHandler(_ context.Context, s *Session, step plan.Step) (string, error) {
	path := step.String("path")
	if path == "" {
		path = "wayfind-screenshot.png"
	}
	fullPage := true
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     &path,
		FullPage: &fullPage,
	}); err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	return path, nil
}

func handleSubmit(ctx context.Context, s *Session, step plan.Step) (string, error) {
	selector := step.String("selector")
	if selector == "" {
		return "", fmt.Errorf("submit requires a selector")
	}

	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	// Forms are submitted directly; anything else is treated as a
	// submit control and clicked.
	tag, err := element.Evaluate("el => el.tagName.toLowerCase()")
	if err == nil && tag == "form" {
		if _, err := element.Evaluate("el => el.submit()"); err != nil {
			return "", fmt.Errorf("form submit failed: %w", err)
		}
		return "", nil
	}
	return handleClick(ctx, s, step)
}
