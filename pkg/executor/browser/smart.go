package browser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/wayfind/pkg/plan"
)

// listingItem is one product extracted from a results page.
type listingItem struct {
	Title string
	Price string
	Link  string
}

// Container selectors tried in order when scanning a results page. The
// first one matching at least two elements wins.
var listingContainerSelectors = []string{
	"div[data-component-type='s-search-result']",
	"[data-asin]:not([data-asin=''])",
	"[class*='result']",
	"[class*='product']",
	"article",
	"li",
}

var (
	listingTitleSelectors = []string{"h2", "h3", "[class*='title']", "a"}
	listingPriceSelectors = []string{".a-price-whole", "[class*='price']"}
)

func handleFindBest(_ context.Context, s *Session, step plan.Step) (string, error) {
	criteria := step.String("criteria")
	if criteria == "" {
		criteria = "cheapest"
	}

	items := extractListings(s, 20)
	if len(items) == 0 {
		return "", fmt.Errorf("no listing items found on page")
	}

	best, ok := bestListing(items, criteria)
	if !ok {
		return "", fmt.Errorf("no suitable item for criteria %q", criteria)
	}

	timeout := float64(step.Timeout(s.timeout).Milliseconds())
	if _, err := s.page.Goto(best.Link, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   &timeout,
	}); err != nil {
		return "", fmt.Errorf("navigation to selected item failed: %w", err)
	}

	if best.Price != "" {
		return fmt.Sprintf("%s (%s)", best.Title, best.Price), nil
	}
	return best.Title, nil
}

// bestListing picks the item matching the criteria. Only "cheapest" is
// supported: the lowest parseable price among items that carry a link.
func bestListing(items []listingItem, criteria string) (listingItem, bool) {
	if criteria != "cheapest" {
		return listingItem{}, false
	}

	var best listingItem
	var bestPrice float64
	found := false
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		price, ok := parsePrice(item.Price)
		if !ok {
			continue
		}
		if !found || price < bestPrice {
			best, bestPrice, found = item, price, true
		}
	}
	return best, found
}

var priceRe = regexp.MustCompile(`\d[\d,]*\.?\d*`)

// parsePrice pulls the first numeric amount out of a price string like
// "$1,299.99" or "USD 45".
func parsePrice(s string) (float64, bool) {
	match := priceRe.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractListings scans the page for repeated listing containers and pulls
// title, price, and link out of each. Best effort: elements missing a
// title are skipped, parse errors move on to the next selector.
func extractListings(s *Session, limit int) []listingItem {
	for _, selector := range listingContainerSelectors {
		handles, err := s.page.QuerySelectorAll(selector)
		if err != nil || len(handles) < 2 {
			continue
		}
		if len(handles) > limit {
			handles = handles[:limit]
		}

		var items []listingItem
		for _, h := range handles {
			item := listingFrom(h, s.page.URL())
			if item.Title != "" {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func listingFrom(h playwright.ElementHandle, pageURL string) listingItem {
	var item listingItem
	for _, sel := range listingTitleSelectors {
		el, err := h.QuerySelector(sel)
		if err != nil || el == nil {
			continue
		}
		if text, err := el.InnerText(); err == nil {
			if t := strings.TrimSpace(text); t != "" {
				item.Title = t
				break
			}
		}
	}
	for _, sel := range listingPriceSelectors {
		el, err := h.QuerySelector(sel)
		if err != nil || el == nil {
			continue
		}
		if text, err := el.InnerText(); err == nil {
			if p := strings.TrimSpace(text); p != "" {
				item.Price = p
				break
			}
		}
	}
	if el, err := h.QuerySelector("a"); err == nil && el != nil {
		if href, err := el.GetAttribute("href"); err == nil && href != "" {
			item.Link = absoluteURL(pageURL, href)
		}
	}
	return item
}

// absoluteURL resolves href against the page URL, so relative listing
// links become navigable.
func absoluteURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Add-to-cart controls tried in order, covering the common storefront
// variants.
var addToCartSelectors = []string{
	"#add-to-cart-button",
	"button[name='submit.add-to-cart']",
	"[id*='add-to-cart']",
	"button:has-text('Add to Cart')",
}

func handleAddToCart(_ context.Context, s *Session, step plan.Step) (string, error) {
	timeout := float64(5000)
	for _, selector := range addToCartSelectors {
		if _, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: &timeout,
		}); err != nil {
			continue
		}
		if err := s.page.Click(selector, playwright.PageClickOptions{Timeout: &timeout}); err != nil {
			continue
		}
		return "", nil
	}
	return "", fmt.Errorf("add to cart button not found")
}

// Default selectors for the auto_login form fields; steps may override
// them with username_selector, password_selector, and submit_selector.
const (
	defaultUsernameSelector    = "input[type='email'], input[type='text']"
	defaultPasswordSelector    = "input[type='password']"
	defaultLoginSubmitSelector = "button[type='submit']"
)

// AutoLoginHandler serves the auto_login action with credentials from the
// store, keyed by the current page's host. auto_login is a risky kind by
// default, so plans using it pass the approval gate first.
func AutoLoginHandler(store *CredentialStore) Handler {
	return func(_ context.Context, s *Session, step plan.Step) (string, error) {
		host := hostOf(s.page.URL())
		creds, ok := store.Lookup(host)
		if !ok {
			return "", fmt.Errorf("no credentials stored for %s", host)
		}

		usernameSel := step.String("username_selector")
		if usernameSel == "" {
			usernameSel = defaultUsernameSelector
		}
		passwordSel := step.String("password_selector")
		if passwordSel == "" {
			passwordSel = defaultPasswordSelector
		}
		submitSel := step.String("submit_selector")
		if submitSel == "" {
			submitSel = defaultLoginSubmitSelector
		}

		timeout := float64(step.Timeout(s.timeout).Milliseconds())
		if err := s.page.Fill(usernameSel, creds.Username, playwright.PageFillOptions{Timeout: &timeout}); err != nil {
			return "", fmt.Errorf("username fill failed: %w", err)
		}
		if err := s.page.Fill(passwordSel, creds.Password, playwright.PageFillOptions{Timeout: &timeout}); err != nil {
			return "", fmt.Errorf("password fill failed: %w", err)
		}
		if err := s.page.Click(submitSel, playwright.PageClickOptions{Timeout: &timeout}); err != nil {
			return "", fmt.Errorf("login submit failed: %w", err)
		}

		settle := float64(15000)
		if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: &settle,
		}); err != nil {
			return "", fmt.Errorf("page did not settle after login: %w", err)
		}
		return fmt.Sprintf("logged in as %s", creds.Username), nil
	}
}

// PauseFunc blocks until the user signals that the manual steps described
// by message are done.
type PauseFunc func(message string) error

// HumanPauseHandler serves the human_pause action: execution suspends at
// the step until the provided PauseFunc returns, letting a person handle
// what the plan cannot (CAPTCHAs, payment forms, 2FA).
func HumanPauseHandler(pause PauseFunc) Handler {
	return func(_ context.Context, _ *Session, step plan.Step) (string, error) {
		if pause == nil {
			return "", fmt.Errorf("no pause prompt configured")
		}
		message := step.String("message")
		if message == "" {
			message = "Complete the manual steps in the browser"
		}
		if err := pause(message); err != nil {
			return "", fmt.Errorf("pause interrupted: %w", err)
		}
		return "", nil
	}
}
