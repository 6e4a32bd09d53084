// Package browser executes plan steps against a real browser through
// Playwright, and reports the page state the planner grounds its plans in.
package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session defaults.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second
)

// SessionOptions configures a browser session.
type SessionOptions struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
}

// Session owns one browser, context, and page for the duration of a run.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

// NewSession installs Playwright if needed, launches Chromium, and opens a
// single page. Playwright's own output is discarded so it cannot interleave
// with the CLI's.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	brw, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := brw.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		brw.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		brw.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Session{
		pw:      pw,
		browser: brw,
		bctx:    bctx,
		page:    page,
		timeout: opts.Timeout,
	}, nil
}

// Page returns the session's page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// URL returns the page's current URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// Title returns the page's current title, or "" if unavailable.
func (s *Session) Title() string {
	title, err := s.page.Title()
	if err != nil {
		return ""
	}
	return title
}

// Content returns the page's full HTML.
func (s *Session) Content() (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Close tears down the page, context, browser, and Playwright driver.
// Errors during teardown are ignored so cleanup always completes.
func (s *Session) Close() error {
	_ = s.page.Close()
	_ = s.bctx.Close()
	_ = s.browser.Close()
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
