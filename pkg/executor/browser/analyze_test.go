package browser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<!DOCTYPE html>
<html>
<head><title>Sign In</title></head>
<body>
  <form id="login-form" action="/session">
    <input type="email" name="email" placeholder="Email address">
    <input type="password" name="password" placeholder="Password">
    <input type="hidden" name="csrf" value="abc">
    <button id="submit-btn" type="submit">Sign in</button>
  </form>
  <a href="/forgot">Forgot your password?</a>
  <a href="javascript:void(0)">Skip me</a>
</body>
</html>`

func TestDescribePage(t *testing.T) {
	got, err := describePage("https://example.com/login", "Sign In", loginPage)
	require.NoError(t, err)

	assert.Contains(t, got, "URL: https://example.com/login")
	assert.Contains(t, got, "Title: Sign In")

	// Visible inputs listed with name selectors and placeholders.
	assert.Contains(t, got, `input[email] input[name="email"] "Email address"`)
	assert.Contains(t, got, `input[name="password"]`)

	// Hidden inputs are noise for planning.
	assert.NotContains(t, got, "csrf")

	// Buttons prefer id selectors, forms report their action.
	assert.Contains(t, got, `button #submit-btn "Sign in"`)
	assert.Contains(t, got, `form #login-form "action=/session"`)

	// Links carry hrefs; javascript pseudo-links are dropped.
	assert.Contains(t, got, `a[href="/forgot"]`)
	assert.NotContains(t, got, "javascript:")
}

func TestDescribePage_EmptyPage(t *testing.T) {
	got, err := describePage("about:blank", "", "<html><body></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "URL: about:blank\n", got)
}

func TestDescribePage_LimitsListedLinks(t *testing.T) {
	var body string
	for i := 0; i < maxListedLinks+10; i++ {
		body += `<a href="/page">link</a>`
	}
	got, err := describePage("https://example.com", "", "<html><body>"+body+"</body></html>")
	require.NoError(t, err)
	assert.Contains(t, got, "... and 10 more")
}

func TestDescribePage_TruncatesLongLinkTextOnRuneBoundary(t *testing.T) {
	// Multibyte link text longer than the limit must stay valid UTF-8
	// after truncation.
	text := strings.Repeat("日", maxLinkTextLen+10)
	page := `<html><body><a href="/jp">` + text + `</a></body></html>`

	got, err := describePage("https://example.com", "", page)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, strings.Repeat("日", maxLinkTextLen)+"...")
	assert.NotContains(t, got, strings.Repeat("日", maxLinkTextLen+1))
}

func TestRecommendSelector_Preference(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"id wins", `<button id="go" name="n" class="c">x</button>`, "#go"},
		{"name next", `<input name="q" class="search">`, `input[name="q"]`},
		{"aria-label next", `<button aria-label="Close" class="x">x</button>`, `button[aria-label="Close"]`},
		{"data-testid next", `<button data-testid="cta" class="x">x</button>`, `button[data-testid="cta"]`},
		{"first class", `<button class="primary large">x</button>`, "button.primary"},
		{"bare tag last", `<button>x</button>`, "button"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := describePage("u", "", "<html><body>"+tt.html+"</body></html>")
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}
