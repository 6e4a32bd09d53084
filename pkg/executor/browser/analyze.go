package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Element listing limits keep the page description within a useful size;
// the planner truncates to its token budget on top of this.
const (
	maxListedInputs  = 20
	maxListedButtons = 20
	maxListedLinks   = 30
	maxLinkTextLen   = 60
)

// pageElement is one interactive element found on the page.
type pageElement struct {
	Tag      string
	Selector string
	Label    string
}

// describePage builds the planner-facing description of a page: URL,
// title, and the interactive elements grouped by role, each with a
// recommended selector.
func describePage(url, title, rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	var inputs, buttons, links, forms []pageElement
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input", "textarea", "select":
				if el, ok := describeInput(n); ok {
					inputs = append(inputs, el)
				}
			case "button":
				if el, ok := describeButton(n); ok {
					buttons = append(buttons, el)
				}
			case "a":
				if el, ok := describeLink(n); ok {
					links = append(links, el)
				}
			case "form":
				forms = append(forms, describeForm(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", url)
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}

	writeSection(&b, "Inputs", inputs, maxListedInputs)
	writeSection(&b, "Buttons", buttons, maxListedButtons)
	writeSection(&b, "Forms", forms, len(forms))
	writeSection(&b, "Links", links, maxListedLinks)

	return b.String(), nil
}

func writeSection(b *strings.Builder, heading string, elements []pageElement, limit int) {
	if len(elements) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for i, el := range elements {
		if i >= limit {
			fmt.Fprintf(b, "  ... and %d more\n", len(elements)-limit)
			break
		}
		if el.Label != "" {
			fmt.Fprintf(b, "  %s %s %q\n", el.Tag, el.Selector, el.Label)
		} else {
			fmt.Fprintf(b, "  %s %s\n", el.Tag, el.Selector)
		}
	}
}

func describeInput(n *html.Node) (pageElement, bool) {
	if attrValue(n, "type") == "hidden" {
		return pageElement{}, false
	}
	el := pageElement{
		Tag:      n.Data,
		Selector: recommendSelector(n),
		Label:    attrValue(n, "placeholder"),
	}
	if el.Label == "" {
		el.Label = attrValue(n, "aria-label")
	}
	if t := attrValue(n, "type"); t != "" {
		el.Tag = fmt.Sprintf("%s[%s]", n.Data, t)
	}
	return el, true
}

func describeButton(n *html.Node) (pageElement, bool) {
	return pageElement{
		Tag:      "button",
		Selector: recommendSelector(n),
		Label:    nodeText(n),
	}, true
}

func describeLink(n *html.Node) (pageElement, bool) {
	href := attrValue(n, "href")
	if href == "" || strings.HasPrefix(href, "javascript:") {
		return pageElement{}, false
	}
	text := nodeText(n)
	// Truncate on a rune boundary so multibyte link text stays valid UTF-8.
	if runes := []rune(text); len(runes) > maxLinkTextLen {
		text = string(runes[:maxLinkTextLen]) + "..."
	}
	return pageElement{
		Tag:      "a",
		Selector: fmt.Sprintf("a[href=%q]", href),
		Label:    text,
	}, true
}

func describeForm(n *html.Node) pageElement {
	el := pageElement{Tag: "form", Selector: recommendSelector(n)}
	if action := attrValue(n, "action"); action != "" {
		el.Label = "action=" + action
	}
	return el
}

// recommendSelector picks the most stable CSS selector available for a
// node: id, then name, then aria-label, then data-testid, then class,
// falling back to the bare tag.
func recommendSelector(n *html.Node) string {
	if id := attrValue(n, "id"); id != "" {
		return "#" + id
	}
	if name := attrValue(n, "name"); name != "" {
		return fmt.Sprintf("%s[name=%q]", n.Data, name)
	}
	if label := attrValue(n, "aria-label"); label != "" {
		return fmt.Sprintf("%s[aria-label=%q]", n.Data, label)
	}
	if tid := attrValue(n, "data-testid"); tid != "" {
		return fmt.Sprintf("%s[data-testid=%q]", n.Data, tid)
	}
	if class := attrValue(n, "class"); class != "" {
		first := strings.Fields(class)[0]
		return fmt.Sprintf("%s.%s", n.Data, first)
	}
	return n.Data
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText collects the trimmed text content of a node and its children.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
