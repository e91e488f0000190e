package refdocs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var multiSpacePattern = regexp.MustCompile(`\s{2,}`)

func (r *Retriever) fetchPage(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; outcomegen/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return &Page{URL: url, Text: truncate(collapse(string(body)), MaxTextLength)}, nil
	}

	page, err := ParsePage(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	page.URL = url
	return page, nil
}

// ParsePage extracts the title, meta description and visible text of an
// HTML document. Text is truncated to MaxTextLength.
func ParsePage(rd io.Reader) (*Page, error) {
	doc, err := html.Parse(rd)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	var sb strings.Builder
	walk(doc, page, &sb, 0)
	page.Title = collapse(page.Title)
	page.Text = truncate(collapse(sb.String()), MaxTextLength)
	return page, nil
}

func walk(n *html.Node, page *Page, sb *strings.Builder, depth int) {
	if depth > 64 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "template":
			return
		case "title":
			if page.Title == "" && n.FirstChild != nil {
				page.Title = n.FirstChild.Data
			}
			return
		case "meta":
			name := strings.ToLower(getAttr(n, "name"))
			if name == "" {
				name = strings.ToLower(getAttr(n, "property"))
			}
			if page.Description == "" && (name == "description" || name == "og:description") {
				page.Description = strings.TrimSpace(getAttr(n, "content"))
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, page, sb, depth+1)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}
