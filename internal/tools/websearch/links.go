package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor discovered on a fetched page, resolved to an absolute URL.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ExtractLinks fetches targetURL and walks the parsed DOM for <a href> anchors,
// resolving each href against the page's own URL. Unlike extractReadableContent's
// regex-based text extraction, link discovery needs real tree structure (nested
// tags inside an anchor, relative hrefs) that a tag-stripping regex can't give.
func (e *ContentExtractor) ExtractLinks(ctx context.Context, targetURL string) ([]Link, error) {
	if !e.skipSSRFCheck {
		if err := validateURLForSSRF(targetURL); err != nil {
			return nil, fmt.Errorf("URL validation failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; EnvoyBot/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	base, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := nodeAttr(n, "href"); href != "" {
				if resolved := resolveLink(base, href); resolved != "" && !seen[resolved] {
					seen[resolved] = true
					links = append(links, Link{Text: strings.TrimSpace(nodeText(n)), URL: resolved})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// nodeAttr returns n's attribute value for key, or "" if n has none.
func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText concatenates all text nodes under n, depth-first.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// resolveLink resolves href against base, discarding fragment-only links,
// javascript: pseudo-links, and anything that fails to parse.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}
