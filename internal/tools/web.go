package tools

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type ExtractHeadingsParams struct {
	URL      string `json:"url" description:"Page to fetch"`
	Selector string `json:"selector,omitempty" description:"CSS selector, defaults to h1"`
}

type ExtractHeadingsResult struct {
	Status
	Title    string   `json:"title,omitempty"`
	Headings []string `json:"headings"`
}

// ExtractHeadings fetches a page and returns the text of every element
// matching the selector. It covers static pages; script-rendered pages need
// a browser MCP server.
func (t *Toolbox) ExtractHeadings(ctx context.Context, p ExtractHeadingsParams) ExtractHeadingsResult {
	selector := p.Selector
	if selector == "" {
		selector = "h1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return ExtractHeadingsResult{Status: failed("Invalid URL %q: %v", p.URL, err), Headings: []string{}}
	}
	req.Header.Set("User-Agent", "ztr")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ExtractHeadingsResult{Status: failed("Request failed: %v", err), Headings: []string{}}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ExtractHeadingsResult{Status: failed("Request failed: HTTP %d", resp.StatusCode), Headings: []string{}}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ExtractHeadingsResult{Status: failed("Could not parse page: %v", err), Headings: []string{}}
	}
	doc.Find("script, style, noscript").Remove()

	headings := []string{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			headings = append(headings, text)
		}
	})
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if len(headings) == 0 {
		return ExtractHeadingsResult{Status: warned("No elements matched %q.", selector), Title: title, Headings: headings}
	}
	return ExtractHeadingsResult{
		Status:   succeeded("Found %d %s element(s).", len(headings), selector),
		Title:    title,
		Headings: headings,
	}
}
