// Package pageinfo fetches a page and extracts its readable title.
package pageinfo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/lotas/lesezeichen/internal/htmlutil"
)

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:", "javascript:", "place:"}

// Page is what FetchPage extracts from a document.
type Page struct {
	Title   string
	Excerpt string
}

// Fetcher fetches pages with a shared client.
type Fetcher struct {
	Client *http.Client
}

// NewFetcher returns a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// FetchPage fetches url and runs readability over the response.
// Returns an error for non-HTTP URLs or if extraction fails.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (Page, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return Page{}, fmt.Errorf("skipping non-HTTP URL: %s", url)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	resp, err := f.Client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return Page{}, fmt.Errorf("extract readable content from %s: %w", url, err)
	}

	return Page{
		Title:   strings.TrimSpace(article.Title),
		Excerpt: htmlutil.TruncateText(strings.Join(strings.Fields(article.TextContent), " "), 200),
	}, nil
}

// FetchTitle returns the page title of url.
func (f *Fetcher) FetchTitle(ctx context.Context, url string) (string, error) {
	page, err := f.FetchPage(ctx, url)
	if err != nil {
		return "", err
	}
	if page.Title == "" {
		return "", fmt.Errorf("fetch %s: page has no title", url)
	}
	return page.Title, nil
}
