package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

type DeadLinkResult struct {
	Index  int // into the checked entries
	IsDead bool
	Reason string
}

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:", "javascript:", "place:"}

func shouldSkip(url string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// NewLinkClient returns the client DeadLinks uses by default.
func NewLinkClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// DeadLinks checks every entry with a HEAD request, 10 at a time, and
// sends one result per checked entry. Internal URLs are skipped. A nil
// client uses NewLinkClient.
func DeadLinks(ctx context.Context, client *http.Client, entries []Entry, results chan<- DeadLinkResult) {
	if client == nil {
		client = NewLinkClient()
	}
	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup

	for i, e := range entries {
		if shouldSkip(e.URL) {
			continue
		}

		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			results <- checkLink(ctx, client, idx, url)
		}(i, e.URL)
	}

	wg.Wait()
}

func checkLink(ctx context.Context, client *http.Client, idx int, url string) DeadLinkResult {
	result := DeadLinkResult{Index: idx}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		result.IsDead = true
		result.Reason = "invalid URL"
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.IsDead = true
		result.Reason = "unreachable"
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		result.IsDead = true
		result.Reason = fmt.Sprintf("%d", resp.StatusCode)
	}
	return result
}
