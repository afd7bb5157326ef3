// Package history reads recent browsing history for the sidebar.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/types"
)

// Window is how far back Recent looks.
const Window = 7 * 24 * time.Hour

// DefaultMax is the sidebar's result cap.
const DefaultMax = 50

// Recent returns up to max entries visited within Window of now, with
// defaults filled in: a missing id or title falls back to the URL.
func Recent(ctx context.Context, store host.HistoryStore, max int, now time.Time) ([]types.HistoryItem, error) {
	if max <= 0 {
		max = DefaultMax
	}
	entries, err := store.Search(ctx, host.HistoryQuery{
		MaxResults: max,
		StartTime:  now.Add(-Window).UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	items := make([]types.HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := types.HistoryItem{
			ID:            e.ID,
			URL:           e.URL,
			Title:         e.Title,
			LastVisitTime: e.LastVisitTime,
			VisitCount:    e.VisitCount,
			TypedCount:    e.TypedCount,
		}
		if item.ID == "" {
			item.ID = e.URL
		}
		if item.Title == "" {
			item.Title = e.URL
		}
		items = append(items, item)
	}
	return items, nil
}

// Filter keeps items whose title or URL contains term, ignoring case. A
// blank term keeps everything.
func Filter(items []types.HistoryItem, term string) []types.HistoryItem {
	if strings.TrimSpace(term) == "" {
		return items
	}
	term = strings.ToLower(term)
	var out []types.HistoryItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), term) || strings.Contains(strings.ToLower(item.URL), term) {
			out = append(out, item)
		}
	}
	return out
}
