package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

// HistorySidebar renders the closed sidebar shell.
func HistorySidebar() string {
	return `<div class="history-sidebar">` +
		`<div class="history-sidebar-header"><h2>🕐 History</h2><button class="history-sidebar-close" aria-label="Close">×</button></div>` +
		`<div class="history-sidebar-search"><input type="text" class="history-search-input" placeholder="Search history..."></div>` +
		`<div class="history-sidebar-content">` + HistoryLoading() + `</div>` +
		`</div>`
}

// HistoryOverlay renders the backdrop behind an open sidebar.
func HistoryOverlay() string {
	return `<div class="history-sidebar-overlay"></div>`
}

// HistoryToggle renders the header button that opens the sidebar.
func HistoryToggle() string {
	return `<button class="history-toggle-btn" aria-label="Show history" title="Show history">🕐</button>`
}

// HistoryLoading is shown while history is fetched.
func HistoryLoading() string {
	return `<div class="history-loading">Loading history...</div>`
}

// HistoryError replaces the sidebar content when history cannot be read.
func HistoryError() string {
	return `<div class="history-error">Failed to load history.</div>`
}

// HistoryContent renders the filtered items. all is the unfiltered list and
// only decides which empty message is shown.
func HistoryContent(all, filtered []types.HistoryItem, loc *time.Location) string {
	if len(filtered) == 0 {
		if len(all) == 0 {
			return `<div class="history-empty">No history found.</div>`
		}
		return `<div class="history-empty">No matching history.</div>`
	}
	var b strings.Builder
	b.WriteString(`<div class="history-list">`)
	for _, item := range filtered {
		b.WriteString(HistoryItem(item, loc))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// HistoryItem renders one history entry.
func HistoryItem(item types.HistoryItem, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	visited := time.UnixMilli(item.LastVisitTime).In(loc).Format("2006-01-02 15:04")
	url := esc(item.URL)
	return `<div class="history-item">` +
		fmt.Sprintf(`<div class="history-item-icon"><img class="history-favicon hidden" data-history-url="%s" alt="favicon"><span class="favicon-placeholder">🌐</span></div>`, url) +
		`<div class="history-item-content">` +
		fmt.Sprintf(`<a href="%s" class="history-item-title" target="_blank">%s</a>`, url, esc(item.Title)) +
		fmt.Sprintf(`<div class="history-item-url">%s</div>`, url) +
		fmt.Sprintf(`<div class="history-item-meta"><span class="history-item-date">%s</span><span class="history-item-count">Visits: %d</span></div>`, visited, item.VisitCount) +
		`</div></div>`
}
