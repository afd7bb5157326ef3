package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/types"
)

// DetailModel shows information about the selected item.
type DetailModel struct {
	Width  int
	Height int
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle()
)

func (m DetailModel) wrap(b *strings.Builder, s string) {
	width := m.Width - 2
	if width < 10 {
		width = 10
	}
	r := []rune(s)
	for len(r) > width {
		b.WriteString(valueStyle.Render(string(r[:width])) + "\n")
		r = r[width:]
	}
	b.WriteString(valueStyle.Render(string(r)) + "\n\n")
}

func (m DetailModel) ViewBookmark(bm *types.BookmarkItem, folder *types.BookmarkFolder) string {
	if bm == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(labelStyle.Render("Title") + "\n")
	m.wrap(&b, bm.Title)

	b.WriteString(labelStyle.Render("URL") + "\n")
	m.wrap(&b, bm.URL)

	b.WriteString(labelStyle.Render("Domain") + "\n")
	b.WriteString(valueStyle.Render(htmlutil.GetDomain(bm.URL)) + "\n\n")

	if folder != nil {
		b.WriteString(labelStyle.Render("Folder") + "\n")
		b.WriteString(valueStyle.Render(folder.Title) + "\n")
	}
	return b.String()
}

func (m DetailModel) ViewFolder(f *types.BookmarkFolder) string {
	if f == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(labelStyle.Render("Folder") + "\n")
	b.WriteString(valueStyle.Render(f.Title) + "\n\n")

	b.WriteString(labelStyle.Render("Bookmarks") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", len(f.Bookmarks))) + "\n\n")

	b.WriteString(labelStyle.Render("Subfolders") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", len(f.Subfolders))) + "\n\n")

	state := "collapsed"
	switch {
	case !f.Toggleable():
		state = "empty"
	case f.Expanded:
		state = "expanded"
	}
	b.WriteString(labelStyle.Render("State") + "\n")
	b.WriteString(valueStyle.Render(state) + "\n")
	return b.String()
}

func (m DetailModel) ViewHistory(item *types.HistoryItem, now time.Time) string {
	if item == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(labelStyle.Render("Title") + "\n")
	m.wrap(&b, item.Title)

	b.WriteString(labelStyle.Render("URL") + "\n")
	m.wrap(&b, item.URL)

	b.WriteString(labelStyle.Render("Last Visited") + "\n")
	b.WriteString(valueStyle.Render(ago(now.Sub(time.UnixMilli(item.LastVisitTime)))) + "\n\n")

	b.WriteString(labelStyle.Render("Visits") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d (%d typed)", item.VisitCount, item.TypedCount)) + "\n")
	return b.String()
}

func ago(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%d days ago", days)
	}
	if hours := int(d.Hours()); hours > 0 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	if mins := int(d.Minutes()); mins > 0 {
		return fmt.Sprintf("%d minutes ago", mins)
	}
	return "just now"
}
