package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ViewType int

const (
	ViewBookmarks ViewType = iota
	ViewHistory
)

// TreeWidthPct is the share of the terminal width given to the tree or
// history list; the detail pane takes the rest.
const TreeWidthPct = 60

var navTabs = [...]struct {
	view ViewType
	name string
}{
	{ViewBookmarks, "Bookmarks"},
	{ViewHistory, "History"},
}

var (
	navActive   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	navInactive = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	navMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderNavbar draws the view tabs with their entry counts on the left and
// the profile name on the right, padded to width.
func renderNavbar(active ViewType, profileName string, counts [2]int, stats string, width int) string {
	var left strings.Builder
	left.WriteString(" ")
	for i, tab := range navTabs {
		if i > 0 {
			left.WriteString(navInactive.Render(" │ "))
		}
		count := ""
		if counts[i] > 0 {
			count = fmt.Sprintf(" (%d)", counts[i])
		}
		if tab.view == active {
			left.WriteString(navActive.Render(tab.name + count))
			continue
		}
		left.WriteString(navInactive.Render(tab.name) + navMuted.Render(count))
	}
	if stats != "" {
		left.WriteString("   " + navInactive.Render(stats))
	}

	right := navMuted.Render("Profile: " + profileName)
	gap := max(width-lipgloss.Width(left.String())-lipgloss.Width(right)-2, 1)
	return left.String() + strings.Repeat(" ", gap) + right + " "
}
