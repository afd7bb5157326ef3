package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/types"
)

// HistoryModel lists recent history with a local search.
type HistoryModel struct {
	Items  []types.HistoryItem
	Shown  []types.HistoryItem
	Query  string
	Err    string
	Cursor int
	Offset int
	Width  int
	Height int
}

// SetItems replaces the list and re-applies the query.
func (m *HistoryModel) SetItems(items []types.HistoryItem) {
	m.Items = items
	m.Err = ""
	m.SetQuery(m.Query)
}

func (m *HistoryModel) SetQuery(q string) {
	m.Query = q
	m.Shown = history.Filter(m.Items, q)
	m.Cursor = 0
	m.Offset = 0
}

func (m HistoryModel) Selected() *types.HistoryItem {
	if m.Cursor >= 0 && m.Cursor < len(m.Shown) {
		return &m.Shown[m.Cursor]
	}
	return nil
}

func (m *HistoryModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

func (m *HistoryModel) MoveDown() {
	if m.Cursor < len(m.Shown)-1 {
		m.Cursor++
	}
	rows := m.Height - 2
	if rows < 1 {
		rows = 1
	}
	if m.Cursor >= m.Offset+rows {
		m.Offset = m.Cursor - rows + 1
	}
}

func (m HistoryModel) View() string {
	if m.Err != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.Err)
	}
	if len(m.Shown) == 0 {
		if len(m.Items) == 0 {
			return "No history found."
		}
		return "No matching history."
	}

	rows := m.Height
	if rows < 1 {
		rows = 20
	}
	end := m.Offset + rows
	if end > len(m.Shown) {
		end = len(m.Shown)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		line := m.Shown[i].Title
		if r := []rune(line); m.Width > 10 && len(r) > m.Width-2 {
			line = string(r[:m.Width-3]) + "…"
		}
		if i == m.Cursor {
			for lipgloss.Width(line) < m.Width {
				line += " "
			}
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
