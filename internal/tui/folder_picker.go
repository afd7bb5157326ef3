package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/types"
)

// FolderPicker is an overlay for choosing a move target.
type FolderPicker struct {
	Folders []types.FolderChoice
	Cursor  int
	Width   int
	Height  int
}

// NewFolderPicker starts with the cursor on current, when present.
func NewFolderPicker(folders []types.FolderChoice, current string) FolderPicker {
	p := FolderPicker{Folders: folders}
	for i, f := range folders {
		if f.ID == current {
			p.Cursor = i
			break
		}
	}
	return p
}

func (m *FolderPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *FolderPicker) MoveDown() {
	if m.Cursor < len(m.Folders)-1 {
		m.Cursor++
	}
}

func (m FolderPicker) Selected() *types.FolderChoice {
	if m.Cursor >= 0 && m.Cursor < len(m.Folders) {
		return &m.Folders[m.Cursor]
	}
	return nil
}

func (m FolderPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Move to folder:") + "\n\n")

	for i, f := range m.Folders {
		label := strings.Repeat("  ", f.Depth) + f.Title
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter confirm · esc cancel"))

	return boxStyle.Render(b.String())
}
