package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/types"
)

const (
	fieldTitle = iota
	fieldURL
	fieldFolder
	fieldCount
)

// EditDialog edits a bookmark's title, URL and folder.
type EditDialog struct {
	URL      string // the bookmark being edited
	ParentID string

	title   textinput.Model
	url     textinput.Model
	folders FolderPicker
	focus   int
	err     string
}

func NewEditDialog(title, url, parentID string, folders []types.FolderChoice) EditDialog {
	d := EditDialog{URL: url, ParentID: parentID, folders: NewFolderPicker(folders, parentID)}
	d.title = textinput.New()
	d.title.Prompt = ""
	d.title.SetValue(title)
	d.title.Focus()
	d.url = textinput.New()
	d.url.Prompt = ""
	d.url.SetValue(url)
	return d
}

// Values returns the trimmed title, URL and chosen folder id.
func (d EditDialog) Values() (title, url, folderID string) {
	title = strings.TrimSpace(d.title.Value())
	url = strings.TrimSpace(d.url.Value())
	if f := d.folders.Selected(); f != nil {
		folderID = f.ID
	}
	return title, url, folderID
}

// SetTitle replaces the title field, as the title lookup does.
func (d *EditDialog) SetTitle(title string) { d.title.SetValue(title) }

// SetError shows msg inside the dialog.
func (d *EditDialog) SetError(msg string) { d.err = msg }

func (d *EditDialog) focusField(i int) {
	d.focus = (i + fieldCount) % fieldCount
	d.title.Blur()
	d.url.Blur()
	switch d.focus {
	case fieldTitle:
		d.title.Focus()
	case fieldURL:
		d.url.Focus()
	}
}

// Update handles field navigation and typing. Save and cancel keys are
// handled by the caller.
func (d EditDialog) Update(msg tea.KeyMsg) (EditDialog, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		if d.focus == fieldFolder && msg.String() == "down" {
			d.folders.MoveDown()
			return d, nil
		}
		d.focusField(d.focus + 1)
		return d, nil
	case "shift+tab", "up":
		if d.focus == fieldFolder && msg.String() == "up" {
			d.folders.MoveUp()
			return d, nil
		}
		d.focusField(d.focus - 1)
		return d, nil
	}
	var cmd tea.Cmd
	switch d.focus {
	case fieldTitle:
		d.title, cmd = d.title.Update(msg)
	case fieldURL:
		d.url, cmd = d.url.Update(msg)
	}
	return d, cmd
}

func (d EditDialog) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)
	titleStyle := lipgloss.NewStyle().Bold(true)
	activeLabel := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	label := func(i int, s string) string {
		if d.focus == i {
			return activeLabel.Render(s)
		}
		return labelStyle.Render(s)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Edit Bookmark") + "\n\n")
	b.WriteString(label(fieldTitle, "Name") + "\n" + d.title.View() + "\n\n")
	b.WriteString(label(fieldURL, "URL") + "\n" + d.url.View() + "\n\n")
	folder := "(none)"
	if f := d.folders.Selected(); f != nil {
		folder = f.Title
	}
	b.WriteString(label(fieldFolder, "Folder") + "\n" + "◂ " + folder + " ▸\n")
	if d.err != "" {
		b.WriteString("\n" + errStyle.Render(d.err) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("tab next field · ↑↓ folder · ctrl+t fetch title · enter save · esc cancel"))
	return boxStyle.Render(b.String())
}

func confirmView(bm *types.BookmarkItem) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2)
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	title := bm.Title
	if title == "" {
		title = bm.URL
	}
	return boxStyle.Render(lipgloss.NewStyle().Bold(true).Render("Delete Bookmark") + "\n\n" +
		"Delete \"" + title + "\"?\n\n" +
		hintStyle.Render("y/enter delete · n/esc cancel"))
}
