package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/types"
)

// TreeNode represents a visible row in the tree.
type TreeNode struct {
	Folder   *types.BookmarkFolder // non-nil for folder headers
	Bookmark *types.BookmarkItem   // non-nil for bookmark rows
	Parent   *types.BookmarkFolder // folder owning the bookmark
	Depth    int
}

// TreeModel manages the collapsible bookmark tree. Folders carry their own
// Expanded flag, so collapsing a folder leaves its descendants' flags alone.
type TreeModel struct {
	Source []*types.BookmarkFolder // full forest
	Forest []*types.BookmarkFolder // what is shown: Source or a filtered copy
	Query  string
	Cursor int
	Offset int // scroll offset
	Width  int
	Height int
}

func NewTreeModel(forest []*types.BookmarkFolder) TreeModel {
	return TreeModel{Source: forest, Forest: forest}
}

// VisibleNodes returns the flat list of currently visible nodes.
func (m TreeModel) VisibleNodes() []TreeNode {
	var nodes []TreeNode
	var walk func(folders []*types.BookmarkFolder, depth int)
	walk = func(folders []*types.BookmarkFolder, depth int) {
		for _, f := range folders {
			nodes = append(nodes, TreeNode{Folder: f, Depth: depth})
			if !f.Expanded {
				continue
			}
			for i := range f.Bookmarks {
				nodes = append(nodes, TreeNode{Bookmark: &f.Bookmarks[i], Parent: f, Depth: depth + 1})
			}
			walk(f.Subfolders, depth+1)
		}
	}
	walk(m.Forest, 0)
	return nodes
}

// SetQuery shows a filtered copy of the source forest. A blank query
// restores the source with its expansion state untouched.
func (m *TreeModel) SetQuery(q string) {
	m.Query = q
	if strings.TrimSpace(q) == "" {
		m.Forest = m.Source
	} else {
		m.Forest = bookmarks.Filter(m.Source, q)
	}
	m.Cursor = 0
	m.Offset = 0
}

// Replace swaps in a freshly loaded forest, carrying over the expansion
// state of folders that still exist and re-applying the query.
func (m *TreeModel) Replace(forest []*types.BookmarkFolder) {
	bookmarks.KeepExpanded(m.Source, forest)
	cursor, offset := m.Cursor, m.Offset
	m.Source = forest
	m.SetQuery(m.Query)
	m.Offset = offset
	m.Cursor = cursor
	m.clamp()
}

func (m *TreeModel) clamp() {
	n := len(m.VisibleNodes())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// SelectedNode returns the currently selected node, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	nodes := m.VisibleNodes()
	if m.Cursor < len(nodes)-1 {
		m.Cursor++
	}
	m.scrollToCursor()
}

func (m *TreeModel) scrollToCursor() {
	visibleRows := m.Height - 2 // account for padding
	if visibleRows < 1 {
		visibleRows = 1
	}
	if m.Cursor >= m.Offset+visibleRows {
		m.Offset = m.Cursor - visibleRows + 1
	}
}

// Toggle expands/collapses the selected folder. Empty folders have nothing
// to toggle.
func (m *TreeModel) Toggle() {
	node := m.SelectedNode()
	if node == nil || node.Folder == nil || !node.Folder.Toggleable() {
		return
	}
	node.Folder.Expanded = !node.Folder.Expanded
}

// CollapseOrParent collapses the selected folder if expanded, or jumps to the
// parent folder header if the cursor is on a bookmark.
func (m *TreeModel) CollapseOrParent() {
	node := m.SelectedNode()
	if node == nil {
		return
	}
	if node.Folder != nil {
		node.Folder.Expanded = false
		return
	}
	nodes := m.VisibleNodes()
	for i := m.Cursor - 1; i >= 0; i-- {
		if nodes[i].Folder == node.Parent {
			m.Cursor = i
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
			return
		}
	}
}

// ExpandOrEnter expands the selected folder if collapsed, or moves onto its
// first child if already expanded.
func (m *TreeModel) ExpandOrEnter() {
	node := m.SelectedNode()
	if node == nil || node.Folder == nil || !node.Folder.Toggleable() {
		return
	}
	if !node.Folder.Expanded {
		node.Folder.Expanded = true
		return
	}
	if m.Cursor+1 < len(m.VisibleNodes()) {
		m.Cursor++
		m.scrollToCursor()
	}
}

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		if m.Query != "" {
			return fmt.Sprintf("No bookmarks match %q.", m.Query)
		}
		return "No bookmarks found."
	}

	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}

	var b strings.Builder
	end := m.Offset + visibleRows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	folderStyle := lipgloss.NewStyle().Bold(true)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		indent := strings.Repeat("  ", node.Depth)
		var line string

		if node.Folder != nil {
			f := node.Folder
			switch {
			case !f.Toggleable():
				line = emptyStyle.Render(indent + "  " + f.Title + " (empty)")
			case f.Expanded:
				line = folderStyle.Render(fmt.Sprintf("%s▼ %s (%d)", indent, f.Title, len(f.Bookmarks)))
			default:
				line = folderStyle.Render(fmt.Sprintf("%s▶ %s (%d)", indent, f.Title, len(f.Bookmarks)))
			}
		} else {
			title := node.Bookmark.Title
			if title == "" {
				title = node.Bookmark.URL
			}
			maxLen := m.Width - len(indent) - 2
			if maxLen < 10 {
				maxLen = 10
			}
			if r := []rune(title); len(r) > maxLen {
				title = string(r[:maxLen-1]) + "…"
			}
			line = indent + title
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
