// Package tui is the terminal front end: the bookmark tree and recent
// history over the same services the new-tab page uses.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/newtab"
	"github.com/lotas/lesezeichen/internal/types"
)

// --- Messages ---

type treeLoadedMsg struct {
	forest []*types.BookmarkFolder
	err    error
}

type historyLoadedMsg struct {
	items []types.HistoryItem
	err   error
}

type editReadyMsg struct {
	dialog EditDialog
	err    error
}

type foldersLoadedMsg struct {
	url     string
	current string
	folders []types.FolderChoice
	err     error
}

type mutatedMsg struct {
	status string
	err    error
	op     string
}

type titleFetchedMsg struct {
	title string
	err   error
}

type openedMsg struct {
	url     string
	err     error
	skipped bool // javascript: bookmarks are never opened
}

// Options wires the model to its services. Titles may be nil.
type Options struct {
	Bookmarks  *bookmarks.Service
	History    host.HistoryStore
	Tabs       host.TabOpener
	Titles     newtab.TitleFetcher
	HistoryMax int
	Profile    string
	Now        func() time.Time
}

// --- Model ---

type Model struct {
	opts Options

	// UI state
	view    ViewType
	tree    TreeModel
	history HistoryModel
	detail  DetailModel
	search  textinput.Model

	searching bool
	loading   bool
	err       error
	status    string
	width     int
	height    int

	edit       *EditDialog
	deleting   *types.BookmarkItem
	picker     *FolderPicker
	pickingFor string // url of the bookmark being moved
}

func NewModel(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryMax <= 0 {
		opts.HistoryMax = history.DefaultMax
	}
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search bookmarks..."
	return Model{opts: opts, search: search, loading: true}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTree(), m.loadHistory())
}

func (m Model) loadTree() tea.Cmd {
	svc := m.opts.Bookmarks
	return func() tea.Msg {
		forest, err := svc.Tree(context.Background())
		return treeLoadedMsg{forest: forest, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	store, max, now := m.opts.History, m.opts.HistoryMax, m.opts.Now()
	return func() tea.Msg {
		items, err := history.Recent(context.Background(), store, max, now)
		return historyLoadedMsg{items: items, err: err}
	}
}

func (m Model) open(url string) tea.Cmd {
	if htmlutil.IsScriptURL(url) {
		return func() tea.Msg { return openedMsg{url: url, skipped: true} }
	}
	tabs := m.opts.Tabs
	return func() tea.Msg {
		return openedMsg{url: url, err: tabs.Open(context.Background(), url)}
	}
}

func (m Model) openEdit(bm *types.BookmarkItem) tea.Cmd {
	svc := m.opts.Bookmarks
	return func() tea.Msg {
		ctx := context.Background()
		node, err := svc.Lookup(ctx, bm.URL)
		if err != nil {
			return editReadyMsg{err: err}
		}
		folders, err := svc.FolderChoices(ctx)
		if err != nil {
			return editReadyMsg{err: err}
		}
		return editReadyMsg{dialog: NewEditDialog(node.Title, node.URL, node.ParentID, folders)}
	}
}

func (m Model) openPicker(bm *types.BookmarkItem) tea.Cmd {
	svc := m.opts.Bookmarks
	return func() tea.Msg {
		ctx := context.Background()
		node, err := svc.Lookup(ctx, bm.URL)
		if err != nil {
			return foldersLoadedMsg{err: err}
		}
		folders, err := svc.FolderChoices(ctx)
		return foldersLoadedMsg{url: bm.URL, current: node.ParentID, folders: folders, err: err}
	}
}

// save updates the bookmark and moves it when the folder changed.
func (m Model) save(d EditDialog) tea.Cmd {
	svc := m.opts.Bookmarks
	title, url, folderID := d.Values()
	return func() tea.Msg {
		ctx := context.Background()
		if err := svc.Edit(ctx, d.URL, title, url, folderID); err != nil {
			return mutatedMsg{op: "update", err: err}
		}
		return mutatedMsg{status: "Bookmark updated."}
	}
}

func (m Model) remove(url string) tea.Cmd {
	svc := m.opts.Bookmarks
	return func() tea.Msg {
		if err := svc.Delete(context.Background(), url); err != nil {
			return mutatedMsg{op: "delete", err: err}
		}
		return mutatedMsg{status: "Bookmark deleted."}
	}
}

func (m Model) move(url, folderID string) tea.Cmd {
	svc := m.opts.Bookmarks
	return func() tea.Msg {
		if err := svc.Move(context.Background(), url, folderID); err != nil {
			return mutatedMsg{op: "move", err: err}
		}
		return mutatedMsg{status: "Bookmark moved."}
	}
}

func (m Model) fetchTitle(url string) tea.Cmd {
	titles := m.opts.Titles
	return func() tea.Msg {
		if titles == nil {
			return titleFetchedMsg{err: fmt.Errorf("title lookup is not available")}
		}
		title, err := titles.FetchTitle(context.Background(), url)
		return titleFetchedMsg{title: title, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.width * TreeWidthPct / 100
		detailWidth := m.width - treeWidth - 3 // borders
		paneHeight := m.height - 6             // navbar, search line, bottom bar
		m.tree.Width = treeWidth
		m.tree.Height = paneHeight
		m.history.Width = treeWidth
		m.history.Height = paneHeight
		m.detail.Width = detailWidth
		m.detail.Height = paneHeight
		m.search.Width = treeWidth - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case treeLoadedMsg:
		m.loading = false
		if msg.err != nil {
			applog.Error("tui.load", msg.err)
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if m.tree.Source == nil {
			bookmarks.Walk(msg.forest, func(f *types.BookmarkFolder, depth int) {
				f.Expanded = true
			})
			width, height := m.tree.Width, m.tree.Height
			m.tree = NewTreeModel(msg.forest)
			m.tree.Width, m.tree.Height = width, height
			return m, nil
		}
		m.tree.Replace(msg.forest)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			applog.Error("tui.history", msg.err)
			m.history.Err = "Failed to load history."
			return m, nil
		}
		m.history.SetItems(msg.items)
		return m, nil

	case editReadyMsg:
		if msg.err != nil {
			applog.Error("tui.edit", msg.err)
			m.status = newtab.UserMessage(msg.err, "edit")
			return m, nil
		}
		d := msg.dialog
		m.edit = &d
		return m, nil

	case foldersLoadedMsg:
		if msg.err != nil {
			applog.Error("tui.move", msg.err)
			m.status = newtab.UserMessage(msg.err, "move")
			return m, nil
		}
		p := NewFolderPicker(msg.folders, msg.current)
		m.picker = &p
		m.pickingFor = msg.url
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			applog.Error("tui."+msg.op, msg.err)
			m.status = newtab.UserMessage(msg.err, msg.op)
			return m, nil
		}
		m.edit = nil
		m.status = msg.status
		return m, m.loadTree()

	case titleFetchedMsg:
		if m.edit == nil {
			return m, nil
		}
		if msg.err != nil {
			applog.Error("tui.fetch_title", msg.err)
			m.edit.SetError("Could not read the page title.")
			return m, nil
		}
		m.edit.SetTitle(msg.title)
		m.edit.SetError("")
		return m, nil

	case openedMsg:
		if msg.skipped {
			m.status = newtab.MsgBookmarklet
			return m, nil
		}
		if msg.err != nil {
			applog.Error("tui.open", msg.err, "url", msg.url)
			m.status = "Could not open " + msg.url
			return m, nil
		}
		m.status = "Opened " + msg.url
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Edit dialog mode
	if m.edit != nil {
		switch msg.String() {
		case "esc":
			m.edit = nil
			return m, nil
		case "enter":
			title, url, _ := m.edit.Values()
			if title == "" || url == "" {
				m.edit.SetError("Name and URL are required.")
				return m, nil
			}
			return m, m.save(*m.edit)
		case "ctrl+t":
			_, url, _ := m.edit.Values()
			return m, m.fetchTitle(url)
		}
		d, cmd := m.edit.Update(msg)
		m.edit = &d
		return m, cmd
	}

	// Delete confirmation
	if m.deleting != nil {
		switch msg.String() {
		case "y", "enter":
			url := m.deleting.URL
			m.deleting = nil
			return m, m.remove(url)
		case "n", "esc":
			m.deleting = nil
		}
		return m, nil
	}

	// Folder picker mode
	if m.picker != nil {
		switch msg.String() {
		case "up", "k":
			m.picker.MoveUp()
		case "down", "j":
			m.picker.MoveDown()
		case "enter":
			f := m.picker.Selected()
			url := m.pickingFor
			m.picker = nil
			if f != nil {
				return m, m.move(url, f.ID)
			}
		case "esc":
			m.picker = nil
		}
		return m, nil
	}

	// Search input mode
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.setQuery("")
			return m, nil
		case "enter", "down":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.setQuery(m.search.Value())
		return m, cmd
	}

	m.status = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "h", "tab":
		m.switchView()
		return m, nil
	case "/":
		m.searching = true
		m.search.SetValue(m.currentQuery())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "esc":
		m.search.SetValue("")
		m.setQuery("")
		return m, nil
	case "r":
		return m, tea.Batch(m.loadTree(), m.loadHistory())
	}

	if m.view == ViewHistory {
		switch msg.String() {
		case "up", "k":
			m.history.MoveUp()
		case "down", "j":
			m.history.MoveDown()
		case "enter":
			if item := m.history.Selected(); item != nil {
				return m, m.open(item.URL)
			}
		}
		return m, nil
	}

	node := m.tree.SelectedNode()
	var bm *types.BookmarkItem
	if node != nil {
		bm = node.Bookmark
	}
	switch msg.String() {
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "left":
		m.tree.CollapseOrParent()
	case "right", "l":
		m.tree.ExpandOrEnter()
	case "enter", " ":
		if bm != nil {
			return m, m.open(bm.URL)
		}
		m.tree.Toggle()
	case "e":
		if bm != nil {
			return m, m.openEdit(bm)
		}
	case "d":
		if bm != nil {
			m.deleting = bm
		}
	case "m":
		if bm != nil {
			return m, m.openPicker(bm)
		}
	}
	return m, nil
}

func (m *Model) switchView() {
	if m.view == ViewBookmarks {
		m.view = ViewHistory
		m.search.Placeholder = "Search history..."
	} else {
		m.view = ViewBookmarks
		m.search.Placeholder = "Search bookmarks..."
	}
	m.search.SetValue(m.currentQuery())
}

func (m Model) currentQuery() string {
	if m.view == ViewHistory {
		return m.history.Query
	}
	return m.tree.Query
}

func (m *Model) setQuery(q string) {
	if m.view == ViewHistory {
		m.history.SetQuery(q)
		return
	}
	m.tree.SetQuery(q)
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading bookmarks...\n"
	}
	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press 'r' to retry, 'q' to quit.\n", m.err)
	}

	if m.edit != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.edit.View())
	}
	if m.deleting != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, confirmView(m.deleting))
	}
	if m.picker != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	entries := 0
	bookmarks.Walk(m.tree.Source, func(f *types.BookmarkFolder, depth int) {
		entries += len(f.Bookmarks)
	})
	stats := ""
	if m.tree.Query != "" {
		stats = fmt.Sprintf("filter: %q", m.tree.Query)
	}
	navbar := renderNavbar(m.view, m.opts.Profile, [2]int{entries, len(m.history.Items)}, stats, m.width)

	searchLine := m.search.View()
	if !m.searching && m.currentQuery() == "" {
		searchLine = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("/ to search")
	}

	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(m.tree.Width).
		Height(m.tree.Height)
	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.detail.Width).
		Height(m.detail.Height)

	var list, detail string
	if m.view == ViewHistory {
		list = m.history.View()
		detail = m.detail.ViewHistory(m.history.Selected(), m.opts.Now())
	} else {
		list = m.tree.View()
		if node := m.tree.SelectedNode(); node != nil {
			if node.Bookmark != nil {
				detail = m.detail.ViewBookmark(node.Bookmark, node.Parent)
			} else {
				detail = m.detail.ViewFolder(node.Folder)
			}
		}
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top, listBorder.Render(list), detailBorder.Render(detail))

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	var bottom string
	if m.status != "" {
		bottom = lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(m.status)
	} else if m.view == ViewHistory {
		bottom = bottomBarStyle.Render("↑↓/jk navigate · enter open · / search · h/tab bookmarks · r refresh · q quit")
	} else {
		bottom = bottomBarStyle.Render(strings.Join([]string{
			"↑↓/jk navigate", "←→ collapse/expand", "enter open/toggle", "/ search",
			"e edit", "d delete", "m move", "h/tab history", "q quit",
		}, " · "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, navbar, " "+searchLine, panes, bottom)
}
