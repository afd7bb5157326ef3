// Package newtab is the new-tab page controller. A Page owns the bookmark
// forest and a server-side copy of the page document. Browser events are
// applied one at a time and the resulting DOM patches are pushed to a sink.
package newtab

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/favicon"
	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/render"
	"github.com/lotas/lesezeichen/internal/types"
)

// Browser commands sent alongside DOM patches.
const (
	OpReload = "reload"
	OpOpen   = "open"
)

// Event is a browser event. Path addresses the event target the same way
// dom.Patch paths do.
type Event struct {
	Type  string `json:"type"`
	Path  []int  `json:"path"`
	Value string `json:"value,omitempty"`
	Key   string `json:"key,omitempty"`
}

// TitleFetcher looks up a page title for the edit dialog.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) (string, error)
}

// Deps are the collaborators of a Page. Favicons and Titles may be nil.
type Deps struct {
	Bookmarks *bookmarks.Service
	History   host.HistoryStore
	Tabs      host.TabOpener
	Favicons  *favicon.Service
	Titles    TitleFetcher

	// Sink receives every batch of patches. It is called with the page
	// lock held and must not call back into the Page.
	Sink func([]dom.Patch)

	HistoryMax int
	Now        func() time.Time
	Location   *time.Location
}

// Page is one open new-tab page.
type Page struct {
	mu   sync.Mutex
	deps Deps
	doc  *dom.Document

	forest []*types.BookmarkFolder
	view   []*types.BookmarkFolder
	query  string

	chrome   bool
	commands []dom.Patch

	edit *editState
	del  *deleteState
	drag *dragState

	sidebarOpen  bool
	history      []types.HistoryItem
	historyQuery string

	bg sync.WaitGroup
}

// New returns a Page showing the empty shell.
func New(deps Deps) (*Page, error) {
	doc, err := dom.Parse(render.Shell())
	if err != nil {
		return nil, fmt.Errorf("parse shell: %w", err)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HistoryMax <= 0 {
		deps.HistoryMax = history.DefaultMax
	}
	if deps.Sink == nil {
		deps.Sink = func([]dom.Patch) {}
	}
	return &Page{deps: deps, doc: doc}, nil
}

// Load initializes the favicon cache, renders the tree and installs the
// history sidebar and drop indicator. A tree failure is shown on the page
// and returned.
func (p *Page) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.flush()

	if p.deps.Favicons != nil {
		p.deps.Favicons.Init(ctx)
	}
	p.installChrome()

	forest, err := p.deps.Bookmarks.Tree(ctx)
	if err != nil {
		applog.Error("newtab.load", err)
		p.doc.SetInnerHTML(p.container(), render.LoadError())
		return err
	}
	p.forest = forest
	p.view = forest
	p.query = ""
	p.renderView(ctx)
	applog.Info("newtab.load", "folders", len(forest))
	return nil
}

// Dispatch applies one browser event.
func (p *Page) Dispatch(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.flush()

	target := p.doc.NodeAt(ev.Path)
	switch ev.Type {
	case "click":
		if target != nil {
			p.click(ctx, target)
		}
	case "input", "change":
		if target != nil {
			p.input(ctx, target, ev.Value)
		}
	case "keydown":
		if ev.Key == "Escape" {
			p.escape()
		}
	case "dragstart":
		p.dragStart(target)
	case "dragover":
		p.dragOver(target)
	case "dragleave":
		p.dragLeave(target)
	case "drop":
		p.dropOn(ctx, target)
	case "dragend":
		p.endDrag()
	case "bookmarks-changed":
		p.reloadTree(ctx)
	default:
		return fmt.Errorf("unknown event %q", ev.Type)
	}
	return nil
}

// Wait blocks until background favicon loads have finished.
func (p *Page) Wait() {
	p.bg.Wait()
}

// Forest returns the unfiltered forest.
func (p *Page) Forest() []*types.BookmarkFolder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forest
}

// View returns the forest currently on screen.
func (p *Page) View() []*types.BookmarkFolder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// FindFolder looks up a folder in the forest on screen.
func (p *Page) FindFolder(id string) *types.BookmarkFolder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bookmarks.FindFolderByID(p.view, id)
}

// Body renders the current <body> contents.
func (p *Page) Body() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return dom.InnerHTML(p.doc.Body())
}

func (p *Page) flush() {
	patches := append(p.doc.Flush(), p.commands...)
	p.commands = nil
	if len(patches) > 0 {
		p.deps.Sink(patches)
	}
}

func (p *Page) command(op, value string) {
	p.commands = append(p.commands, dom.Patch{Op: op, Value: value})
}

func (p *Page) container() *html.Node {
	return p.doc.ByID("bookmarkContainer")
}

func (p *Page) installChrome() {
	if p.chrome {
		return
	}
	p.chrome = true
	body := p.doc.Body()
	p.doc.AppendHTML(body, render.HistorySidebar()+render.HistoryOverlay()+render.DropIndicator())
	if header := p.doc.Query("header"); header != nil {
		p.doc.AppendHTML(header, render.HistoryToggle())
	}
}

func (p *Page) renderView(ctx context.Context) {
	c := p.container()
	p.doc.SetInnerHTML(c, render.Folders(p.view))
	p.loadFavicons(ctx, c, "img.bookmark-favicon", "data-bookmark-url")
}

// reloadTree refetches the forest after a change made elsewhere, keeping
// the search term and the expansion state of folders that still exist.
func (p *Page) reloadTree(ctx context.Context) {
	forest, err := p.deps.Bookmarks.Tree(ctx)
	if err != nil {
		applog.Error("newtab.reload", err)
		p.doc.SetInnerHTML(p.container(), render.LoadError())
		return
	}
	bookmarks.KeepExpanded(p.forest, forest)
	view := bookmarks.Filter(forest, p.query)
	if strings.TrimSpace(p.query) != "" {
		bookmarks.KeepExpanded(p.view, view)
	}
	p.forest = forest
	p.view = view
	p.renderView(ctx)
}

func (p *Page) click(ctx context.Context, target *html.Node) {
	if dom.Closest(target, "#bookmarkContainer") != nil {
		switch {
		case dom.Closest(target, ".bookmark-edit-btn") != nil:
			p.openEdit(ctx, dom.Closest(target, ".bookmark-edit-btn"))
		case dom.Closest(target, ".bookmark-delete-btn") != nil:
			p.openDelete(dom.Closest(target, ".bookmark-delete-btn"))
		case dom.Closest(target, ".bookmark-link") != nil:
			p.openTab(ctx, dom.Attr(dom.Closest(target, ".bookmark-link"), "data-url"))
		case dom.Closest(target, ".folder-header") != nil:
			p.toggle(dom.Closest(target, ".folder-header"))
		}
		return
	}

	switch {
	case dom.Closest(target, ".edit-dialog-close, .edit-dialog-cancel") != nil:
		p.closeEdit()
	case dom.Closest(target, ".edit-dialog-save") != nil:
		p.saveEdit(ctx)
	case dom.Closest(target, ".edit-dialog-fetch-title") != nil:
		p.fetchTitle(ctx)
	case dom.Closest(target, ".delete-dialog-close, .delete-dialog-cancel") != nil:
		p.closeDelete()
	case dom.Closest(target, ".delete-dialog-confirm") != nil:
		p.confirmDelete(ctx)
	case dom.Closest(target, ".error-dialog-close") != nil:
		p.closeError()
	case dom.Closest(target, ".history-toggle-btn") != nil:
		if p.sidebarOpen {
			p.closeSidebar()
		} else {
			p.openSidebar(ctx)
		}
	case dom.Closest(target, ".history-sidebar-close, .history-sidebar-overlay") != nil:
		p.closeSidebar()
	case dom.Closest(target, "a.history-item-title") != nil:
		p.openTab(ctx, dom.Attr(dom.Closest(target, "a.history-item-title"), "href"))
	}
}

func (p *Page) input(ctx context.Context, target *html.Node, value string) {
	p.doc.SetValue(target, value)
	switch {
	case dom.Matches(target, "#searchInput"):
		p.query = value
		p.view = bookmarks.Filter(p.forest, value)
		p.renderView(ctx)
	case dom.Matches(target, ".history-search-input"):
		p.historyQuery = value
		if p.sidebarOpen {
			p.renderHistory(ctx)
		}
	}
}

func (p *Page) escape() {
	p.closeEdit()
	p.closeDelete()
	p.closeError()
	p.closeSidebar()
}

func (p *Page) openTab(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if htmlutil.IsScriptURL(url) {
		applog.Info("newtab.open_skipped", "reason", "bookmarklet")
		p.showError(MsgBookmarklet)
		return
	}
	if err := p.deps.Tabs.Open(ctx, url); err != nil {
		applog.Error("newtab.open", err, "url", url)
		p.showError(UserMessage(err, "open"))
	}
}
