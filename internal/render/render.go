// Package render produces the new-tab page markup: folders, bookmark
// items, dialogs and the history sidebar. Every user-controlled string is
// escaped with htmlutil.EscapeHTML before it reaches the markup.
package render

import (
	"fmt"
	"strings"

	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/types"
)

// Folder icons.
const (
	IconExpanded  = "📂"
	IconCollapsed = "📁"
	IconEmpty     = "📄"
)

var esc = htmlutil.EscapeHTML

// Display returns the inline display value for an expanded flag.
func Display(expanded bool) string {
	if expanded {
		return "block"
	}
	return "none"
}

// State returns the expanded/collapsed class for an expanded flag.
func State(expanded bool) string {
	if expanded {
		return "expanded"
	}
	return "collapsed"
}

// Icon returns the expand icon glyph for an expanded flag.
func Icon(expanded bool) string {
	if expanded {
		return IconExpanded
	}
	return IconCollapsed
}

// Folders renders a forest. An empty forest renders the no-results notice.
func Folders(forest []*types.BookmarkFolder) string {
	if len(forest) == 0 {
		return NoResults()
	}
	var b strings.Builder
	for _, f := range forest {
		renderFolder(&b, f, 0, true)
	}
	return b.String()
}

// Folder renders one folder and all of its descendants at level.
func Folder(f *types.BookmarkFolder, level int) string {
	var b strings.Builder
	renderFolder(&b, f, level, true)
	return b.String()
}

// renderFolder writes f. visible is false when some ancestor is collapsed;
// such folders carry the hidden class.
func renderFolder(b *strings.Builder, f *types.BookmarkFolder, level int, visible bool) {
	class := "bookmark-folder"
	if !visible {
		class += " hidden"
	}
	fmt.Fprintf(b, `<div class="%s" data-level="%d" data-folder-id="%s">`, class, level, esc(f.ID))
	renderHeader(b, f)
	if f.HasBookmarks() {
		b.WriteString(BookmarkList(f.Bookmarks, f.Expanded))
	}
	if f.HasSubfolders() {
		fmt.Fprintf(b, `<div class="subfolders-container %s" style="display: %s;">`, State(f.Expanded), Display(f.Expanded))
		for _, sub := range f.Subfolders {
			renderFolder(b, sub, level+1, visible && f.Expanded)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
}

func renderHeader(b *strings.Builder, f *types.BookmarkFolder) {
	class := "folder-header"
	switch {
	case f.HasSubfolders():
		class += " has-subfolders"
	case f.HasBookmarks():
		class += " has-bookmarks"
	}
	fmt.Fprintf(b, `<div class="%s"><div class="folder-info">`, class)
	if f.Toggleable() {
		iconClass := "expand-icon"
		if f.Expanded {
			iconClass += " expanded"
		}
		fmt.Fprintf(b, `<span class="%s">%s</span>`, iconClass, Icon(f.Expanded))
	} else {
		fmt.Fprintf(b, `<span class="folder-icon">%s</span>`, IconEmpty)
	}
	fmt.Fprintf(b, `<h2 class="folder-title">%s</h2>`, esc(f.Title))
	if f.HasSubfolders() {
		fmt.Fprintf(b, `<span class="subfolder-count">%s</span>`, SubfolderCount(len(f.Subfolders)))
	}
	fmt.Fprintf(b, `</div><span class="bookmark-count">%d</span></div>`, bookmarks.TotalBookmarks(f))
}

// SubfolderCount is the label shown next to a folder title.
func SubfolderCount(n int) string {
	if n == 1 {
		return "1 folder"
	}
	return fmt.Sprintf("%d folders", n)
}

// BookmarkList renders a folder's bookmark list. Empty input renders
// nothing.
func BookmarkList(items []types.BookmarkItem, expanded bool) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<ul class="bookmark-list %s" style="display: %s;">`, State(expanded), Display(expanded))
	for _, item := range items {
		b.WriteString(BookmarkItem(item))
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// BookmarkItem renders a single bookmark with its favicon slot and the
// edit and delete buttons.
func BookmarkItem(item types.BookmarkItem) string {
	url, title := esc(item.URL), esc(item.Title)
	placeholder := `<div class="favicon-placeholder">🔗</div>`
	img := fmt.Sprintf(`<img class="bookmark-favicon hidden" alt="" data-bookmark-url="%s">`, url)
	if item.Favicon != "" {
		placeholder = `<div class="favicon-placeholder" style="display: none;">🔗</div>`
		img = fmt.Sprintf(`<img class="bookmark-favicon" alt="" data-bookmark-url="%s" src="%s">`, url, esc(item.Favicon))
	}
	return `<li class="bookmark-item">` +
		fmt.Sprintf(`<a href="#" class="bookmark-link" data-url="%s" draggable="true">`, url) +
		`<div class="bookmark-favicon-container">` + placeholder + img + `</div>` +
		fmt.Sprintf(`<span class="bookmark-title">%s</span></a>`, title) +
		`<div class="bookmark-actions">` +
		fmt.Sprintf(`<button class="bookmark-edit-btn" data-bookmark-url="%s" data-bookmark-title="%s" title="Edit">✏️</button>`, url, title) +
		fmt.Sprintf(`<button class="bookmark-delete-btn" data-bookmark-url="%s" data-bookmark-title="%s" title="Delete">🗑️</button>`, url, title) +
		`</div></li>`
}

// Loading is the placeholder shown before the tree arrives.
func Loading() string {
	return `<div class="loading">Loading bookmarks...</div>`
}

// LoadError replaces the container when the tree cannot be fetched.
func LoadError() string {
	return `<div class="loading">Failed to load bookmarks.</div>`
}

// NoResults replaces the container when a search matches nothing.
func NoResults() string {
	return `<div class="no-results">No bookmarks found.</div>`
}

// DropIndicator is the floating "drop here" marker used while dragging.
func DropIndicator() string {
	return `<div class="bookmark-drop-indicator" style="display: none;">Drop here</div>`
}
