// Package bookmarks converts the host bookmark tree into the folder forest
// shown on the new-tab page and wraps the host mutations.
package bookmarks

import (
	"strings"

	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/types"
)

// UntitledFolder is the title given to folders without one.
const UntitledFolder = "Untitled"

var toolbarTitles = map[string]bool{
	"Bookmarks bar":     true,
	"Bookmarks Bar":     true,
	"Bookmarks Toolbar": true,
	"ブックマーク バー":         true,
}

// IsToolbar reports whether a top-level node is the browser toolbar root.
func IsToolbar(title string) bool {
	return toolbarTitles[title]
}

// IsExcluded reports whether a top-level node is skipped entirely.
func IsExcluded(title string) bool {
	return strings.EqualFold(title, "Mobile bookmarks")
}

// ProcessTree converts the host tree into the displayed forest. The
// synthetic root is skipped, as is the mobile folder. Folders below the
// toolbar root become top-level folders, and the toolbar's own bookmarks are
// collected into a folder placed first.
func ProcessTree(roots []*host.Node) []*types.BookmarkFolder {
	var folders []*types.BookmarkFolder
	for _, root := range roots {
		if root.Children == nil {
			continue
		}
		for _, child := range root.Children {
			if !child.IsFolder() || IsExcluded(child.Title) {
				continue
			}
			if !IsToolbar(child.Title) {
				folders = append(folders, convertFolder(child))
				continue
			}

			var direct []types.BookmarkItem
			for _, n := range child.Children {
				switch {
				case n.IsFolder():
					folders = append(folders, convertFolder(n))
				case n.URL != "" && n.Title != "":
					direct = append(direct, types.BookmarkItem{Title: n.Title, URL: n.URL})
				}
			}
			if len(direct) > 0 {
				bar := &types.BookmarkFolder{
					ID:         child.ID,
					Title:      child.Title,
					Bookmarks:  direct,
					Subfolders: []*types.BookmarkFolder{},
					Expanded:   true,
				}
				folders = append([]*types.BookmarkFolder{bar}, folders...)
			}
		}
	}
	return folders
}

func convertFolder(n *host.Node) *types.BookmarkFolder {
	f := &types.BookmarkFolder{
		ID:         n.ID,
		Title:      n.Title,
		Bookmarks:  []types.BookmarkItem{},
		Subfolders: []*types.BookmarkFolder{},
		Expanded:   true,
	}
	if f.Title == "" {
		f.Title = UntitledFolder
	}
	for _, c := range n.Children {
		switch {
		case c.IsFolder():
			f.Subfolders = append(f.Subfolders, convertFolder(c))
		case c.URL != "" && c.Title != "":
			f.Bookmarks = append(f.Bookmarks, types.BookmarkItem{Title: c.Title, URL: c.URL})
		}
	}
	return f
}

// FindFolderByID searches the forest depth-first. It returns nil when no
// folder has the id.
func FindFolderByID(forest []*types.BookmarkFolder, id string) *types.BookmarkFolder {
	for _, f := range forest {
		if f.ID == id {
			return f
		}
		if found := FindFolderByID(f.Subfolders, id); found != nil {
			return found
		}
	}
	return nil
}

// TotalBookmarks counts the bookmarks in f and all of its subfolders.
func TotalBookmarks(f *types.BookmarkFolder) int {
	n := len(f.Bookmarks)
	for _, sub := range f.Subfolders {
		n += TotalBookmarks(sub)
	}
	return n
}

// Filter returns a copy of the forest holding only bookmarks whose title or
// URL contains term (case-insensitive), and the folders leading to them, all
// expanded. A blank term returns forest itself.
func Filter(forest []*types.BookmarkFolder, term string) []*types.BookmarkFolder {
	if strings.TrimSpace(term) == "" {
		return forest
	}
	return filter(forest, strings.ToLower(term))
}

func filter(forest []*types.BookmarkFolder, term string) []*types.BookmarkFolder {
	out := []*types.BookmarkFolder{}
	for _, f := range forest {
		matched := []types.BookmarkItem{}
		for _, b := range f.Bookmarks {
			if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.URL), term) {
				matched = append(matched, b)
			}
		}
		subs := filter(f.Subfolders, term)
		if len(matched) == 0 && len(subs) == 0 {
			continue
		}
		out = append(out, &types.BookmarkFolder{
			ID:         f.ID,
			Title:      f.Title,
			Bookmarks:  matched,
			Subfolders: subs,
			Expanded:   true,
		})
	}
	return out
}

// Folders lists every folder below the synthetic root(s) in tree order.
func Folders(roots []*host.Node) []types.FolderChoice {
	var out []types.FolderChoice
	var walk func(nodes []*host.Node, depth int)
	walk = func(nodes []*host.Node, depth int) {
		for _, n := range nodes {
			if !n.IsFolder() {
				continue
			}
			title := n.Title
			if title == "" {
				title = UntitledFolder
			}
			out = append(out, types.FolderChoice{ID: n.ID, Title: title, Depth: depth})
			walk(n.Children, depth+1)
		}
	}
	for _, root := range roots {
		walk(root.Children, 0)
	}
	return out
}

// Walk calls fn for every folder of the forest, parents before children.
func Walk(forest []*types.BookmarkFolder, fn func(f *types.BookmarkFolder, depth int)) {
	var walk func(folders []*types.BookmarkFolder, depth int)
	walk = func(folders []*types.BookmarkFolder, depth int) {
		for _, f := range folders {
			fn(f, depth)
			walk(f.Subfolders, depth+1)
		}
	}
	walk(forest, 0)
}

// KeepExpanded copies the Expanded flag of every folder in from onto the
// folder with the same id in to. Folders only present in to keep their flag.
func KeepExpanded(from, to []*types.BookmarkFolder) {
	expanded := make(map[string]bool)
	Walk(from, func(f *types.BookmarkFolder, depth int) {
		expanded[f.ID] = f.Expanded
	})
	Walk(to, func(f *types.BookmarkFolder, depth int) {
		if exp, ok := expanded[f.ID]; ok {
			f.Expanded = exp
		}
	})
}
