// Package analyzer inspects the bookmark forest: duplicates, dead links,
// bookmarks that were not visited recently and overall counts.
package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/types"
)

// Entry is a bookmark with the folder it lives in.
type Entry struct {
	Title    string
	URL      string
	FolderID string
	Folder   string // "Toolbar / Dev / Go"
}

// Flatten lists every bookmark of the forest, parents before children.
func Flatten(forest []*types.BookmarkFolder) []Entry {
	var out []Entry
	var walk func(folders []*types.BookmarkFolder, path []string)
	walk = func(folders []*types.BookmarkFolder, path []string) {
		for _, f := range folders {
			p := append(path[:len(path):len(path)], f.Title)
			name := strings.Join(p, " / ")
			for _, b := range f.Bookmarks {
				out = append(out, Entry{Title: b.Title, URL: b.URL, FolderID: f.ID, Folder: name})
			}
			walk(f.Subfolders, p)
		}
	}
	walk(forest, nil)
	return out
}

func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// Duplicates groups entries whose normalized URLs match. Groups keep
// entry order and are sorted by normalized URL. Exact duplicates are the
// bookmarks URL-based edits cannot tell apart: the first one always wins.
func Duplicates(entries []Entry) [][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		key := NormalizeURL(e.URL)
		groups[key] = append(groups[key], e)
	}
	var keys []string
	for k, g := range groups {
		if len(g) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}

// EmptyFolders returns the ids of folders with neither bookmarks nor
// subfolders.
func EmptyFolders(forest []*types.BookmarkFolder) []string {
	var out []string
	bookmarks.Walk(forest, func(f *types.BookmarkFolder, depth int) {
		if !f.Toggleable() {
			out = append(out, f.ID)
		}
	})
	return out
}
