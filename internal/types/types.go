package types

// BookmarkItem is a single bookmark rendered inside a folder.
type BookmarkItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Favicon string `json:"favicon,omitempty"` // filled in after the initial render
}

// BookmarkFolder is a folder of the displayed forest.
// ID is the host store's node id, so lookups round-trip after a rebuild.
// Expanded is the only field that changes in normal operation.
type BookmarkFolder struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Bookmarks  []BookmarkItem    `json:"bookmarks"`
	Subfolders []*BookmarkFolder `json:"subfolders"`
	Expanded   bool              `json:"expanded"`
}

// HasSubfolders reports whether the folder owns a subfolder container.
func (f *BookmarkFolder) HasSubfolders() bool { return len(f.Subfolders) > 0 }

// HasBookmarks reports whether the folder owns a bookmark list.
func (f *BookmarkFolder) HasBookmarks() bool { return len(f.Bookmarks) > 0 }

// Toggleable reports whether clicking the folder header does anything.
func (f *BookmarkFolder) Toggleable() bool { return f.HasSubfolders() || f.HasBookmarks() }

// HistoryItem is a browsing history entry with defaults applied.
type HistoryItem struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	LastVisitTime int64  `json:"lastVisitTime"` // ms since epoch
	VisitCount    int    `json:"visitCount"`
	TypedCount    int    `json:"typedCount"`
}

// FaviconCacheData is the persisted favicon cache blob.
type FaviconCacheData struct {
	Data      map[string]string `json:"data"`
	Timestamp int64             `json:"timestamp"` // ms since epoch
}

// FolderChoice is a move target offered by the edit dialog and the TUI picker.
type FolderChoice struct {
	ID    string
	Title string
	Depth int
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
