package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

// Markdown formats the bookmark forest as a markdown document. Top-level
// folders become sections, nested folders become nested list items.
func Markdown(profile string, forest []*types.BookmarkFolder) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Firefox Bookmarks: %s\n", profile)
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, f := range forest {
		n := countBookmarks(f)
		noun := "bookmarks"
		if n == 1 {
			noun = "bookmark"
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n\n", f.Title, n, noun)
		writeFolder(&b, f, 0)
	}

	return b.String()
}

func writeFolder(b *strings.Builder, f *types.BookmarkFolder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, bm := range f.Bookmarks {
		title := bm.Title
		if title == "" {
			title = bm.URL
		}
		fmt.Fprintf(b, "%s- [%s](%s)\n", indent, title, bm.URL)
	}
	for _, sub := range f.Subfolders {
		fmt.Fprintf(b, "%s- **%s**\n", indent, sub.Title)
		writeFolder(b, sub, depth+1)
	}
}

func countBookmarks(f *types.BookmarkFolder) int {
	n := len(f.Bookmarks)
	for _, sub := range f.Subfolders {
		n += countBookmarks(sub)
	}
	return n
}
