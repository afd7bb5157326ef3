package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/htmlutil"
	"github.com/lotas/lesezeichen/internal/types"
)

// Netscape formats the forest as a bookmarks.html file, the format every
// browser's "Import bookmarks from HTML" accepts.
func Netscape(forest []*types.BookmarkFolder, now time.Time) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString(`<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">` + "\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n<H1>Bookmarks</H1>\n<DL><p>\n")
	stamp := now.Unix()
	for _, f := range forest {
		writeNetscapeFolder(&b, f, 1, stamp)
	}
	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeNetscapeFolder(b *strings.Builder, f *types.BookmarkFolder, depth int, stamp int64) {
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n", indent, stamp, htmlutil.EscapeHTML(f.Title))
	fmt.Fprintf(b, "%s<DL><p>\n", indent)
	for _, bm := range f.Bookmarks {
		fmt.Fprintf(b, "%s    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			indent, htmlutil.EscapeHTML(bm.URL), stamp, htmlutil.EscapeHTML(bm.Title))
	}
	for _, sub := range f.Subfolders {
		writeNetscapeFolder(b, sub, depth+1, stamp)
	}
	fmt.Fprintf(b, "%s</DL><p>\n", indent)
}
