package export

import "github.com/lotas/lesezeichen/internal/types"

func testForest() []*types.BookmarkFolder {
	return []*types.BookmarkFolder{
		{
			ID:    "3",
			Title: "Bookmarks Toolbar",
			Bookmarks: []types.BookmarkItem{
				{Title: "Go docs", URL: "https://go.dev/doc"},
			},
			Subfolders: []*types.BookmarkFolder{
				{
					ID:    "13",
					Title: "Dev & Tools",
					Bookmarks: []types.BookmarkItem{
						{Title: "Bubble Tea", URL: "https://github.com/charmbracelet/bubbletea"},
						{Title: "", URL: "https://notitle.com/page?a=1&b=2"},
					},
				},
			},
		},
		{
			ID:        "5",
			Title:     "Other Bookmarks",
			Bookmarks: []types.BookmarkItem{{Title: "Example", URL: "https://example.com"}},
		},
	}
}
