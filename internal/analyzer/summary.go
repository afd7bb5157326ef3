package analyzer

import (
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/types"
)

// Stats are the counts printed by the check command.
type Stats struct {
	Folders      int
	Bookmarks    int
	EmptyFolders int
	MaxDepth     int
	Duplicates   int // bookmarks sharing a normalized URL with another
	Dead         int
	Unvisited    int
}

// ComputeStats counts the forest. Duplicate, dead and unvisited counts come
// from the other analyses.
func ComputeStats(forest []*types.BookmarkFolder, dups [][]Entry, dead []DeadLinkResult, unvisited []Entry) Stats {
	var stats Stats
	bookmarks.Walk(forest, func(f *types.BookmarkFolder, depth int) {
		stats.Folders++
		stats.Bookmarks += len(f.Bookmarks)
		if !f.Toggleable() {
			stats.EmptyFolders++
		}
		if depth+1 > stats.MaxDepth {
			stats.MaxDepth = depth + 1
		}
	})
	for _, g := range dups {
		stats.Duplicates += len(g)
	}
	for _, r := range dead {
		if r.IsDead {
			stats.Dead++
		}
	}
	stats.Unvisited = len(unvisited)
	return stats
}
