package analyzer

import (
	"github.com/lotas/lesezeichen/internal/host"
)

// Unvisited returns the entries whose URL does not appear in visited,
// typically the history of the last few weeks. Internal URLs never count
// as unvisited.
func Unvisited(entries []Entry, visited []host.HistoryEntry) []Entry {
	seen := make(map[string]bool, len(visited))
	for _, v := range visited {
		seen[NormalizeURL(v.URL)] = true
	}
	var out []Entry
	for _, e := range entries {
		if shouldSkip(e.URL) || seen[NormalizeURL(e.URL)] {
			continue
		}
		out = append(out, e)
	}
	return out
}
