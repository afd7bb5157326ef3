package analyzer

import (
	"testing"

	"github.com/lotas/lesezeichen/internal/host"
)

func TestUnvisited(t *testing.T) {
	entries := []Entry{
		{Title: "Fresh", URL: "https://fresh.com/"},
		{Title: "Fresh with fragment", URL: "https://fresh.com#top"},
		{Title: "Forgotten", URL: "https://forgotten.com/"},
		{Title: "Internal", URL: "about:config"},
	}
	visited := []host.HistoryEntry{{URL: "https://fresh.com/"}}

	got := Unvisited(entries, visited)
	if len(got) != 1 || got[0].Title != "Forgotten" {
		t.Errorf("unvisited = %+v", got)
	}
}
