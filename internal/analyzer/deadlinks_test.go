package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeadLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s", r.Method)
		}
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(404)
		case "/gone":
			w.WriteHeader(410)
		case "/moved":
			http.Redirect(w, r, "/page", http.StatusFound)
		default:
			w.WriteHeader(200)
		}
	}))
	defer srv.Close()

	entries := []Entry{
		{URL: srv.URL + "/page"},
		{URL: srv.URL + "/missing"},
		{URL: srv.URL + "/gone"},
		{URL: "about:newtab"},
		{URL: "place:sort=8&maxResults=10"},
		{URL: srv.URL + "/moved"},
		{URL: "http://127.0.0.1:1/refused"},
	}

	results := make(chan DeadLinkResult, len(entries))
	DeadLinks(context.Background(), srv.Client(), entries, results)
	close(results)

	got := map[int]DeadLinkResult{}
	for r := range results {
		got[r.Index] = r
	}
	if len(got) != 5 {
		t.Fatalf("checked %d entries, want 5", len(got))
	}
	if got[0].IsDead || got[5].IsDead {
		t.Error("live pages reported dead")
	}
	if !got[1].IsDead || got[1].Reason != "404" {
		t.Errorf("404 result = %+v", got[1])
	}
	if !got[2].IsDead || got[2].Reason != "410" {
		t.Errorf("410 result = %+v", got[2])
	}
	if !got[6].IsDead || got[6].Reason != "unreachable" {
		t.Errorf("refused result = %+v", got[6])
	}
	if _, ok := got[3]; ok {
		t.Error("about: url should not be checked")
	}
}

func TestDeadLinks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries := make([]Entry, 30)
	for i := range entries {
		entries[i] = Entry{URL: "http://127.0.0.1:1/"}
	}
	results := make(chan DeadLinkResult, len(entries))
	DeadLinks(ctx, nil, entries, results)
	close(results)
	for r := range results {
		if !r.IsDead {
			t.Errorf("cancelled check reported live: %+v", r)
		}
	}
}
