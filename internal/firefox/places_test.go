package firefox

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lotas/lesezeichen/internal/host"
)

const placesSchema = `
CREATE TABLE moz_places (
  id INTEGER PRIMARY KEY,
  url LONGVARCHAR,
  title LONGVARCHAR,
  rev_host LONGVARCHAR,
  visit_count INTEGER DEFAULT 0,
  hidden INTEGER DEFAULT 0 NOT NULL,
  typed INTEGER DEFAULT 0 NOT NULL,
  frecency INTEGER DEFAULT -1 NOT NULL,
  last_visit_date INTEGER,
  guid TEXT,
  foreign_count INTEGER DEFAULT 0 NOT NULL,
  url_hash INTEGER DEFAULT 0 NOT NULL
);
CREATE TABLE moz_bookmarks (
  id INTEGER PRIMARY KEY,
  type INTEGER,
  fk INTEGER DEFAULT NULL,
  parent INTEGER,
  position INTEGER,
  title LONGVARCHAR,
  dateAdded INTEGER,
  lastModified INTEGER,
  guid TEXT,
  syncStatus INTEGER NOT NULL DEFAULT 0,
  syncChangeCounter INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE moz_bookmarks_deleted (
  guid TEXT PRIMARY KEY,
  dateRemoved INTEGER NOT NULL DEFAULT 0
);
`

// writePlaces creates a places.sqlite shaped like a small Firefox profile:
//
//	root
//	  menu: Yahoo
//	  toolbar: Google, separator, Dev (MDN, Go)
//	  tags
//	    golang: Go (tag entry)
//	  unfiled
//	  mobile
func writePlaces(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), PlacesFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	now := time.Now()
	visit := func(d time.Duration) int64 { return now.Add(-d).UnixMicro() }
	if _, err := db.Exec(placesSchema); err != nil {
		t.Fatal(err)
	}
	places := []struct {
		id          int
		url, title  string
		visits      int
		hidden      int
		lastVisit   any
		foreignRefs int
	}{
		{1, "https://www.google.com/", "Google", 5, 0, visit(time.Hour), 1},
		{2, "https://developer.mozilla.org/", "MDN Web Docs", 2, 0, visit(2 * time.Hour), 1},
		{3, "https://go.dev/", "The Go Programming Language", 9, 0, visit(30 * time.Minute), 2},
		{4, "https://www.yahoo.com/", "Yahoo", 1, 0, visit(30 * 24 * time.Hour), 1},
		{5, "https://tracker.example/", "Hidden", 1, 1, visit(time.Minute), 0},
	}
	for _, p := range places {
		if _, err := db.Exec(`INSERT INTO moz_places (id, url, title, visit_count, hidden, last_visit_date, foreign_count, url_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.url, p.title, p.visits, p.hidden, p.lastVisit, p.foreignRefs, int64(URLHash(p.url))); err != nil {
			t.Fatal(err)
		}
	}
	bookmarks := []struct {
		id, typ     int
		fk          any
		parent, pos int
		title, guid string
	}{
		{1, 2, nil, 0, 0, "", "root________"},
		{2, 2, nil, 1, 0, "menu", "menu________"},
		{3, 2, nil, 1, 1, "toolbar", "toolbar_____"},
		{4, 2, nil, 1, 2, "tags", "tags________"},
		{5, 2, nil, 1, 3, "unfiled", "unfiled_____"},
		{6, 2, nil, 1, 4, "mobile", "mobile______"},
		{10, 1, 4, 2, 0, "Yahoo", "bm-yahoo____"},
		{11, 1, 1, 3, 0, "Google", "bm-google___"},
		{12, 3, nil, 3, 1, "", "separator___"},
		{13, 2, nil, 3, 2, "Dev", "folder-dev__"},
		{14, 1, 2, 13, 0, "MDN", "bm-mdn______"},
		{15, 1, 3, 13, 1, "Go", "bm-go_______"},
		{16, 2, nil, 4, 0, "golang", "tag-golang__"},
		{17, 1, 3, 16, 0, "", "tag-entry___"},
	}
	for _, b := range bookmarks {
		if _, err := db.Exec(`INSERT INTO moz_bookmarks (id, type, fk, parent, position, title, guid) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.id, b.typ, b.fk, b.parent, b.pos, b.title, b.guid); err != nil {
			t.Fatal(err)
		}
	}
	// Everything but Go has been synced already.
	if _, err := db.Exec(`UPDATE moz_bookmarks SET syncStatus = 2, syncChangeCounter = 0 WHERE id != 15`); err != nil {
		t.Fatal(err)
	}
	return path
}

func openPlaces(t *testing.T, path string, readOnly bool) *Places {
	t.Helper()
	p, err := OpenPlaces(path, readOnly)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func titles(nodes []*host.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Title)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlaces_Tree(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	roots, err := p.Tree(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 || roots[0].ID != "1" {
		t.Fatalf("roots = %+v", roots)
	}
	top := roots[0].Children
	want := []string{"Bookmarks Menu", "Bookmarks Toolbar", "Other Bookmarks", "Mobile Bookmarks"}
	if got := titles(top); !equal(got, want) {
		t.Fatalf("top folders = %v, want %v", got, want)
	}
	toolbar := top[1]
	if got := titles(toolbar.Children); !equal(got, []string{"Google", "Dev"}) {
		t.Errorf("toolbar children = %v", got)
	}
	dev := toolbar.Children[1]
	if !dev.IsFolder() || dev.ParentID != "3" {
		t.Errorf("dev = %+v", dev)
	}
	if dev.Children[1].URL != "https://go.dev/" {
		t.Errorf("go url = %q", dev.Children[1].URL)
	}
	if !top[2].IsFolder() || len(top[2].Children) != 0 {
		t.Error("empty root folder should still be a folder")
	}
}

func TestPlaces_SearchByURLSkipsTags(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	nodes, err := p.SearchByURL(context.Background(), "https://go.dev/")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].ID != "15" || nodes[0].ParentID != "13" {
		t.Fatalf("nodes = %+v", nodes)
	}
	nodes, _ = p.SearchByURL(context.Background(), "https://nowhere.example/")
	if len(nodes) != 0 {
		t.Errorf("unexpected match: %+v", nodes)
	}
}

func TestPlaces_UpdateTitleAndURL(t *testing.T) {
	path := writePlaces(t)
	p := openPlaces(t, path, false)
	ctx := context.Background()

	if err := p.Update(ctx, "11", host.Changes{Title: "Search", URL: "https://google.com/"}); err != nil {
		t.Fatal(err)
	}
	nodes, _ := p.SearchByURL(ctx, "https://google.com/")
	if len(nodes) != 1 || nodes[0].Title != "Search" {
		t.Fatalf("nodes = %+v", nodes)
	}
	if nodes, _ := p.SearchByURL(ctx, "https://www.google.com/"); len(nodes) != 0 {
		t.Error("old url still bookmarked")
	}

	var oldRefs, newRefs int
	var hash int64
	p.db.QueryRow(`SELECT foreign_count FROM moz_places WHERE url = ?`, "https://www.google.com/").Scan(&oldRefs)
	p.db.QueryRow(`SELECT foreign_count, url_hash FROM moz_places WHERE url = ?`, "https://google.com/").Scan(&newRefs, &hash)
	if oldRefs != 0 || newRefs != 1 {
		t.Errorf("foreign counts old=%d new=%d", oldRefs, newRefs)
	}
	if uint64(hash) != URLHash("https://google.com/") {
		t.Errorf("url_hash = %d", hash)
	}

	// Pointing at an existing place reuses its row.
	if err := p.Update(ctx, "10", host.Changes{URL: "https://go.dev/"}); err != nil {
		t.Fatal(err)
	}
	var count int
	p.db.QueryRow(`SELECT COUNT(*) FROM moz_places WHERE url = ?`, "https://go.dev/").Scan(&count)
	if count != 1 {
		t.Errorf("go.dev rows = %d", count)
	}

	if err := p.Update(ctx, "999", host.Changes{Title: "x"}); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
}

func TestPlaces_MoveKeepsPositionsDense(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	ctx := context.Background()

	if err := p.Move(ctx, "14", "2"); err != nil {
		t.Fatal(err)
	}
	positions := func(parent int) map[int]int {
		rows, err := p.db.Query(`SELECT id, position FROM moz_bookmarks WHERE parent = ?`, parent)
		if err != nil {
			t.Fatal(err)
		}
		defer rows.Close()
		out := map[int]int{}
		for rows.Next() {
			var id, pos int
			rows.Scan(&id, &pos)
			out[id] = pos
		}
		return out
	}
	if got := positions(13); len(got) != 1 || got[15] != 0 {
		t.Errorf("dev positions = %v", got)
	}
	if got := positions(2); got[10] != 0 || got[14] != 1 {
		t.Errorf("menu positions = %v", got)
	}

	if err := p.Move(ctx, "13", "13"); err == nil {
		t.Error("moving a folder into itself should fail")
	}
	if err := p.Move(ctx, "11", "10"); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("move into a bookmark err = %v", err)
	}
}

func TestPlaces_Remove(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	ctx := context.Background()

	if err := p.Remove(ctx, "13"); err != nil {
		t.Fatal(err)
	}
	var n int
	p.db.QueryRow(`SELECT COUNT(*) FROM moz_bookmarks WHERE id IN (13, 14, 15)`).Scan(&n)
	if n != 0 {
		t.Errorf("%d rows of the removed folder remain", n)
	}
	var goRefs int
	p.db.QueryRow(`SELECT foreign_count FROM moz_places WHERE id = 3`).Scan(&goRefs)
	if goRefs != 1 {
		t.Errorf("go.dev foreign_count = %d, want 1 (the tag)", goRefs)
	}
	if err := p.Remove(ctx, "13"); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
	if err := p.Remove(ctx, "3"); !errors.Is(err, host.ErrPermission) {
		t.Errorf("root remove err = %v", err)
	}
}

func TestPlaces_SyncBookkeeping(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	ctx := context.Background()
	counter := func(id int) int {
		var n int
		if err := p.db.QueryRow(`SELECT syncChangeCounter FROM moz_bookmarks WHERE id = ?`, id).Scan(&n); err != nil {
			t.Fatal(err)
		}
		return n
	}
	if !p.tracked {
		t.Fatal("sync columns not detected")
	}

	if err := p.Update(ctx, "11", host.Changes{Title: "Search"}); err != nil {
		t.Fatal(err)
	}
	if got := counter(11); got != 1 {
		t.Errorf("updated bookmark counter = %d, want 1", got)
	}

	if err := p.Move(ctx, "10", "13"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{10, 2, 13} {
		if got := counter(id); got != 1 {
			t.Errorf("counter of %d after move = %d, want 1", id, got)
		}
	}

	if err := p.Remove(ctx, "13"); err != nil {
		t.Fatal(err)
	}
	if got := counter(3); got != 1 {
		t.Errorf("toolbar counter after remove = %d, want 1", got)
	}
	rows, err := p.db.Query(`SELECT guid FROM moz_bookmarks_deleted ORDER BY guid`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var g string
		rows.Scan(&g)
		got = append(got, g)
	}
	want := []string{"bm-mdn______", "bm-yahoo____", "folder-dev__"}
	if !equal(got, want) {
		t.Errorf("tombstones = %v, want %v (never-synced Go needs none)", got, want)
	}
}

func TestPlaces_History(t *testing.T) {
	p := openPlaces(t, writePlaces(t), false)
	start := time.Now().Add(-7 * 24 * time.Hour).UnixMilli()

	entries, err := p.Search(context.Background(), host.HistoryQuery{StartTime: start, MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	var urls []string
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	want := []string{"https://go.dev/", "https://www.google.com/", "https://developer.mozilla.org/"}
	if !equal(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	if entries[0].VisitCount != 9 || entries[0].LastVisitTime < start {
		t.Errorf("entry = %+v", entries[0])
	}

	entries, _ = p.Search(context.Background(), host.HistoryQuery{StartTime: start, Text: "MOZILLA"})
	if len(entries) != 1 {
		t.Errorf("text search = %d entries", len(entries))
	}
	entries, _ = p.Search(context.Background(), host.HistoryQuery{StartTime: start, MaxResults: 1})
	if len(entries) != 1 {
		t.Errorf("max results = %d entries", len(entries))
	}
}

func TestPlaces_ReadOnlyCopy(t *testing.T) {
	path := writePlaces(t)
	p := openPlaces(t, path, true)
	ctx := context.Background()

	if !p.ReadOnly() {
		t.Fatal("expected read-only store")
	}
	if err := p.Remove(ctx, "11"); !errors.Is(err, host.ErrReadOnly) {
		t.Errorf("remove err = %v", err)
	}
	if err := p.Move(ctx, "11", "2"); !errors.Is(err, host.ErrReadOnly) {
		t.Errorf("move err = %v", err)
	}
	if err := p.Update(ctx, "11", host.Changes{Title: "x"}); !errors.Is(err, host.ErrReadOnly) {
		t.Errorf("update err = %v", err)
	}
	roots, err := p.Tree(ctx)
	if err != nil || len(roots[0].Children) != 4 {
		t.Fatalf("tree from copy: %v", err)
	}
	tmp := p.tmpDir
	p.Close()
	if matches, _ := filepath.Glob(filepath.Join(tmp, "*")); len(matches) != 0 {
		t.Errorf("temp copy left behind: %v", matches)
	}
}

func TestOpenPlaces_Missing(t *testing.T) {
	if _, err := OpenPlaces(filepath.Join(t.TempDir(), PlacesFile), false); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestURLHash(t *testing.T) {
	a, b := URLHash("https://a.example/"), URLHash("https://b.example/")
	if a>>32 != b>>32 {
		t.Error("same scheme should share the prefix bits")
	}
	if a == b {
		t.Error("different urls should hash differently")
	}
	if URLHash("http://a.example/")>>32 == a>>32 {
		t.Error("different schemes should differ in the prefix bits")
	}
	if a>>48 != 0 {
		t.Error("prefix must fit in 16 bits")
	}
}

func TestRevHost(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/path": "moc.elpmaxe.www.",
		"http://user@host:8080/":       "tsoh.",
		"about:blank":                  "",
	}
	for in, want := range tests {
		if got := revHost(in); got != want {
			t.Errorf("revHost(%q) = %q, want %q", in, got, want)
		}
	}
}
