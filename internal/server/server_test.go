package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/newtab"
	"github.com/lotas/lesezeichen/internal/render"
	"github.com/lotas/lesezeichen/internal/types"
)

func newStore() *host.Memory {
	m := host.NewMemory()
	bar := m.AddFolder(host.RootID, "Bookmarks bar")
	m.AddBookmark(bar, "Go", "https://go.dev/")
	other := m.AddFolder(host.RootID, "Other bookmarks")
	m.AddBookmark(other, "Yahoo", "https://www.yahoo.com/")
	m.AddHistory(host.HistoryEntry{ID: "1", URL: "https://go.dev/", Title: "Go", LastVisitTime: time.Now().Add(-time.Hour).UnixMilli()})
	return m
}

func newTestServer(t *testing.T, m *host.Memory) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(Options{Bookmarks: m, History: m})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// browser mirrors the page the way shim.js does.
type browser struct {
	t    *testing.T
	conn *websocket.Conn
	doc  *dom.Document
	cmds []dom.Patch
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *browser {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	doc, err := dom.Parse(render.Shell())
	if err != nil {
		t.Fatal(err)
	}
	return &browser{t: t, conn: conn, doc: doc}
}

// read applies one batch of patches.
func (b *browser) read(ctx context.Context) []dom.Patch {
	b.t.Helper()
	_, data, err := b.conn.Read(ctx)
	if err != nil {
		b.t.Fatalf("read: %v", err)
	}
	var patches []dom.Patch
	if err := json.Unmarshal(data, &patches); err != nil {
		b.t.Fatalf("unmarshal: %v", err)
	}
	for _, p := range patches {
		n := b.doc.NodeAt(p.Path)
		switch p.Op {
		case newtab.OpOpen, newtab.OpReload:
			b.cmds = append(b.cmds, p)
		case dom.OpHTML:
			b.doc.SetInnerHTML(n, p.HTML)
		case dom.OpAppend:
			b.doc.AppendHTML(n, p.HTML)
		case dom.OpRemove:
			b.doc.Remove(n)
		case dom.OpAttr:
			b.doc.SetAttr(n, p.Name, p.Value)
		case dom.OpRemoveAttr:
			b.doc.RemoveAttr(n, p.Name)
		case dom.OpText:
			b.doc.SetText(n, p.Value)
		}
	}
	b.doc.Flush()
	return patches
}

func (b *browser) send(ctx context.Context, typ, sel string, ev newtab.Event) {
	b.t.Helper()
	n := b.doc.Query(sel)
	if n == nil {
		b.t.Fatalf("no element for %s", sel)
	}
	path, ok := b.doc.Path(n)
	if !ok {
		b.t.Fatalf("element %s not attached", sel)
	}
	ev.Type = typ
	ev.Path = path
	data, _ := json.Marshal(ev)
	if err := b.conn.Write(ctx, websocket.MessageText, data); err != nil {
		b.t.Fatalf("write: %v", err)
	}
}

func TestShellAndAssets(t *testing.T) {
	_, ts := newTestServer(t, newStore())

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `id="bookmarkContainer"`) {
		t.Error("shell missing the bookmark container")
	}

	resp, err = http.Get(ts.URL + "/assets/shim.js")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "javascript") {
		t.Errorf("shim: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, _ = http.Get(ts.URL + "/assets/missing.js")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing asset status = %d", resp.StatusCode)
	}
}

func TestPageSession(t *testing.T) {
	m := newStore()
	srv, ts := newTestServer(t, m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := dial(t, ctx, ts)
	b.read(ctx)
	if got := len(b.doc.QueryAll(".bookmark-folder")); got != 2 {
		t.Fatalf("folders after load = %d", got)
	}
	if b.doc.Query(".history-toggle-btn") == nil {
		t.Error("history toggle not installed")
	}
	if srv.Sessions() != 1 {
		t.Errorf("sessions = %d", srv.Sessions())
	}

	b.send(ctx, "input", "#searchInput", newtab.Event{Value: "yahoo"})
	b.read(ctx)
	if got := len(b.doc.QueryAll(".bookmark-link")); got != 1 {
		t.Fatalf("links after search = %d", got)
	}

	b.send(ctx, "click", ".bookmark-link", newtab.Event{})
	b.read(ctx)
	if len(b.cmds) != 1 || b.cmds[0].Op != newtab.OpOpen || b.cmds[0].Value != "https://www.yahoo.com/" {
		t.Errorf("commands = %+v", b.cmds)
	}
}

func TestPageSession_ChangesReachOtherPages(t *testing.T) {
	m := newStore()
	_, ts := newTestServer(t, m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, ts)
	a.read(ctx)
	other := dial(t, ctx, ts)
	other.read(ctx)

	a.send(ctx, "click", `.bookmark-delete-btn[data-bookmark-url="https://go.dev/"]`, newtab.Event{})
	a.read(ctx)
	a.send(ctx, "click", ".delete-dialog-confirm", newtab.Event{})
	a.read(ctx)
	if len(a.cmds) != 1 || a.cmds[0].Op != newtab.OpReload {
		t.Errorf("deleting page commands = %+v", a.cmds)
	}

	other.read(ctx)
	if other.doc.Query(`.bookmark-link[data-url="https://go.dev/"]`) != nil {
		t.Error("other page still shows the deleted bookmark")
	}
}

func TestAPI(t *testing.T) {
	_, ts := newTestServer(t, newStore())

	get := func(path string, v any) int {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if v != nil {
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				t.Fatalf("%s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	var forest []*types.BookmarkFolder
	if code := get("/api/bookmarks", &forest); code != http.StatusOK || len(forest) != 2 {
		t.Errorf("bookmarks: %d, %d folders", code, len(forest))
	}
	forest = nil
	get("/api/bookmarks?q=yahoo", &forest)
	if len(forest) != 1 || forest[0].Title != "Other bookmarks" {
		t.Errorf("filtered bookmarks = %+v", forest)
	}

	var folders []types.FolderChoice
	get("/api/folders", &folders)
	if len(folders) != 2 {
		t.Errorf("folders = %+v", folders)
	}

	var items []types.HistoryItem
	if code := get("/api/history", &items); code != http.StatusOK || len(items) != 1 {
		t.Errorf("history: %d, %+v", code, items)
	}

	var errBody map[string]string
	if code := get("/api/favicon", &errBody); code != http.StatusBadRequest || errBody["error"] == "" {
		t.Errorf("favicon without url: %d %v", code, errBody)
	}
	var icon map[string]string
	get("/api/favicon?url=https://go.dev/", &icon)
	if !strings.HasPrefix(icon["favicon"], "data:image/svg+xml") {
		t.Errorf("favicon = %v", icon)
	}
}

func TestCORS(t *testing.T) {
	srv := New(Options{Bookmarks: newStore(), History: newStore(), AllowedOrigins: []string{"moz-extension://*"}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/api/bookmarks", nil)
	req.Header.Set("Origin", "moz-extension://abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "moz-extension://abc" {
		t.Errorf("allowed origin = %q", got)
	}

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestWatch_ReloadsOnlyForTreeChanges(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "places.sqlite")
	wal := db + "-wal"
	os.WriteFile(db, []byte("db"), 0644)
	store := newStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notified := make(chan struct{}, 4)
	w, err := newTreeWatcher(ctx, store, 20*time.Millisecond, func() { notified <- struct{}{} }, db, wal)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()

	// A history visit writes the WAL but leaves the tree alone.
	os.WriteFile(wal, []byte("visit"), 0644)
	os.WriteFile(filepath.Join(dir, "favicons.sqlite"), []byte("icon"), 0644)
	select {
	case <-notified:
		t.Fatal("write without a tree change reloaded pages")
	case <-time.After(300 * time.Millisecond):
	}

	store.AddFolder(host.RootID, "Reading list")
	os.WriteFile(wal, []byte("bookmark"), 0644)
	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("tree change not reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	srv := New(Options{Bookmarks: newStore()})
	err := srv.Watch(context.Background(), filepath.Join(t.TempDir(), "gone", "places.sqlite"))
	if err == nil {
		t.Fatal("expected an error for a missing profile directory")
	}
}
