package newtab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/favicon"
	"github.com/lotas/lesezeichen/internal/host"
)

func newStubFavicons(t *testing.T) *favicon.Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	t.Cleanup(srv.Close)
	return favicon.New(host.NewMemory(), favicon.Options{
		Client:       srv.Client(),
		WellKnownURL: func(domain string) string { return srv.URL + "/" + domain + ".ico" },
	})
}

type stubTitles struct {
	title string
	err   error
}

func (s stubTitles) FetchTitle(ctx context.Context, url string) (string, error) {
	return s.title, s.err
}

func editButton(url string) string {
	return `.bookmark-edit-btn[data-bookmark-url="` + url + `"]`
}

func deleteButton(url string) string {
	return `.bookmark-delete-btn[data-bookmark-url="` + url + `"]`
}

func TestEditDialog_Open(t *testing.T) {
	f := newFixture()
	p, _ := newPage(t, f)
	dispatch(t, p, "click", editButton("https://developer.mozilla.org/"), Event{})

	if p.q("#edit-dialog") == nil {
		t.Fatal("edit dialog not shown")
	}
	if got := dom.Value(p.q("#edit-title")); got != "MDN" {
		t.Errorf("title = %q", got)
	}
	if got := dom.Value(p.q("#edit-folder")); got != f.ids["frontend"] {
		t.Errorf("preselected folder = %q, want %q", got, f.ids["frontend"])
	}
	if p.q(`#edit-folder option[value="0"]`) != nil {
		t.Error("the synthetic root must not be offered")
	}

	dispatch(t, p, "click", ".edit-dialog-cancel", Event{})
	if p.q("#edit-dialog") != nil {
		t.Error("cancel should close the dialog")
	}
}

func TestEditDialog_SaveRequiresFields(t *testing.T) {
	f := newFixture()
	p, rec := newPage(t, f)
	dispatch(t, p, "click", editButton("https://www.google.com/"), Event{})
	dispatch(t, p, "input", "#edit-title", Event{Value: "   "})
	dispatch(t, p, "click", ".edit-dialog-save", Event{})

	errEl := p.q(".edit-dialog-error")
	if !strings.Contains(dom.Text(errEl), "required") || dom.Style(errEl, "display") != "block" {
		t.Errorf("error = %q", dom.Text(errEl))
	}
	if rec.has(OpReload) {
		t.Error("validation failure must not reload")
	}
	n, _ := f.store.SearchByURL(context.Background(), "https://www.google.com/")
	if n[0].Title != "Google" {
		t.Error("bookmark changed despite validation failure")
	}
}

func TestEditDialog_SaveUpdatesAndMoves(t *testing.T) {
	f := newFixture()
	p, rec := newPage(t, f)
	dispatch(t, p, "click", editButton("https://www.google.com/"), Event{})
	dispatch(t, p, "input", "#edit-title", Event{Value: "  Search  "})
	dispatch(t, p, "input", "#edit-url", Event{Value: "https://google.com/"})
	dispatch(t, p, "change", "#edit-folder", Event{Value: f.ids["other"]})
	dispatch(t, p, "click", ".edit-dialog-save", Event{})

	nodes, _ := f.store.SearchByURL(context.Background(), "https://google.com/")
	if len(nodes) != 1 {
		t.Fatal("bookmark not updated")
	}
	if nodes[0].Title != "Search" || nodes[0].ParentID != f.ids["other"] {
		t.Errorf("node = %+v", nodes[0])
	}
	if !rec.has(OpReload) {
		t.Error("save should reload the page")
	}
	if p.q("#edit-dialog") != nil {
		t.Error("dialog should close after save")
	}
}

func TestEditDialog_SaveOntoExistingURL(t *testing.T) {
	f := newFixture()
	p, _ := newPage(t, f)
	yahoo, _ := f.store.SearchByURL(context.Background(), "https://www.yahoo.com/")
	google, _ := f.store.SearchByURL(context.Background(), "https://www.google.com/")

	dispatch(t, p, "click", editButton("https://www.yahoo.com/"), Event{})
	dispatch(t, p, "input", "#edit-url", Event{Value: "https://www.google.com/"})
	dispatch(t, p, "change", "#edit-folder", Event{Value: f.ids["frontend"]})
	dispatch(t, p, "click", ".edit-dialog-save", Event{})

	n, _ := f.store.Node(yahoo[0].ID)
	if n.URL != "https://www.google.com/" || n.ParentID != f.ids["frontend"] {
		t.Errorf("edited bookmark = %+v, want it in %s", n, f.ids["frontend"])
	}
	n, _ = f.store.Node(google[0].ID)
	if n.ParentID != f.ids["toolbar"] {
		t.Errorf("bookmark already at that URL moved to %s", n.ParentID)
	}
}

func TestEditDialog_SaveFailureKeepsPage(t *testing.T) {
	f := newFixture()
	p, rec := newPage(t, f)
	dispatch(t, p, "click", editButton("https://www.google.com/"), Event{})
	f.store.Errs["Update"] = host.ErrPermission
	dispatch(t, p, "click", ".edit-dialog-save", Event{})

	if rec.has(OpReload) {
		t.Error("failed save must not reload")
	}
	msg := dom.Text(p.q(".error-dialog-message"))
	if !strings.Contains(msg, "permission") {
		t.Errorf("message = %q", msg)
	}
	if p.q("#edit-dialog") == nil {
		t.Error("dialog should stay open")
	}
}

func TestEditDialog_FetchTitle(t *testing.T) {
	f := newFixture()
	rec := &recorder{}
	p, err := New(Deps{
		Bookmarks: bookmarks.NewService(f.store),
		History:   f.store,
		Tabs:      f.store,
		Titles:    stubTitles{title: "Google Search"},
		Sink:      rec.sink,
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Load(context.Background())
	dispatch(t, p, "click", editButton("https://www.google.com/"), Event{})
	rec.reset()
	dispatch(t, p, "click", ".edit-dialog-fetch-title", Event{})

	if got := dom.Value(p.q("#edit-title")); got != "Google Search" {
		t.Errorf("title = %q", got)
	}
	if !rec.has(dom.OpValue) {
		t.Error("browser value not patched")
	}

	p.deps.Titles = stubTitles{err: errors.New("offline")}
	dispatch(t, p, "click", ".edit-dialog-fetch-title", Event{})
	if !strings.Contains(dom.Text(p.q(".edit-dialog-error")), "title") {
		t.Error("fetch failure not reported")
	}
}

func TestDeleteDialog(t *testing.T) {
	f := newFixture()
	p, rec := newPage(t, f)
	dispatch(t, p, "click", deleteButton("https://www.yahoo.com/"), Event{})
	if !strings.Contains(dom.Text(p.q(".delete-dialog-message")), "Yahoo") {
		t.Fatal("delete dialog missing the title")
	}
	dispatch(t, p, "click", ".delete-dialog-cancel", Event{})
	if p.q("#delete-dialog") != nil {
		t.Fatal("cancel should close the dialog")
	}
	if n, _ := f.store.SearchByURL(context.Background(), "https://www.yahoo.com/"); len(n) != 1 {
		t.Fatal("cancel must not delete")
	}

	dispatch(t, p, "click", deleteButton("https://www.yahoo.com/"), Event{})
	dispatch(t, p, "click", ".delete-dialog-confirm", Event{})
	if n, _ := f.store.SearchByURL(context.Background(), "https://www.yahoo.com/"); len(n) != 0 {
		t.Error("bookmark not deleted")
	}
	if !rec.has(OpReload) {
		t.Error("delete should reload")
	}
}

func TestDeleteDialog_NotFoundDoesNotReload(t *testing.T) {
	f := newFixture()
	p, rec := newPage(t, f)
	dispatch(t, p, "click", deleteButton("https://www.yahoo.com/"), Event{})

	nodes, _ := f.store.SearchByURL(context.Background(), "https://www.yahoo.com/")
	f.store.Remove(context.Background(), nodes[0].ID)
	dispatch(t, p, "click", ".delete-dialog-confirm", Event{})

	if rec.has(OpReload) {
		t.Error("failed delete must not reload")
	}
	msg := dom.Text(p.q(".error-dialog-message"))
	if !strings.Contains(msg, "could not be found") {
		t.Errorf("message = %q", msg)
	}
	dispatch(t, p, "click", ".error-dialog-close", Event{})
	if p.q("#error-dialog") != nil {
		t.Error("error dialog should close")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("delete: %w", host.ErrNotFound), "could not be found"},
		{host.ErrPermission, "permission"},
		{host.ErrReadOnly, "permission"},
		{context.DeadlineExceeded, "network error"},
		{&timeoutErr{}, "network error"},
		{errors.New("boom"), "Failed to delete"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err, "delete"); !strings.Contains(got, tt.want) {
			t.Errorf("UserMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }

