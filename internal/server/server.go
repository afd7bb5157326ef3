// Package server serves the new-tab page on localhost. Each websocket
// connection gets its own newtab.Page: browser events come in, DOM patches
// and browser commands go out.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"nhooyr.io/websocket"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/favicon"
	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/newtab"
	"github.com/lotas/lesezeichen/internal/render"
)

// Options configures a Server. Favicons, Titles and Tabs may be nil; with
// no Tabs the connected page opens tabs itself.
type Options struct {
	Port      int
	Bookmarks host.BookmarkStore
	History   host.HistoryStore
	Favicons  *favicon.Service
	Titles    newtab.TitleFetcher
	Tabs      host.TabOpener

	HistoryMax     int
	AllowedOrigins []string // CORS origins for the JSON API
}

// Server manages the new-tab page sessions.
type Server struct {
	opts      Options
	bookmarks *bookmarks.Service

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id   string
	ctx  context.Context
	page *newtab.Page
	out  chan []dom.Patch
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(opts Options) *Server {
	s := &Server{opts: opts, sessions: make(map[string]*session)}
	s.bookmarks = bookmarks.NewService(&notifyingStore{BookmarkStore: opts.Bookmarks, changed: s.Changed})
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.opts.Port
}

// Sessions returns the number of connected pages.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Handler returns the HTTP routes: the page shell, its assets, the
// websocket and the JSON API.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleShell).Methods("GET")
	router.HandleFunc("/assets/{name}", s.handleAsset).Methods("GET")
	router.HandleFunc("/ws", s.handleWS)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bookmarks", s.handleBookmarks).Methods("GET")
	api.HandleFunc("/folders", s.handleFolders).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/favicon", s.handleFavicon).Methods("GET")

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 && s.opts.Port != 0 {
		origins = []string{
			fmt.Sprintf("http://127.0.0.1:%d", s.opts.Port),
			fmt.Sprintf("http://localhost:%d", s.opts.Port),
		}
	}
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         86400,
	}
	if len(origins) == 0 {
		// An empty list means "*" to cors; refuse instead.
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(opts).Handler(router)
}

// ListenAndServe starts the server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.opts.Port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, render.Shell())
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := render.Asset(mux.Vars(r)["name"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleWS runs one page session until the browser goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		applog.Error("ws.accept", err)
		return
	}
	conn.SetReadLimit(1 << 20)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sess := &session{id: uuid.NewString(), ctx: ctx, out: make(chan []dom.Patch, 64)}
	ctx = withSession(ctx, sess.id)

	tabs := s.opts.Tabs
	if tabs == nil {
		tabs = sess
	}
	page, err := newtab.New(newtab.Deps{
		Bookmarks:  s.bookmarks,
		History:    s.opts.History,
		Tabs:       tabs,
		Favicons:   s.opts.Favicons,
		Titles:     s.opts.Titles,
		Sink:       sess.push,
		HistoryMax: s.opts.HistoryMax,
	})
	if err != nil {
		applog.Error("ws.page", err)
		conn.Close(websocket.StatusInternalError, "page setup failed")
		return
	}
	sess.page = page

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	applog.Info("ws.connected", "session", sess.id, "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		conn.CloseNow()
		applog.Info("ws.disconnected", "session", sess.id)
	}()

	go sess.writeLoop(ctx, conn)

	page.Load(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var ev newtab.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			applog.Error("ws.parse", err, "session", sess.id)
			continue
		}
		if err := page.Dispatch(ctx, ev); err != nil {
			applog.Error("ws.dispatch", err, "session", sess.id, "type", ev.Type)
		}
	}
}

// push queues a patch batch for the browser. It only blocks while the
// writer is behind, and never after the connection is gone.
func (sess *session) push(patches []dom.Patch) {
	select {
	case sess.out <- patches:
	case <-sess.ctx.Done():
	}
}

// Open asks the connected page to open url in a new tab.
func (sess *session) Open(ctx context.Context, url string) error {
	if sess.ctx.Err() != nil {
		return fmt.Errorf("open tab: page disconnected")
	}
	sess.push([]dom.Patch{{Op: newtab.OpOpen, Value: url}})
	return nil
}

func (sess *session) writeLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case patches := <-sess.out:
			data, err := json.Marshal(patches)
			if err != nil {
				applog.Error("ws.encode", err, "session", sess.id)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				applog.Error("ws.send", err, "session", sess.id)
				conn.CloseNow()
				return
			}
		}
	}
}

// Changed reloads the tree of every connected page except the session in
// ctx, which already reacts to its own change.
func (s *Server) Changed(ctx context.Context) {
	origin := sessionFrom(ctx)
	s.mu.Lock()
	var targets []*session
	for id, sess := range s.sessions {
		if id != origin {
			targets = append(targets, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range targets {
		go func(sess *session) {
			ev := newtab.Event{Type: "bookmarks-changed"}
			if err := sess.page.Dispatch(sess.ctx, ev); err != nil {
				applog.Error("ws.changed", err, "session", sess.id)
			}
		}(sess)
	}
}

type sessionKey struct{}

func withSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// notifyingStore reports successful mutations so other pages can reload.
type notifyingStore struct {
	host.BookmarkStore
	changed func(ctx context.Context)
}

func (n *notifyingStore) Update(ctx context.Context, id string, changes host.Changes) error {
	if err := n.BookmarkStore.Update(ctx, id, changes); err != nil {
		return err
	}
	n.changed(ctx)
	return nil
}

func (n *notifyingStore) Move(ctx context.Context, id, parentID string) error {
	if err := n.BookmarkStore.Move(ctx, id, parentID); err != nil {
		return err
	}
	n.changed(ctx)
	return nil
}

func (n *notifyingStore) Remove(ctx context.Context, id string) error {
	if err := n.BookmarkStore.Remove(ctx, id); err != nil {
		return err
	}
	n.changed(ctx)
	return nil
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	forest, err := s.bookmarks.Tree(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		forest = bookmarks.Filter(forest, q)
	}
	writeJSON(w, http.StatusOK, forest)
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.bookmarks.FolderChoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := history.Recent(r.Context(), s.opts.History, s.opts.HistoryMax, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, history.Filter(items, r.URL.Query().Get("q")))
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing url parameter"))
		return
	}
	icon := favicon.Placeholder
	if s.opts.Favicons != nil {
		icon = s.opts.Favicons.Get(r.Context(), pageURL)
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": pageURL, "favicon": icon})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("http.encode", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	applog.Error("http.error", err, "status", status)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
