package server

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/host"
)

// watchDebounce is how long writes must settle before the tree is compared.
const watchDebounce = 500 * time.Millisecond

// Watch reloads every connected page when Firefox changes the bookmark tree
// behind one of the given files. Writes that leave the tree as it was, such
// as history visits, are ignored. It returns when ctx is done.
func (s *Server) Watch(ctx context.Context, paths ...string) error {
	w, err := newTreeWatcher(ctx, s.opts.Bookmarks, watchDebounce, func() {
		applog.Info("server.store_changed", "sessions", s.Sessions())
		s.Changed(context.Background())
	}, paths...)
	if err != nil {
		return err
	}
	w.run(ctx)
	return nil
}

type treeWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	store    host.BookmarkStore
	debounce time.Duration
	notify   func()
	last     uint64
}

// newTreeWatcher watches the directories holding paths, so files that
// Firefox creates and removes, like the WAL, are seen too.
func newTreeWatcher(ctx context.Context, store host.BookmarkStore, debounce time.Duration, notify func(), paths ...string) (*treeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &treeWatcher{
		watcher:  watcher,
		files:    make(map[string]bool),
		store:    store,
		debounce: debounce,
		notify:   notify,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		w.files[p] = true
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	if w.last, err = treeVersion(ctx, store); err != nil {
		applog.Error("server.watch", err)
	}
	return w, nil
}

func (w *treeWatcher) run(ctx context.Context) {
	defer w.watcher.Close()
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.files[filepath.Clean(event.Name)] && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			applog.Error("server.watch", err)
		case <-timer.C:
			v, err := treeVersion(ctx, w.store)
			if err != nil {
				applog.Error("server.watch", err)
				continue
			}
			if v != w.last {
				w.last = v
				w.notify()
			}
		}
	}
}

// treeVersion hashes the bookmark tree in display order.
func treeVersion(ctx context.Context, store host.BookmarkStore) (uint64, error) {
	roots, err := store.Tree(ctx)
	if err != nil {
		return 0, fmt.Errorf("read bookmark tree: %w", err)
	}
	h := fnv.New64a()
	var walk func(nodes []*host.Node)
	walk = func(nodes []*host.Node) {
		for _, n := range nodes {
			fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d\n", n.ID, n.ParentID, n.Title, n.URL, len(n.Children))
			walk(n.Children)
		}
	}
	walk(roots)
	return h.Sum64(), nil
}
