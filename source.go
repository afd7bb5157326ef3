package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/config"
	"github.com/lotas/lesezeichen/internal/favicon"
	"github.com/lotas/lesezeichen/internal/firefox"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/storage"
	"github.com/lotas/lesezeichen/internal/types"
)

// source is the bookmark and history backend of one run.
type source struct {
	profile   types.Profile
	bookmarks host.BookmarkStore
	history   host.HistoryStore
	tabs      host.TabOpener // set only in demo mode
	watch     []string       // live database files; empty for copies and backups
	closer    func() error
}

func (s *source) Close() {
	if s.closer != nil {
		if err := s.closer(); err != nil {
			applog.Error("source.close", err)
		}
	}
}

// openSource opens the selected profile's places.sqlite. When that fails
// the newest bookmark backup is used instead, read-only and without history.
func openSource(cfg config.Config, demo bool) (*source, error) {
	if demo {
		m := host.Demo(time.Now())
		return &source{profile: types.Profile{Name: "demo"}, bookmarks: m, history: m, tabs: m}, nil
	}

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, fmt.Errorf("discover Firefox profiles: %w", err)
	}
	profile, err := firefox.SelectProfile(profiles, cfg.Profile)
	if err != nil {
		return nil, err
	}

	places, err := firefox.OpenProfilePlaces(profile.Path, cfg.ReadOnly)
	if err == nil {
		applog.Info("source.places", "profile", profile.Name, "read_only", cfg.ReadOnly)
		src := &source{profile: profile, bookmarks: places, history: places, closer: places.Close}
		if !cfg.ReadOnly {
			dbPath := filepath.Join(profile.Path, firefox.PlacesFile)
			src.watch = []string{dbPath, dbPath + "-wal"}
		}
		return src, nil
	}
	applog.Error("source.places", err, "profile", profile.Name)

	path, backupErr := firefox.NewestBackup(profile.Path)
	if backupErr != nil {
		return nil, errors.Join(err, backupErr)
	}
	backup, backupErr := firefox.LoadBackup(path)
	if backupErr != nil {
		return nil, errors.Join(err, backupErr)
	}
	fmt.Fprintf(os.Stderr, "Warning: %v\nUsing read-only backup %s\n", err, filepath.Base(path))
	applog.Info("source.backup", "profile", profile.Name, "path", path)
	return &source{profile: profile, bookmarks: backup, history: host.NewMemory()}, nil
}

// openFavicons returns a favicon service over the configured cache backend
// with its persisted cache loaded.
func openFavicons(ctx context.Context, cfg config.Config) (*favicon.Service, func(), error) {
	if cfg.DataDir == "" {
		return nil, nil, fmt.Errorf("no data directory configured")
	}
	var store host.KVStore
	closeFn := func() {}
	switch cfg.CacheBackend {
	case config.BackendFile:
		store = storage.NewFileKV(filepath.Join(cfg.DataDir, "favicons.json"))
	default:
		db, err := storage.OpenDB(filepath.Join(cfg.DataDir, "lesezeichen.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		store = storage.NewKV(db)
		closeFn = func() { db.Close() }
	}

	icons := favicon.New(store, favicon.Options{
		Timeout:     cfg.FaviconTimeout,
		Expiry:      cfg.CacheExpiry(),
		Permissions: host.AllowList(cfg.AllowedOrigins),
	})
	icons.Init(ctx)
	return icons, closeFn, nil
}
