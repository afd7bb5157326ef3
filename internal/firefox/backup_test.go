package firefox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lotas/lesezeichen/internal/host"
)

func TestBackup_WriteAndLoad(t *testing.T) {
	p := openPlaces(t, writePlaces(t), true)
	roots, err := p.Tree(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	path, err := WriteBackup(dir, roots, now)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "bookmarks-2024-03-01_4_") {
		t.Errorf("backup name = %s", path)
	}

	b, err := LoadBackup(path)
	if err != nil {
		t.Fatal(err)
	}
	tree, _ := b.Tree(context.Background())
	top := tree[0].Children
	want := []string{"Bookmarks Menu", "Bookmarks Toolbar", "Other Bookmarks", "Mobile Bookmarks"}
	if got := titles(top); !equal(got, want) {
		t.Fatalf("top folders = %v", got)
	}
	if got := titles(top[1].Children[1].Children); !equal(got, []string{"MDN", "Go"}) {
		t.Errorf("dev children = %v", got)
	}

	nodes, _ := b.SearchByURL(context.Background(), "https://go.dev/")
	if len(nodes) != 1 || nodes[0].Title != "Go" {
		t.Errorf("search = %+v", nodes)
	}
	if err := b.Remove(context.Background(), nodes[0].ID); !errors.Is(err, host.ErrReadOnly) {
		t.Errorf("remove err = %v", err)
	}
}

func TestNewestBackup(t *testing.T) {
	profile := t.TempDir()
	if _, err := NewestBackup(profile); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("empty profile err = %v", err)
	}
	dir := filepath.Join(profile, BackupDir)
	os.MkdirAll(dir, 0755)
	for _, name := range []string{
		"bookmarks-2024-01-05_10_abc.jsonlz4",
		"bookmarks-2024-02-11_12_def.jsonlz4",
		"bookmarks-2023-12-30_9_ghi.jsonlz4",
		"notes.txt",
	} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}
	got, err := NewestBackup(profile)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "bookmarks-2024-02-11_12_def.jsonlz4" {
		t.Errorf("newest = %s", got)
	}
}

func TestLoadBackup_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks-2024-01-01.jsonlz4")
	enc, _ := CompressMozLz4([]byte("not json"))
	os.WriteFile(path, enc, 0644)
	if _, err := LoadBackup(path); err == nil {
		t.Error("expected parse error")
	}
}
