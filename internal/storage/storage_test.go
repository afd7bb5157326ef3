package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/lesezeichen/internal/host"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	_ host.KVStore = (*KV)(nil)
	_ host.KVStore = (*FileKV)(nil)
)

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "lesezeichen.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not found: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "re.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewKV(db).Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := NewKV(db).Get(context.Background(), "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("after reopen: %q %v %v", v, ok, err)
	}
}

func testKV(t *testing.T, kv host.KVStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := kv.Set(ctx, "a", []byte(`{"x":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "a", []byte(`{"x":2}`)); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.Get(ctx, "a")
	if err != nil || !ok || string(v) != `{"x":2}` {
		t.Fatalf("Get(a) = %q, %v, %v", v, ok, err)
	}
	if err := kv.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Delete(ctx, "a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "a"); ok {
		t.Fatal("key survived delete")
	}
}

func TestKV(t *testing.T) {
	kv := NewKV(testDB(t))
	testKV(t, kv)

	ctx := context.Background()
	kv.Set(ctx, "b", []byte("1"))
	kv.Set(ctx, "a", []byte("2"))
	keys, err := kv.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v", keys)
	}
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	testKV(t, NewFileKV(path))

	ctx := context.Background()
	NewFileKV(path).Set(ctx, "persist", []byte("yes"))
	v, ok, err := NewFileKV(path).Get(ctx, "persist")
	if err != nil || !ok || string(v) != "yes" {
		t.Fatalf("value not shared through the file: %q %v %v", v, ok, err)
	}
}

func TestFileKV_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, _, err := NewFileKV(path).Get(context.Background(), "x"); err == nil {
		t.Fatal("expected parse error")
	}
}
