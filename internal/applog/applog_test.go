package applog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var out []map[string]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]string
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestInfoAndError(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatal(err)
	}
	Info("ws.connected", "remote", "127.0.0.1:5000")
	Error("favicon.persist", errors.New("disk full"), "entries", 3)
	Close()

	lines := readLines(t, filepath.Join(dir, "lesezeichen.log"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["event"] != "ws.connected" || lines[0]["remote"] != "127.0.0.1:5000" || lines[0]["level"] != "info" {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["err"] != "disk full" || lines[1]["entries"] != "3" {
		t.Errorf("second line = %v", lines[1])
	}
	if lines[0]["time"] == "" {
		t.Error("missing timestamp")
	}
}

func TestTruncatesLongValues(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatal(err)
	}
	Info("long", "value", strings.Repeat("x", 500))
	Close()

	lines := readLines(t, filepath.Join(dir, "lesezeichen.log"))
	if got := lines[0]["value"]; got != strings.Repeat("x", maxValueLen)+truncSuffix {
		t.Errorf("value length = %d", len(got))
	}
}

func TestNoopWithoutInit(t *testing.T) {
	Close()
	Info("nothing")
	Error("nothing", errors.New("x"))
}

func TestRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lesezeichen.log")
	if err := os.WriteFile(path, make([]byte, maxFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(dir); err != nil {
		t.Fatal(err)
	}
	Close()
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("new log size = %d, want 0", info.Size())
	}
}
