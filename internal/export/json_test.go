package export

import (
	"encoding/json"
	"testing"

	"github.com/lotas/lesezeichen/internal/types"
)

func TestJSON_Forest(t *testing.T) {
	result, err := JSON("default", testForest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed jsonExport
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput:\n%s", err, result)
	}

	if parsed.Profile != "default" {
		t.Errorf("expected profile 'default', got %q", parsed.Profile)
	}
	if parsed.Count != 4 {
		t.Errorf("expected count 4, got %d", parsed.Count)
	}
	if len(parsed.Folders) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(parsed.Folders))
	}
	toolbar := parsed.Folders[0]
	if toolbar.ID != "3" || toolbar.Title != "Bookmarks Toolbar" {
		t.Errorf("unexpected first folder %+v", toolbar)
	}
	if len(toolbar.Subfolders) != 1 || len(toolbar.Subfolders[0].Bookmarks) != 2 {
		t.Fatalf("expected nested folder with 2 bookmarks, got %+v", toolbar.Subfolders)
	}
	if got := toolbar.Bookmarks[0].Domain; got != "go.dev" {
		t.Errorf("expected domain 'go.dev', got %q", got)
	}
	if got := toolbar.Subfolders[0].Bookmarks[0].Domain; got != "github.com" {
		t.Errorf("expected domain 'github.com', got %q", got)
	}
}

func TestJSON_Empty(t *testing.T) {
	result, err := JSON("empty", []*types.BookmarkFolder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed jsonExport
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Profile != "empty" {
		t.Errorf("expected profile 'empty', got %q", parsed.Profile)
	}
	if len(parsed.Folders) != 0 || parsed.Count != 0 {
		t.Errorf("expected no folders, got %+v", parsed)
	}
}
