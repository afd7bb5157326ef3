package export

import (
	"strings"
	"testing"

	"github.com/lotas/lesezeichen/internal/types"
)

func TestMarkdown_Forest(t *testing.T) {
	result := Markdown("default", testForest())

	for _, want := range []string{
		"# Firefox Bookmarks: default",
		"## Bookmarks Toolbar (3 bookmarks)",
		"## Other Bookmarks (1 bookmark)",
		"- [Go docs](https://go.dev/doc)",
		"- **Dev & Tools**",
		"  - [Bubble Tea](https://github.com/charmbracelet/bubbletea)",
		"- [Example](https://example.com)",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q, got:\n%s", want, result)
		}
	}
}

func TestMarkdown_TitleFallbackToURL(t *testing.T) {
	result := Markdown("test", testForest())

	if !strings.Contains(result, "[https://notitle.com/page?a=1&b=2](https://notitle.com/page?a=1&b=2)") {
		t.Errorf("expected URL as title fallback, got:\n%s", result)
	}
}

func TestMarkdown_Empty(t *testing.T) {
	result := Markdown("empty", []*types.BookmarkFolder{})

	if !strings.Contains(result, "# Firefox Bookmarks: empty") {
		t.Errorf("expected header even for an empty forest, got:\n%s", result)
	}
	if strings.Contains(result, "##") {
		t.Errorf("expected no sections, got:\n%s", result)
	}
}
