package render

import (
	"embed"
	"mime"
	"path"
)

//go:embed assets
var assets embed.FS

// Shell returns the page document served at "/". The browser and the
// server both parse this exact markup, so element paths line up.
func Shell() string {
	return `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
		`<title>New Tab</title>` +
		`<link rel="stylesheet" href="/assets/newtab.css">` +
		`<script src="/assets/shim.js" defer></script>` +
		`</head><body>` +
		`<header><h1>🔖 Bookmarks</h1><input type="text" id="searchInput" class="search-input" placeholder="Search bookmarks..." autocomplete="off"></header>` +
		`<main id="bookmarkContainer" class="bookmark-container">` + Loading() + `</main>` +
		`</body></html>`
}

// Asset returns an embedded stylesheet or script and its content type.
func Asset(name string) (data []byte, contentType string, ok bool) {
	data, err := assets.ReadFile(path.Join("assets", path.Base(name)))
	if err != nil {
		return nil, "", false
	}
	contentType = mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, true
}
