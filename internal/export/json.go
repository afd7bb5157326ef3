package export

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

type jsonExport struct {
	Profile    string       `json:"profile"`
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Folders    []jsonFolder `json:"folders"`
}

type jsonFolder struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Bookmarks  []jsonBookmark `json:"bookmarks"`
	Subfolders []jsonFolder   `json:"subfolders,omitempty"`
}

type jsonBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// JSON formats the bookmark forest as a JSON document.
func JSON(profile string, forest []*types.BookmarkFolder) (string, error) {
	out := jsonExport{
		Profile:    profile,
		ExportedAt: time.Now(),
		Folders:    make([]jsonFolder, 0, len(forest)),
	}
	for _, f := range forest {
		out.Folders = append(out.Folders, toJSONFolder(f, &out.Count))
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func toJSONFolder(f *types.BookmarkFolder, count *int) jsonFolder {
	folder := jsonFolder{
		ID:        f.ID,
		Title:     f.Title,
		Bookmarks: make([]jsonBookmark, 0, len(f.Bookmarks)),
	}
	for _, b := range f.Bookmarks {
		folder.Bookmarks = append(folder.Bookmarks, jsonBookmark{
			Title:  b.Title,
			URL:    b.URL,
			Domain: extractDomain(b.URL),
		})
		*count++
	}
	for _, sub := range f.Subfolders {
		folder.Subfolders = append(folder.Subfolders, toJSONFolder(sub, count))
	}
	return folder
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
