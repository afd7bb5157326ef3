// Package host defines the browser-side collaborators lesezeichen works
// against: the bookmark and history stores, tab opening, key-value storage
// and the permission model.
package host

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup against a store comes back empty.
	ErrNotFound = errors.New("bookmark not found")
	// ErrPermission is returned when the host refuses an operation.
	ErrPermission = errors.New("permission denied")
	// ErrReadOnly is returned by stores that cannot be modified.
	ErrReadOnly = errors.New("bookmark store is read-only")
)

// Node is a bookmark store node. Folders have no URL and a non-nil
// Children slice; bookmarks have a URL and nil Children.
type Node struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parentId,omitempty"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsFolder reports whether n is a folder node.
func (n *Node) IsFolder() bool {
	return n.URL == "" && n.Children != nil
}

// Changes holds the fields an update may set. Empty fields are left alone.
type Changes struct {
	Title string
	URL   string
}

// BookmarkStore is the host's bookmark backend.
type BookmarkStore interface {
	// Tree returns the full tree starting at the synthetic root node(s).
	Tree(ctx context.Context) ([]*Node, error)
	// SearchByURL returns bookmark nodes whose URL equals url, in store order.
	SearchByURL(ctx context.Context, url string) ([]*Node, error)
	Update(ctx context.Context, id string, changes Changes) error
	Move(ctx context.Context, id, parentID string) error
	Remove(ctx context.Context, id string) error
}

// HistoryQuery mirrors the host history search parameters.
type HistoryQuery struct {
	Text       string
	MaxResults int
	StartTime  int64 // ms since epoch
}

// HistoryEntry is a raw history result. Any field may be empty.
type HistoryEntry struct {
	ID            string
	URL           string
	Title         string
	LastVisitTime int64
	VisitCount    int
	TypedCount    int
}

// HistoryStore is the host's history backend.
type HistoryStore interface {
	Search(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error)
}

// TabOpener opens a URL in a new browser tab.
type TabOpener interface {
	Open(ctx context.Context, url string) error
}

// KVStore persists blobs by key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PermissionChecker reports whether access to an origin is already granted.
// It never asks the user.
type PermissionChecker interface {
	Granted(ctx context.Context, origin string) (bool, error)
}
