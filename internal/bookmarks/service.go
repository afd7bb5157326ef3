package bookmarks

import (
	"context"
	"fmt"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/host"
	"github.com/lotas/lesezeichen/internal/types"
)

// Service wraps a host bookmark store. Mutations resolve their target by
// URL and act on the first match, so bookmarks sharing a URL cannot be told
// apart.
type Service struct {
	store host.BookmarkStore
}

// NewService returns a Service over store.
func NewService(store host.BookmarkStore) *Service {
	return &Service{store: store}
}

// Tree fetches the host tree and converts it into the displayed forest.
func (s *Service) Tree(ctx context.Context) ([]*types.BookmarkFolder, error) {
	roots, err := s.store.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	return ProcessTree(roots), nil
}

// FolderChoices lists every folder that can hold a bookmark.
func (s *Service) FolderChoices(ctx context.Context) ([]types.FolderChoice, error) {
	roots, err := s.store.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}
	return Folders(roots), nil
}

// Lookup returns the first bookmark with the given URL.
func (s *Service) Lookup(ctx context.Context, url string) (*host.Node, error) {
	nodes, err := s.store.SearchByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", url, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("search %s: %w", url, host.ErrNotFound)
	}
	return nodes[0], nil
}

// Move moves the first bookmark with the given URL into folderID.
func (s *Service) Move(ctx context.Context, url, folderID string) error {
	n, err := s.Lookup(ctx, url)
	if err != nil {
		return fmt.Errorf("move bookmark: %w", err)
	}
	if err := s.store.Move(ctx, n.ID, folderID); err != nil {
		return fmt.Errorf("move bookmark %s: %w", n.ID, err)
	}
	applog.Info("bookmarks.move", "id", n.ID, "from", n.ParentID, "to", folderID)
	return nil
}

// Update sets the title and URL of the first bookmark with the given URL.
func (s *Service) Update(ctx context.Context, url, title, newURL string) error {
	n, err := s.Lookup(ctx, url)
	if err != nil {
		return fmt.Errorf("update bookmark: %w", err)
	}
	if err := s.store.Update(ctx, n.ID, host.Changes{Title: title, URL: newURL}); err != nil {
		return fmt.Errorf("update bookmark %s: %w", n.ID, err)
	}
	applog.Info("bookmarks.update", "id", n.ID, "url", newURL)
	return nil
}

// Edit sets the title and URL of the first bookmark with the given URL and
// moves that same bookmark into folderID when it differs from its parent.
// An empty folderID leaves the bookmark where it is.
func (s *Service) Edit(ctx context.Context, url, title, newURL, folderID string) error {
	n, err := s.Lookup(ctx, url)
	if err != nil {
		return fmt.Errorf("edit bookmark: %w", err)
	}
	if err := s.store.Update(ctx, n.ID, host.Changes{Title: title, URL: newURL}); err != nil {
		return fmt.Errorf("update bookmark %s: %w", n.ID, err)
	}
	applog.Info("bookmarks.update", "id", n.ID, "url", newURL)
	if folderID == "" || folderID == n.ParentID {
		return nil
	}
	if err := s.store.Move(ctx, n.ID, folderID); err != nil {
		return fmt.Errorf("move bookmark %s: %w", n.ID, err)
	}
	applog.Info("bookmarks.move", "id", n.ID, "from", n.ParentID, "to", folderID)
	return nil
}

// Delete removes the first bookmark with the given URL.
func (s *Service) Delete(ctx context.Context, url string) error {
	n, err := s.Lookup(ctx, url)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if err := s.store.Remove(ctx, n.ID); err != nil {
		return fmt.Errorf("delete bookmark %s: %w", n.ID, err)
	}
	applog.Info("bookmarks.delete", "id", n.ID, "url", url)
	return nil
}
