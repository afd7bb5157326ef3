package firefox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/lesezeichen/internal/host"
)

// BackupDir holds Firefox's automatic bookmark backups inside a profile.
const BackupDir = "bookmarkbackups"

const (
	backupTypeFolder    = "text/x-moz-place-container"
	backupTypeBookmark  = "text/x-moz-place"
	backupTypeSeparator = "text/x-moz-place-separator"
)

// backupNode is one entry of a bookmarks-*.jsonlz4 file.
type backupNode struct {
	GUID         string        `json:"guid,omitempty"`
	Title        string        `json:"title"`
	Index        int           `json:"index"`
	DateAdded    int64         `json:"dateAdded,omitempty"`
	LastModified int64         `json:"lastModified,omitempty"`
	ID           int64         `json:"id"`
	TypeCode     int           `json:"typeCode"`
	Type         string        `json:"type"`
	Root         string        `json:"root,omitempty"`
	URI          string        `json:"uri,omitempty"`
	Children     []*backupNode `json:"children,omitempty"`
}

// Backup is a read-only bookmark store loaded from a backup file. It
// serves profiles whose places.sqlite cannot be opened.
type Backup struct {
	path  string
	root  *host.Node
	byURL map[string][]*host.Node
}

// NewestBackup returns the most recent backup file in a profile. Backup
// names start with their date, so the last name in sort order wins.
func NewestBackup(profileDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(profileDir, BackupDir, "bookmarks-*.jsonlz4"))
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no bookmark backups in %s: %w", profileDir, host.ErrNotFound)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LoadBackup reads and decodes a jsonlz4 bookmark backup.
func LoadBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	raw, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress backup: %w", err)
	}
	var top backupNode
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	b := &Backup{path: path, byURL: make(map[string][]*host.Node)}
	b.root = b.convert(&top, "")
	if b.root == nil || !b.root.IsFolder() {
		return nil, fmt.Errorf("parse backup: root is not a folder")
	}
	return b, nil
}

func (b *Backup) convert(n *backupNode, parentID string) *host.Node {
	switch n.Type {
	case backupTypeSeparator:
		return nil
	case backupTypeBookmark:
		node := &host.Node{ID: strconv.FormatInt(n.ID, 10), ParentID: parentID, Title: n.Title, URL: n.URI}
		if n.URI != "" {
			b.byURL[n.URI] = append(b.byURL[n.URI], node)
		}
		return node
	}
	if n.GUID == tagsGUID {
		return nil
	}
	title := n.Title
	if t, ok := rootTitles[n.GUID]; ok {
		title = t
	}
	node := &host.Node{ID: strconv.FormatInt(n.ID, 10), ParentID: parentID, Title: title, Children: []*host.Node{}}
	for _, c := range n.Children {
		if child := b.convert(c, node.ID); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// Path returns the backup file the store was loaded from.
func (b *Backup) Path() string { return b.path }

func (b *Backup) Tree(ctx context.Context) ([]*host.Node, error) {
	return []*host.Node{b.root}, nil
}

func (b *Backup) SearchByURL(ctx context.Context, url string) ([]*host.Node, error) {
	return b.byURL[url], nil
}

func (b *Backup) Update(ctx context.Context, id string, changes host.Changes) error {
	return fmt.Errorf("update %s: %w", id, host.ErrReadOnly)
}

func (b *Backup) Move(ctx context.Context, id, parentID string) error {
	return fmt.Errorf("move %s: %w", id, host.ErrReadOnly)
}

func (b *Backup) Remove(ctx context.Context, id string) error {
	return fmt.Errorf("remove %s: %w", id, host.ErrReadOnly)
}

// EncodeBackup renders a host tree as a jsonlz4 backup Firefox can
// restore from.
func EncodeBackup(roots []*host.Node, now time.Time) ([]byte, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("encode backup: empty tree")
	}
	stamp := prTime(now)
	var nextID int64
	var convert func(n *host.Node, index int) *backupNode
	convert = func(n *host.Node, index int) *backupNode {
		nextID++
		out := &backupNode{
			GUID:         newGUID(),
			Title:        n.Title,
			Index:        index,
			DateAdded:    stamp,
			LastModified: stamp,
			ID:           nextID,
		}
		if n.IsFolder() {
			out.TypeCode = typeFolder
			out.Type = backupTypeFolder
			for i, c := range n.Children {
				out.Children = append(out.Children, convert(c, i))
			}
			return out
		}
		out.TypeCode = typeBookmark
		out.Type = backupTypeBookmark
		out.URI = n.URL
		return out
	}

	top := convert(roots[0], 0)
	top.GUID = "root________"
	top.Root = "placesRoot"
	for i, c := range top.Children {
		if guid := rootGUID(roots[0].Children[i]); guid != "" {
			c.GUID = guid
			c.Root = rootName(guid)
		}
	}
	data, err := json.Marshal(top)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return CompressMozLz4(data)
}

// WriteBackup writes the tree to dir using Firefox's backup file naming.
func WriteBackup(dir string, roots []*host.Node, now time.Time) (string, error) {
	data, err := EncodeBackup(roots, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	count := 0
	var walk func(n *host.Node)
	walk = func(n *host.Node) {
		if !n.IsFolder() {
			count++
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	name := fmt.Sprintf("bookmarks-%s_%d_%s.jsonlz4", now.Format("2006-01-02"), count, newGUID())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// rootGUID maps a top-level folder back to its well-known guid so a
// restore lands in the right root folders.
func rootGUID(n *host.Node) string {
	for guid, title := range rootTitles {
		if strings.EqualFold(n.Title, title) {
			return guid
		}
	}
	return ""
}

func rootName(guid string) string {
	switch guid {
	case "menu________":
		return "bookmarksMenuFolder"
	case "toolbar_____":
		return "toolbarFolder"
	case "unfiled_____":
		return "unfiledBookmarksFolder"
	case "mobile______":
		return "mobileFolder"
	}
	return ""
}
