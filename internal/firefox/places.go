package firefox

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/host"
)

// PlacesFile is the bookmark and history database inside a profile.
const PlacesFile = "places.sqlite"

// moz_bookmarks.type values.
const (
	typeBookmark  = 1
	typeFolder    = 2
	typeSeparator = 3
)

// Root folder guids and the titles the WebExtension API shows for them.
var rootTitles = map[string]string{
	"menu________": "Bookmarks Menu",
	"toolbar_____": "Bookmarks Toolbar",
	"unfiled_____": "Other Bookmarks",
	"mobile______": "Mobile Bookmarks",
}

const tagsGUID = "tags________"

// syncStatusNormal marks rows Firefox Sync has already uploaded. Removing
// such a row needs a tombstone so the deletion reaches other devices.
const syncStatusNormal = 2

// Places is a bookmark and history store backed by a profile's
// places.sqlite. In read-only mode it works on a private copy, since
// Firefox keeps the live file locked while it runs.
type Places struct {
	db       *sql.DB
	readOnly bool
	tmpDir   string
	tracked  bool       // moz_bookmarks carries the Sync change columns
	mu       sync.Mutex // serializes writes
}

// OpenPlaces opens the places database at path.
func OpenPlaces(path string, readOnly bool) (*Places, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open places: %w", err)
	}
	p := &Places{readOnly: readOnly}
	src := path
	if readOnly {
		dir, err := os.MkdirTemp("", "lesezeichen-places-")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		p.tmpDir = dir
		src = filepath.Join(dir, PlacesFile)
		for _, suffix := range []string{"", "-wal"} {
			if err := copyFile(path+suffix, src+suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				os.RemoveAll(dir)
				return nil, fmt.Errorf("copy places: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", src+"?_pragma=busy_timeout(5000)")
	if err != nil {
		p.cleanup()
		return nil, fmt.Errorf("open places: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		p.cleanup()
		return nil, fmt.Errorf("open places: %w", err)
	}
	p.db = db
	var cols int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('moz_bookmarks') WHERE name = 'syncChangeCounter'`).Scan(&cols); err == nil {
		p.tracked = cols > 0
	}
	applog.Info("places.open", "path", path, "read_only", readOnly, "sync_tracked", p.tracked)
	return p, nil
}

// OpenProfilePlaces opens places.sqlite inside a profile directory.
func OpenProfilePlaces(profileDir string, readOnly bool) (*Places, error) {
	return OpenPlaces(filepath.Join(profileDir, PlacesFile), readOnly)
}

// Close closes the database and removes the read-only copy.
func (p *Places) Close() error {
	err := p.db.Close()
	p.cleanup()
	return err
}

func (p *Places) cleanup() {
	if p.tmpDir != "" {
		os.RemoveAll(p.tmpDir)
	}
}

// ReadOnly reports whether mutations are refused.
func (p *Places) ReadOnly() bool { return p.readOnly }

// Tree returns the bookmark tree under the places root. The tags folder
// and separators are left out.
func (p *Places) Tree(ctx context.Context) ([]*host.Node, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.parent, b.type, COALESCE(b.title, ''), COALESCE(b.guid, ''), COALESCE(pl.url, '')
		FROM moz_bookmarks b
		LEFT JOIN moz_places pl ON pl.id = b.fk
		ORDER BY b.parent, b.position`)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	nodes := make(map[int64]*host.Node)
	var order []int64
	parents := make(map[int64]int64)
	var rootID int64 = -1
	for rows.Next() {
		var id, parent int64
		var typ int
		var title, guid, url string
		if err := rows.Scan(&id, &parent, &typ, &title, &guid, &url); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if typ == typeSeparator || guid == tagsGUID {
			continue
		}
		n := &host.Node{ID: strconv.FormatInt(id, 10), Title: title}
		if parent != 0 {
			n.ParentID = strconv.FormatInt(parent, 10)
		} else {
			rootID = id
		}
		if t, ok := rootTitles[guid]; ok {
			n.Title = t
		}
		if typ == typeFolder {
			n.Children = []*host.Node{}
		} else {
			n.URL = url
		}
		nodes[id] = n
		parents[id] = parent
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}
	if rootID < 0 {
		return nil, fmt.Errorf("places root: %w", host.ErrNotFound)
	}

	for _, id := range order {
		parent, ok := nodes[parents[id]]
		if !ok || id == rootID {
			continue
		}
		parent.Children = append(parent.Children, nodes[id])
	}
	return []*host.Node{nodes[rootID]}, nil
}

// SearchByURL returns bookmarks with exactly this URL in id order. Tag
// entries, which Firefox stores as bookmarks under the tags folder, are
// excluded.
func (p *Places) SearchByURL(ctx context.Context, url string) ([]*host.Node, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.parent, COALESCE(b.title, ''), pl.url
		FROM moz_bookmarks b
		JOIN moz_places pl ON pl.id = b.fk
		WHERE pl.url = ? AND b.type = ?
		  AND b.parent NOT IN (
		    SELECT t.id FROM moz_bookmarks t
		    JOIN moz_bookmarks r ON r.id = t.parent
		    WHERE r.guid = ?)
		ORDER BY b.id`, url, typeBookmark, tagsGUID)
	if err != nil {
		return nil, fmt.Errorf("search bookmarks: %w", err)
	}
	defer rows.Close()

	var out []*host.Node
	for rows.Next() {
		var id, parent int64
		n := &host.Node{}
		if err := rows.Scan(&id, &parent, &n.Title, &n.URL); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		n.ID = strconv.FormatInt(id, 10)
		n.ParentID = strconv.FormatInt(parent, 10)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Update sets the title and URL of bookmark id. A new URL is pointed at its
// moz_places row, which is created when missing.
func (p *Places) Update(ctx context.Context, id string, changes host.Changes) error {
	if p.readOnly {
		return fmt.Errorf("update %s: %w", id, host.ErrReadOnly)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inTx(ctx, func(tx *sql.Tx) error {
		bid, typ, fk, err := lookupBookmark(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		now := prTime(time.Now())
		if changes.Title != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET title = ?, lastModified = ? WHERE id = ?`, changes.Title, now, bid); err != nil {
				return fmt.Errorf("update title: %w", err)
			}
			if err := p.markChanged(ctx, tx, bid); err != nil {
				return err
			}
		}
		if changes.URL == "" || typ != typeBookmark {
			return nil
		}
		placeID, err := ensurePlace(ctx, tx, changes.URL, changes.Title)
		if err != nil {
			return err
		}
		if placeID == fk.Int64 {
			return nil
		}
		if changes.Title == "" {
			if err := p.markChanged(ctx, tx, bid); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET fk = ?, lastModified = ? WHERE id = ?`, placeID, now, bid); err != nil {
			return fmt.Errorf("update url: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_places SET foreign_count = foreign_count + 1 WHERE id = ?`, placeID); err != nil {
			return fmt.Errorf("update url: %w", err)
		}
		if fk.Valid {
			if _, err := tx.ExecContext(ctx, `UPDATE moz_places SET foreign_count = MAX(foreign_count - 1, 0) WHERE id = ?`, fk.Int64); err != nil {
				return fmt.Errorf("update url: %w", err)
			}
		}
		return nil
	})
}

// Move appends node id to folder parentID, closing the gap it leaves
// behind.
func (p *Places) Move(ctx context.Context, id, parentID string) error {
	if p.readOnly {
		return fmt.Errorf("move %s: %w", id, host.ErrReadOnly)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inTx(ctx, func(tx *sql.Tx) error {
		bid, _, _, err := lookupBookmark(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		target, typ, _, err := lookupBookmark(ctx, tx, parentID)
		if err != nil || typ != typeFolder {
			return fmt.Errorf("move %s: folder %s: %w", id, parentID, host.ErrNotFound)
		}
		if ok, err := isAncestor(ctx, tx, bid, target); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("move %s into its own subtree: %w", id, host.ErrPermission)
		}

		var oldParent, oldPos int64
		if err := tx.QueryRowContext(ctx, `SELECT parent, position FROM moz_bookmarks WHERE id = ?`, bid).Scan(&oldParent, &oldPos); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET position = position - 1 WHERE parent = ? AND position > ?`, oldParent, oldPos); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM moz_bookmarks WHERE parent = ? AND id != ?`, target, bid).Scan(&next); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		now := prTime(time.Now())
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET parent = ?, position = ?, lastModified = ? WHERE id = ?`, target, next, now, bid); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET lastModified = ? WHERE id IN (?, ?)`, now, oldParent, target); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		return p.markChanged(ctx, tx, bid, oldParent, target)
	})
}

// Remove deletes node id and, for folders, everything below it.
func (p *Places) Remove(ctx context.Context, id string) error {
	if p.readOnly {
		return fmt.Errorf("remove %s: %w", id, host.ErrReadOnly)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inTx(ctx, func(tx *sql.Tx) error {
		bid, _, _, err := lookupBookmark(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		var parent, pos int64
		var guid string
		if err := tx.QueryRowContext(ctx, `SELECT parent, position, COALESCE(guid, '') FROM moz_bookmarks WHERE id = ?`, bid).Scan(&parent, &pos, &guid); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		if parent == 0 || rootTitles[guid] != "" {
			return fmt.Errorf("remove root folder %s: %w", id, host.ErrPermission)
		}

		ids, err := subtree(ctx, tx, bid)
		if err != nil {
			return err
		}
		now := prTime(time.Now())
		for _, n := range ids {
			if err := p.tombstone(ctx, tx, n, now); err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE moz_places SET foreign_count = MAX(foreign_count - 1, 0)
				WHERE id = (SELECT fk FROM moz_bookmarks WHERE id = ? AND fk IS NOT NULL)`, n); err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM moz_bookmarks WHERE id = ?`, n); err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET position = position - 1 WHERE parent = ? AND position > ?`, parent, pos); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET lastModified = ? WHERE id = ?`, now, parent); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		return p.markChanged(ctx, tx, parent)
	})
}

// Search returns visited, non-hidden places, most recent first.
func (p *Places) Search(ctx context.Context, q host.HistoryQuery) ([]host.HistoryEntry, error) {
	query := `
		SELECT id, url, COALESCE(title, ''), COALESCE(last_visit_date, 0), visit_count, typed
		FROM moz_places
		WHERE hidden = 0 AND last_visit_date IS NOT NULL AND last_visit_date >= ?`
	args := []any{q.StartTime * 1000}
	if q.Text != "" {
		like := "%" + escapeLike(strings.ToLower(q.Text)) + "%"
		query += ` AND (LOWER(url) LIKE ? ESCAPE '\' OR LOWER(COALESCE(title, '')) LIKE ? ESCAPE '\')`
		args = append(args, like, like)
	}
	query += ` ORDER BY last_visit_date DESC`
	if q.MaxResults > 0 {
		query += ` LIMIT ?`
		args = append(args, q.MaxResults)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []host.HistoryEntry
	for rows.Next() {
		var id, visited int64
		var e host.HistoryEntry
		if err := rows.Scan(&id, &e.URL, &e.Title, &visited, &e.VisitCount, &e.TypedCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		e.LastVisitTime = visited / 1000
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Places) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// markChanged bumps the Sync change counter of each row so the next sync
// uploads it.
func (p *Places) markChanged(ctx context.Context, tx *sql.Tx, ids ...int64) error {
	if !p.tracked {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx, `UPDATE moz_bookmarks SET syncChangeCounter = syncChangeCounter + 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark %d changed: %w", id, err)
		}
	}
	return nil
}

// tombstone records the deletion of an already synced row.
func (p *Places) tombstone(ctx context.Context, tx *sql.Tx, id, now int64) error {
	if !p.tracked {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO moz_bookmarks_deleted (guid, dateRemoved)
		SELECT guid, ? FROM moz_bookmarks WHERE id = ? AND syncStatus = ? AND guid IS NOT NULL`,
		now, id, syncStatusNormal)
	return err
}

func lookupBookmark(ctx context.Context, tx *sql.Tx, id string) (int64, int, sql.NullInt64, error) {
	var fk sql.NullInt64
	bid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, 0, fk, host.ErrNotFound
	}
	var typ int
	err = tx.QueryRowContext(ctx, `SELECT type, fk FROM moz_bookmarks WHERE id = ?`, bid).Scan(&typ, &fk)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fk, host.ErrNotFound
	}
	if err != nil {
		return 0, 0, fk, err
	}
	return bid, typ, fk, nil
}

func ensurePlace(ctx context.Context, tx *sql.Tx, url, title string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM moz_places WHERE url = ?`, url).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find place: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO moz_places (url, title, rev_host, hidden, frecency, guid, url_hash, foreign_count)
		VALUES (?, ?, ?, 0, -1, ?, ?, 0)`,
		url, title, revHost(url), newGUID(), int64(URLHash(url)))
	if err != nil {
		return 0, fmt.Errorf("insert place: %w", err)
	}
	return res.LastInsertId()
}

func isAncestor(ctx context.Context, tx *sql.Tx, ancestor, node int64) (bool, error) {
	for node != 0 {
		if node == ancestor {
			return true, nil
		}
		if err := tx.QueryRowContext(ctx, `SELECT parent FROM moz_bookmarks WHERE id = ?`, node).Scan(&node); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, fmt.Errorf("walk parents: %w", err)
		}
	}
	return false, nil
}

// subtree returns id and its descendants, children first.
func subtree(ctx context.Context, tx *sql.Tx, id int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM moz_bookmarks WHERE parent = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	var children []int64
	for rows.Next() {
		var c int64
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return nil, err
		}
		children = append(children, c)
	}
	rows.Close()

	var out []int64
	for _, c := range children {
		ids, err := subtree(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return append(out, id), nil
}

// URLHash computes moz_places.url_hash: the low 16 bits of the scheme's
// hash above the 32-bit hash of the whole URL.
func URLHash(url string) uint64 {
	const maxLen = 1500
	s := url
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	prefix := ""
	if i := strings.IndexByte(url, ':'); i >= 0 {
		prefix = url[:i]
	}
	return uint64(hashString(prefix)&0xFFFF)<<32 + uint64(hashString(s))
}

// hashString is mozilla::HashString.
func hashString(s string) uint32 {
	const golden = 0x9E3779B9
	var h uint32
	for i := 0; i < len(s); i++ {
		h = golden * (bits.RotateLeft32(h, 5) ^ uint32(s[i]))
	}
	return h
}

// revHost is the reversed host with a trailing dot, as places stores it.
func revHost(url string) string {
	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		return ""
	}
	host, _, _ := strings.Cut(rest, "/")
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	host, _, _ = strings.Cut(host, ":")
	b := []byte(strings.ToLower(host))
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b) + "."
}

// newGUID returns a 12-character places guid.
func newGUID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:9])
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// prTime is a PRTime: microseconds since the epoch.
func prTime(t time.Time) int64 {
	return t.UnixMicro()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
