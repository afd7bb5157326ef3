package host

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RootID is the id of the synthetic root folder of a Memory store.
const RootID = "0"

// Memory is an in-memory host: bookmarks, history, key-value storage and a
// tab opener that records what it opened. It backs tests and demo mode.
type Memory struct {
	mu      sync.Mutex
	nodes   map[string]*Node
	root    *Node
	nextID  int
	history []HistoryEntry
	kv      map[string][]byte
	opened  []string

	// Errs makes the named method fail, e.g. Errs["Remove"] = err.
	Errs map[string]error
}

// NewMemory returns an empty store holding only the synthetic root.
func NewMemory() *Memory {
	root := &Node{ID: RootID, Children: []*Node{}}
	return &Memory{
		nodes:  map[string]*Node{RootID: root},
		root:   root,
		nextID: 1,
		kv:     make(map[string][]byte),
		Errs:   make(map[string]error),
	}
}

// AddFolder creates a folder under parentID and returns its id.
func (m *Memory) AddFolder(parentID, title string) string {
	return m.add(parentID, &Node{Title: title, Children: []*Node{}})
}

// AddBookmark creates a bookmark under parentID and returns its id.
func (m *Memory) AddBookmark(parentID, title, url string) string {
	return m.add(parentID, &Node{Title: title, URL: url})
}

func (m *Memory) add(parentID string, n *Node) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.nodes[parentID]
	if !ok || !parent.IsFolder() {
		panic(fmt.Sprintf("memory store: no folder %q", parentID))
	}
	n.ID = strconv.Itoa(m.nextID)
	m.nextID++
	n.ParentID = parentID
	parent.Children = append(parent.Children, n)
	m.nodes[n.ID] = n
	return n.ID
}

// AddHistory appends history entries.
func (m *Memory) AddHistory(entries ...HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entries...)
}

// Opened returns the URLs passed to Open so far.
func (m *Memory) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

// Node returns a copy of the node with the given id.
func (m *Memory) Node(id string) (*Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, false
	}
	return cloneNode(n), true
}

func (m *Memory) fail(method string) error {
	if err := m.Errs[method]; err != nil {
		return err
	}
	return nil
}

func (m *Memory) Tree(ctx context.Context) ([]*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Tree"); err != nil {
		return nil, err
	}
	return []*Node{cloneNode(m.root)}, nil
}

func (m *Memory) SearchByURL(ctx context.Context, url string) ([]*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SearchByURL"); err != nil {
		return nil, err
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.URL != "" && n.URL == url {
			out = append(out, cloneNode(n))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(m.root)
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, changes Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Update"); err != nil {
		return err
	}
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if changes.Title != "" {
		n.Title = changes.Title
	}
	if changes.URL != "" && !n.IsFolder() {
		n.URL = changes.URL
	}
	return nil
}

func (m *Memory) Move(ctx context.Context, id, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Move"); err != nil {
		return err
	}
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	target, ok := m.nodes[parentID]
	if !ok || !target.IsFolder() {
		return fmt.Errorf("move %s: folder %s: %w", id, parentID, ErrNotFound)
	}
	m.detach(n)
	n.ParentID = parentID
	target.Children = append(target.Children, n)
	return nil
}

func (m *Memory) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Remove"); err != nil {
		return err
	}
	n, ok := m.nodes[id]
	if !ok || id == RootID {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	m.detach(n)
	var forget func(n *Node)
	forget = func(n *Node) {
		delete(m.nodes, n.ID)
		for _, c := range n.Children {
			forget(c)
		}
	}
	forget(n)
	return nil
}

func (m *Memory) detach(n *Node) {
	parent, ok := m.nodes[n.ParentID]
	if !ok {
		return
	}
	for i, c := range parent.Children {
		if c == n {
			parent.Children = append(parent.Children[:i:i], parent.Children[i+1:]...)
			return
		}
	}
}

func (m *Memory) Search(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Search"); err != nil {
		return nil, err
	}
	text := strings.ToLower(q.Text)
	var out []HistoryEntry
	for _, e := range m.history {
		if e.LastVisitTime < q.StartTime {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(e.URL), text) && !strings.Contains(strings.ToLower(e.Title), text) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastVisitTime > out[j].LastVisitTime })
	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

func (m *Memory) Open(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Open"); err != nil {
		return err
	}
	m.opened = append(m.opened, url)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Get"); err != nil {
		return nil, false, err
	}
	v, ok := m.kv[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Set"); err != nil {
		return err
	}
	m.kv[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func cloneNode(n *Node) *Node {
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = cloneNode(child)
		}
	}
	return &c
}
