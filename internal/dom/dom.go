// Package dom keeps a server-side copy of a page's document. Mutations made
// through a Document are journaled as patches addressed by element paths,
// so the browser copy can replay them in order.
package dom

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Patch operations.
const (
	OpHTML       = "html"        // replace children with HTML
	OpAppend     = "append"      // append HTML after the last child
	OpRemove     = "remove"      // remove the element
	OpAttr       = "attr"        // set attribute Name to Value
	OpRemoveAttr = "remove-attr" // remove attribute Name
	OpText       = "text"        // replace children with text Value
	OpValue      = "value"       // set a form control's current value
	OpFocus      = "focus"
)

// Patch is one recorded mutation. Path lists element-child indices from
// <body>; an empty path addresses <body> itself.
type Patch struct {
	Op    string `json:"op"`
	Path  []int  `json:"path"`
	HTML  string `json:"html,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Document is a parsed page plus the journal of patches not yet flushed.
type Document struct {
	root    *html.Node
	body    *html.Node
	patches []Patch
}

// Parse parses a full HTML document.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	body := Query(root, "body")
	if body == nil {
		return nil, errors.New("parse document: no body")
	}
	return &Document{root: root, body: body}, nil
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Query returns the first element in the document matching sel.
func (d *Document) Query(sel string) *html.Node { return Query(d.root, sel) }

// QueryAll returns every element in the document matching sel.
func (d *Document) QueryAll(sel string) []*html.Node { return QueryAll(d.root, sel) }

// ByID returns the element with the given id attribute.
func (d *Document) ByID(id string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Path returns n's element path from <body>. ok is false when n is not
// inside the body.
func (d *Document) Path(n *html.Node) (path []int, ok bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.body {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			if path == nil {
				path = []int{}
			}
			return path, true
		}
		if cur.Type != html.ElementNode || cur.Parent == nil {
			return nil, false
		}
		path = append(path, elementIndex(cur))
	}
	return nil, false
}

// NodeAt resolves an element path from <body>.
func (d *Document) NodeAt(path []int) *html.Node {
	n := d.body
	for _, idx := range path {
		n = elementChild(n, idx)
		if n == nil {
			return nil
		}
	}
	return n
}

// Flush returns the recorded patches and clears the journal.
func (d *Document) Flush() []Patch {
	out := d.patches
	d.patches = nil
	return out
}

func (d *Document) record(n *html.Node, p Patch) {
	path, ok := d.Path(n)
	if !ok {
		return
	}
	p.Path = path
	d.patches = append(d.patches, p)
}

// SetAttr sets an attribute.
func (d *Document) SetAttr(n *html.Node, name, value string) {
	if n == nil {
		return
	}
	if cur, ok := attr(n, name); ok && cur == value {
		return
	}
	setAttr(n, name, value)
	d.record(n, Patch{Op: OpAttr, Name: name, Value: value})
}

// RemoveAttr removes an attribute.
func (d *Document) RemoveAttr(n *html.Node, name string) {
	if n == nil {
		return
	}
	if _, ok := attr(n, name); !ok {
		return
	}
	removeAttr(n, name)
	d.record(n, Patch{Op: OpRemoveAttr, Name: name})
}

// AddClass adds classes that are not present yet.
func (d *Document) AddClass(n *html.Node, classes ...string) {
	cur := Classes(n)
	next := cur
	for _, c := range classes {
		if !contains(next, c) {
			next = append(next, c)
		}
	}
	if len(next) != len(cur) {
		d.SetAttr(n, "class", strings.Join(next, " "))
	}
}

// RemoveClass removes classes.
func (d *Document) RemoveClass(n *html.Node, classes ...string) {
	cur := Classes(n)
	next := make([]string, 0, len(cur))
	for _, c := range cur {
		if !contains(classes, c) {
			next = append(next, c)
		}
	}
	if len(next) != len(cur) {
		d.SetAttr(n, "class", strings.Join(next, " "))
	}
}

// ToggleClass adds class when on is true and removes it otherwise.
func (d *Document) ToggleClass(n *html.Node, class string, on bool) {
	if on {
		d.AddClass(n, class)
	} else {
		d.RemoveClass(n, class)
	}
}

// SetStyle sets one inline style property. An empty value removes it.
func (d *Document) SetStyle(n *html.Node, prop, value string) {
	if n == nil {
		return
	}
	decls := parseStyle(Attr(n, "style"))
	found := false
	out := decls[:0]
	for _, decl := range decls {
		if decl[0] == prop {
			found = true
			if value == "" {
				continue
			}
			decl[1] = value
		}
		out = append(out, decl)
	}
	if !found && value != "" {
		out = append(out, [2]string{prop, value})
	}
	if len(out) == 0 {
		d.RemoveAttr(n, "style")
		return
	}
	d.SetAttr(n, "style", formatStyle(out))
}

// SetText replaces n's children with a text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n == nil {
		return
	}
	if Text(n) == text && (n.FirstChild == nil || n.FirstChild == n.LastChild) {
		return
	}
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	d.record(n, Patch{Op: OpText, Value: text})
}

// SetInnerHTML replaces n's children with parsed markup.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	if n == nil {
		return errors.New("set inner html: nil node")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	d.record(n, Patch{Op: OpHTML, HTML: InnerHTML(n)})
	return nil
}

// AppendHTML parses markup and appends the result to n. It returns the
// appended element nodes.
func (d *Document) AppendHTML(n *html.Node, markup string) ([]*html.Node, error) {
	if n == nil {
		return nil, errors.New("append html: nil node")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	var b strings.Builder
	var elems []*html.Node
	for _, c := range nodes {
		n.AppendChild(c)
		html.Render(&b, c)
		if c.Type == html.ElementNode {
			elems = append(elems, c)
		}
	}
	d.record(n, Patch{Op: OpAppend, HTML: b.String()})
	return elems, nil
}

// Remove detaches n from the document.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	d.record(n, Patch{Op: OpRemove})
	n.Parent.RemoveChild(n)
}

// Focus asks the browser to focus n.
func (d *Document) Focus(n *html.Node) {
	if n == nil {
		return
	}
	d.record(n, Patch{Op: OpFocus})
}

// SetValue stores a value typed in the browser. Nothing is recorded since
// the browser already shows it.
func (d *Document) SetValue(n *html.Node, value string) {
	if n == nil {
		return
	}
	switch n.Data {
	case "select":
		for _, opt := range QueryAll(n, "option") {
			if optionValue(opt) == value {
				setAttr(opt, "selected", "")
			} else {
				removeAttr(opt, "selected")
			}
		}
	case "textarea":
		removeChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		setAttr(n, "value", value)
	}
}

// SetInputValue changes a form control's value from the server side.
func (d *Document) SetInputValue(n *html.Node, value string) {
	d.SetValue(n, value)
	d.record(n, Patch{Op: OpValue, Value: value})
}

// Value returns the current value of an input, textarea or select.
func Value(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Data {
	case "select":
		opts := QueryAll(n, "option")
		for _, opt := range opts {
			if _, ok := attr(opt, "selected"); ok {
				return optionValue(opt)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	case "textarea":
		return Text(n)
	default:
		return Attr(n, "value")
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(Text(opt))
}

var (
	selMu    sync.Mutex
	selCache = make(map[string]cascadia.Selector)
)

func compile(sel string) cascadia.Selector {
	selMu.Lock()
	defer selMu.Unlock()
	s, ok := selCache[sel]
	if !ok {
		s = cascadia.MustCompile(sel)
		selCache[sel] = s
	}
	return s
}

// Query returns the first descendant of n matching sel.
func Query(n *html.Node, sel string) *html.Node {
	if n == nil {
		return nil
	}
	return cascadia.Query(n, compile(sel))
}

// QueryAll returns every descendant of n matching sel, in document order.
func QueryAll(n *html.Node, sel string) []*html.Node {
	if n == nil {
		return nil
	}
	return cascadia.QueryAll(n, compile(sel))
}

// Matches reports whether element n matches sel.
func Matches(n *html.Node, sel string) bool {
	return n != nil && n.Type == html.ElementNode && compile(sel).Match(n)
}

// Closest returns n or its nearest ancestor matching sel.
func Closest(n *html.Node, sel string) *html.Node {
	for ; n != nil; n = n.Parent {
		if Matches(n, sel) {
			return n
		}
	}
	return nil
}

// ChildByClass returns the first direct element child of n carrying class.
func ChildByClass(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, class) {
			return c
		}
	}
	return nil
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, name string) string {
	v, _ := attr(n, name)
	return v
}

// Classes returns n's class list.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries class.
func HasClass(n *html.Node, class string) bool {
	return contains(Classes(n), class)
}

// Style returns one inline style property of n.
func Style(n *html.Node, prop string) string {
	for _, decl := range parseStyle(Attr(n, "style")) {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// InnerHTML renders n's children.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var b strings.Builder
	html.Render(&b, n)
	return b.String()
}

func attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func elementIndex(n *html.Node) int {
	idx := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

func elementChild(n *html.Node, idx int) *html.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if i == idx {
			return c
		}
		i++
	}
	return nil
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func parseStyle(s string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

func formatStyle(decls [][2]string) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d[0] + ": " + d[1] + ";"
	}
	return strings.Join(parts, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
