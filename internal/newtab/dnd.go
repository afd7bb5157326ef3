package newtab

import (
	"context"

	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/dom"
)

type dragState struct {
	url      string
	title    string
	originID string
	link     *html.Node
}

func (p *Page) dragStart(target *html.Node) {
	link := dom.Closest(target, ".bookmark-link")
	if link == nil {
		return
	}
	url := dom.Attr(link, "data-url")
	title := dom.Text(dom.Query(link, ".bookmark-title"))
	folderID := dom.Attr(dom.Closest(link, ".bookmark-folder"), "data-folder-id")
	if url == "" || title == "" || folderID == "" {
		return
	}
	p.drag = &dragState{url: url, title: title, originID: folderID, link: link}
	p.doc.AddClass(link, "dragging")
}

// dropTarget returns the folder header under target and its folder id when
// it is a valid destination for the current drag.
func (p *Page) dropTarget(target *html.Node) (*html.Node, string) {
	if p.drag == nil {
		return nil, ""
	}
	header := dom.Closest(target, ".folder-header")
	if header == nil {
		return nil, ""
	}
	id := dom.Attr(dom.Closest(header, ".bookmark-folder"), "data-folder-id")
	if id == "" || id == p.drag.originID {
		return nil, ""
	}
	return header, id
}

func (p *Page) dragOver(target *html.Node) {
	header, _ := p.dropTarget(target)
	if header == nil {
		return
	}
	p.doc.AddClass(header, "drop-target-highlight")
	if ind := p.doc.Query(".bookmark-drop-indicator"); ind != nil {
		p.doc.SetStyle(ind, "display", "block")
	}
}

func (p *Page) dragLeave(target *html.Node) {
	header := dom.Closest(target, ".folder-header")
	if header == nil {
		return
	}
	p.doc.RemoveClass(header, "drop-target-highlight")
	if len(p.doc.QueryAll(".drop-target-highlight")) == 0 {
		if ind := p.doc.Query(".bookmark-drop-indicator"); ind != nil {
			p.doc.SetStyle(ind, "display", "none")
		}
	}
}

// dropOn moves the dragged bookmark into the folder under target and
// reloads the tree in place.
func (p *Page) dropOn(ctx context.Context, target *html.Node) {
	header, id := p.dropTarget(target)
	if header == nil {
		p.endDrag()
		return
	}
	d := p.drag
	p.endDrag()
	if err := p.deps.Bookmarks.Move(ctx, d.url, id); err != nil {
		applog.Error("newtab.drop", err, "url", d.url, "folder", id)
		p.showError(UserMessage(err, "move"))
		return
	}
	applog.Info("newtab.drop", "title", d.title, "from", d.originID, "to", id)
	p.reloadTree(ctx)
}

func (p *Page) endDrag() {
	if p.drag != nil {
		p.doc.RemoveClass(p.drag.link, "dragging")
		p.drag = nil
	}
	for _, h := range p.doc.QueryAll(".drop-target-highlight") {
		p.doc.RemoveClass(h, "drop-target-highlight")
	}
	if ind := p.doc.Query(".bookmark-drop-indicator"); ind != nil {
		p.doc.SetStyle(ind, "display", "none")
	}
}
