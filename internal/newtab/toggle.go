package newtab

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/bookmarks"
	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/render"
)

// toggle flips the folder owning header. Only the folder's own list and
// subfolder container change; descendants keep their expanded flags.
func (p *Page) toggle(header *html.Node) {
	el := dom.Closest(header, ".bookmark-folder")
	id := dom.Attr(el, "data-folder-id")
	if id == "" {
		return
	}
	folder := bookmarks.FindFolderByID(p.view, id)
	if folder == nil || !folder.Toggleable() {
		return
	}
	folder.Expanded = !folder.Expanded
	applog.Info("newtab.toggle", "id", id, "expanded", strconv.FormatBool(folder.Expanded))

	p.setIcon(dom.ChildByClass(dom.ChildByClass(header, "folder-info"), "expand-icon"), folder.Expanded)
	if list := dom.ChildByClass(el, "bookmark-list"); list != nil {
		p.setList(list, folder.Expanded)
	}
	container := dom.ChildByClass(el, "subfolders-container")
	if container == nil {
		return
	}
	descendants := dom.QueryAll(container, ".bookmark-folder")
	if folder.Expanded {
		p.doc.SetStyle(container, "display", "block")
		p.doc.RemoveClass(container, "collapsed")
		p.doc.AddClass(container, "expanded")
		for _, d := range descendants {
			p.doc.SetStyle(d, "display", "block")
			p.doc.RemoveClass(d, "hidden")
			p.restore(d)
		}
		return
	}
	p.doc.RemoveClass(container, "expanded")
	p.doc.AddClass(container, "collapsed")
	for _, d := range descendants {
		p.doc.SetStyle(d, "display", "none")
	}
	p.doc.SetStyle(container, "display", "none")
}

// restore re-derives a bookmark-only folder's list and icon from its own
// flag after an ancestor is expanded.
func (p *Page) restore(el *html.Node) {
	header := dom.ChildByClass(el, "folder-header")
	if !dom.HasClass(header, "has-bookmarks") {
		return
	}
	folder := bookmarks.FindFolderByID(p.view, dom.Attr(el, "data-folder-id"))
	if folder == nil {
		return
	}
	if list := dom.ChildByClass(el, "bookmark-list"); list != nil {
		p.setList(list, folder.Expanded)
	}
	p.setIcon(dom.Query(header, ".expand-icon"), folder.Expanded)
}

func (p *Page) setIcon(icon *html.Node, expanded bool) {
	if icon == nil {
		return
	}
	p.doc.SetText(icon, render.Icon(expanded))
	p.doc.ToggleClass(icon, "expanded", expanded)
}

func (p *Page) setList(list *html.Node, expanded bool) {
	p.doc.SetStyle(list, "display", render.Display(expanded))
	p.doc.ToggleClass(list, "expanded", expanded)
	p.doc.ToggleClass(list, "collapsed", !expanded)
}
