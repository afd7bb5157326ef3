package newtab

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/dom"
	"github.com/lotas/lesezeichen/internal/render"
)

type editState struct {
	url string // lookup key of the bookmark being edited
}

type deleteState struct {
	url   string
	title string
}

func (p *Page) openEdit(ctx context.Context, btn *html.Node) {
	url := dom.Attr(btn, "data-bookmark-url")
	title := dom.Attr(btn, "data-bookmark-title")
	if url == "" || title == "" {
		return
	}
	node, err := p.deps.Bookmarks.Lookup(ctx, url)
	if err != nil {
		applog.Error("newtab.edit", err, "url", url)
		p.showError(UserMessage(err, "edit"))
		return
	}
	folders, err := p.deps.Bookmarks.FolderChoices(ctx)
	if err != nil {
		applog.Error("newtab.edit", err)
		p.showError(UserMessage(err, "edit"))
		return
	}

	p.closeEdit()
	p.doc.AppendHTML(p.doc.Body(), render.EditDialog(node.Title, node.URL, node.ParentID, folders))
	p.edit = &editState{url: url}
	p.doc.Focus(p.doc.ByID("edit-title"))
}

func (p *Page) closeEdit() {
	if d := p.doc.ByID("edit-dialog"); d != nil {
		p.doc.Remove(d)
	}
	p.edit = nil
}

func (p *Page) editError(msg string) {
	el := p.doc.Query("#edit-dialog .edit-dialog-error")
	if el == nil {
		return
	}
	p.doc.SetText(el, msg)
	p.doc.SetStyle(el, "display", "block")
}

// saveEdit updates the bookmark, moves it when the folder changed and
// reloads the page. Failures keep the dialog open.
func (p *Page) saveEdit(ctx context.Context) {
	if p.edit == nil {
		return
	}
	title := strings.TrimSpace(dom.Value(p.doc.ByID("edit-title")))
	url := strings.TrimSpace(dom.Value(p.doc.ByID("edit-url")))
	folderID := dom.Value(p.doc.ByID("edit-folder"))
	if title == "" || url == "" {
		p.editError("Name and URL are required.")
		return
	}

	if err := p.deps.Bookmarks.Edit(ctx, p.edit.url, title, url, folderID); err != nil {
		applog.Error("newtab.save", err, "url", p.edit.url, "folder", folderID)
		p.showError(UserMessage(err, "update"))
		return
	}
	p.closeEdit()
	p.command(OpReload, "")
}

func (p *Page) fetchTitle(ctx context.Context) {
	if p.edit == nil {
		return
	}
	if p.deps.Titles == nil {
		p.editError("Title lookup is not available.")
		return
	}
	url := strings.TrimSpace(dom.Value(p.doc.ByID("edit-url")))
	title, err := p.deps.Titles.FetchTitle(ctx, url)
	if err != nil {
		applog.Error("newtab.fetch_title", err, "url", url)
		p.editError("Could not read the page title.")
		return
	}
	p.doc.SetInputValue(p.doc.ByID("edit-title"), title)
}

func (p *Page) openDelete(btn *html.Node) {
	url := dom.Attr(btn, "data-bookmark-url")
	title := dom.Attr(btn, "data-bookmark-title")
	if url == "" || title == "" {
		return
	}
	p.closeDelete()
	p.doc.AppendHTML(p.doc.Body(), render.DeleteDialog(title, url))
	p.del = &deleteState{url: url, title: title}
}

func (p *Page) closeDelete() {
	if d := p.doc.ByID("delete-dialog"); d != nil {
		p.doc.Remove(d)
	}
	p.del = nil
}

// confirmDelete removes the bookmark and reloads. On failure the page is
// left as it was and an error is shown.
func (p *Page) confirmDelete(ctx context.Context) {
	if p.del == nil {
		return
	}
	url := p.del.url
	p.closeDelete()
	if err := p.deps.Bookmarks.Delete(ctx, url); err != nil {
		applog.Error("newtab.delete", err, "url", url)
		p.showError(UserMessage(err, "delete"))
		return
	}
	p.command(OpReload, "")
}

func (p *Page) showError(msg string) {
	p.closeError()
	p.doc.AppendHTML(p.doc.Body(), render.ErrorDialog(msg))
}

func (p *Page) closeError() {
	if d := p.doc.ByID("error-dialog"); d != nil {
		p.doc.Remove(d)
	}
}
