package newtab

import (
	"context"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/history"
	"github.com/lotas/lesezeichen/internal/render"
)

func (p *Page) openSidebar(ctx context.Context) {
	if p.sidebarOpen {
		return
	}
	p.sidebarOpen = true
	p.doc.AddClass(p.doc.Query(".history-sidebar"), "open")
	p.doc.AddClass(p.doc.Query(".history-sidebar-overlay"), "active")
	p.doc.SetStyle(p.doc.Body(), "overflow", "hidden")

	items, err := history.Recent(ctx, p.deps.History, p.deps.HistoryMax, p.deps.Now())
	if err != nil {
		applog.Error("newtab.history", err)
		p.history = nil
		p.doc.SetInnerHTML(p.doc.Query(".history-sidebar-content"), render.HistoryError())
		return
	}
	p.history = items
	p.renderHistory(ctx)
}

func (p *Page) closeSidebar() {
	if !p.sidebarOpen {
		return
	}
	p.sidebarOpen = false
	p.doc.RemoveClass(p.doc.Query(".history-sidebar"), "open")
	p.doc.RemoveClass(p.doc.Query(".history-sidebar-overlay"), "active")
	p.doc.SetStyle(p.doc.Body(), "overflow", "")
}

func (p *Page) renderHistory(ctx context.Context) {
	content := p.doc.Query(".history-sidebar-content")
	filtered := history.Filter(p.history, p.historyQuery)
	p.doc.SetInnerHTML(content, render.HistoryContent(p.history, filtered, p.deps.Location))
	if len(filtered) > 0 {
		p.loadFavicons(ctx, content, "img.history-favicon", "data-history-url")
	}
}
