package newtab

import (
	"context"

	"golang.org/x/net/html"

	"github.com/lotas/lesezeichen/internal/dom"
)

// loadFavicons resolves icons for every img matching sel under scope in
// the background. Each resolved icon is patched in when its img is still
// on the page: src set, hidden dropped, placeholder hidden.
func (p *Page) loadFavicons(ctx context.Context, scope *html.Node, sel, attr string) {
	if p.deps.Favicons == nil {
		return
	}
	imgs := dom.QueryAll(scope, sel)
	if len(imgs) == 0 {
		return
	}
	seen := make(map[string]bool)
	var urls []string
	for _, img := range imgs {
		u := dom.Attr(img, attr)
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		icons := p.deps.Favicons.GetAll(ctx, urls)
		if ctx.Err() != nil {
			return
		}
		byURL := make(map[string]string, len(urls))
		for i, u := range urls {
			byURL[u] = icons[i]
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		for _, img := range imgs {
			if _, ok := p.doc.Path(img); !ok {
				continue
			}
			icon := byURL[dom.Attr(img, attr)]
			if icon == "" {
				continue
			}
			p.doc.SetAttr(img, "src", icon)
			p.doc.RemoveClass(img, "hidden")
			if ph := dom.ChildByClass(img.Parent, "favicon-placeholder"); ph != nil {
				p.doc.SetStyle(ph, "display", "none")
			}
		}
		p.flush()
	}()
}
