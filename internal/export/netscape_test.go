package export

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

func TestNetscape(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	result := Netscape(testForest(), now)

	if !strings.HasPrefix(result, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Errorf("missing doctype, got:\n%s", result)
	}
	if !strings.Contains(result, `<H3 ADD_DATE="1709294400">Dev &amp; Tools</H3>`) {
		t.Errorf("folder title not escaped, got:\n%s", result)
	}
	if !strings.Contains(result, `HREF="https://notitle.com/page?a=1&amp;b=2"`) {
		t.Errorf("href not escaped, got:\n%s", result)
	}

	// Browsers parse the file as HTML; every link must survive that.
	doc, err := html.Parse(strings.NewReader(result))
	if err != nil {
		t.Fatal(err)
	}
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" {
					hrefs = append(hrefs, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(hrefs) != 4 || hrefs[2] != "https://notitle.com/page?a=1&b=2" {
		t.Errorf("parsed hrefs = %v", hrefs)
	}
}
