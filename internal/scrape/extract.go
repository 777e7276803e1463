package scrape

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// walk traverses the DOM depth-first. fn returning false prunes the subtree.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findTitle extracts the <title> text.
func findTitle(doc *html.Node) string {
	var title string
	walk(doc, func(n *html.Node) bool {
		if title != "" {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return false
		}
		return true
	})
	return title
}

// metaContent returns the content attribute of the first <meta> whose
// property or name matches one of the given keys.
func metaContent(doc *html.Node, keys ...string) string {
	var content string
	walk(doc, func(n *html.Node) bool {
		if content != "" {
			return false
		}
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			return true
		}
		id := attr(n, "property")
		if id == "" {
			id = attr(n, "name")
		}
		for _, key := range keys {
			if id == key {
				content = attr(n, "content")
				return false
			}
		}
		return true
	})
	return content
}

// publishedTimeLayouts are tried in order when parsing date metadata.
var publishedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// findPublishedTime extracts the publication date from article metadata or a
// <time datetime> element. Pages without a parseable date report ok=false
// and are given the benefit of the doubt by the caller.
func findPublishedTime(doc *html.Node) (time.Time, bool) {
	raw := metaContent(doc, "article:published_time", "publish-date")
	if raw == "" {
		walk(doc, func(n *html.Node) bool {
			if raw != "" {
				return false
			}
			if n.Type == html.ElementNode && n.DataAtom == atom.Time {
				raw = attr(n, "datetime")
				return raw == ""
			}
			return true
		})
	}
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range publishedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// findImage extracts the representative image: Open Graph first, then the
// first image inside the article body.
func findImage(doc *html.Node, pageURL string) string {
	if img := metaContent(doc, "og:image", "twitter:image"); img != "" {
		return resolveRef(pageURL, img)
	}

	var src string
	inArticle := false
	walk(doc, func(n *html.Node) bool {
		if src != "" {
			return false
		}
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Article, atom.Main:
			inArticle = true
		case atom.Img:
			if inArticle {
				src = attr(n, "src")
				return false
			}
		}
		return true
	})
	if src == "" {
		return ""
	}
	return resolveRef(pageURL, src)
}

func resolveRef(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// boilerplateAtoms are elements skipped entirely during text extraction.
var boilerplateAtoms = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Nav:      {},
	atom.Header:   {},
	atom.Footer:   {},
	atom.Aside:    {},
}

// findMainText extracts readable text, preferring semantic landmarks
// (<article>, <main>, role=main) and falling back to the whole body.
func findMainText(doc *html.Node) string {
	if landmark := findLandmark(doc); landmark != nil {
		return collectText(landmark)
	}
	if body := findBody(doc); body != nil {
		return collectText(body)
	}
	return collectText(doc)
}

func findLandmark(doc *html.Node) *html.Node {
	var found *html.Node
	walk(doc, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type != html.ElementNode {
			return true
		}
		if n.DataAtom == atom.Article || n.DataAtom == atom.Main || attr(n, "role") == "main" {
			found = n
			return false
		}
		return true
	})
	return found
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	walk(doc, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}

// collectText gathers text content, skipping boilerplate subtrees and
// normalizing whitespace.
func collectText(root *html.Node) string {
	var parts []string
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if _, skip := boilerplateAtoms[n.DataAtom]; skip {
				return false
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}
