package document

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML parses rendered HTML (a GitHub body_html fragment or a saved page)
// into a tree rooted at a DocumentNode.
func FromHTML(r io.Reader) (*Node, error) {
	parsed, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return wrap(parsed), nil
}

// Render writes n as HTML.
func Render(w io.Writer, n *Node) error {
	return html.Render(w, n.HTML())
}

// Tags and attributes GitHub strips from user-written HTML in a PR body.
// Dropping them keeps raw HTML from forging task items or merge controls.
var (
	strippedTags = map[atom.Atom]bool{
		atom.Script: true, atom.Style: true, atom.Input: true, atom.Button: true,
		atom.Form: true, atom.Iframe: true, atom.Textarea: true, atom.Select: true,
	}
	strippedAttrs = map[string]bool{"class": true, "style": true}
)

var fragmentContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// parseFragment parses a raw HTML block from a markdown source the way GitHub
// renders it: sanitized and in body context.
func parseFragment(src string) []*Node {
	nodes, err := html.ParseFragment(strings.NewReader(src), fragmentContext)
	if err != nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, h := range nodes {
		if h.Type == html.ElementNode && strippedTags[h.DataAtom] {
			continue
		}
		sanitize(h)
		out = append(out, wrap(h))
	}
	return out
}

func sanitize(h *html.Node) {
	attrs := h.Attr[:0]
	for _, a := range h.Attr {
		if strippedAttrs[a.Key] || strings.HasPrefix(a.Key, "on") {
			continue
		}
		attrs = append(attrs, a)
	}
	h.Attr = attrs

	for c := h.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && strippedTags[c.DataAtom] {
			h.RemoveChild(c)
		} else {
			sanitize(c)
		}
		c = next
	}
}
