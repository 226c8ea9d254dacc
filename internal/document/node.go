package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	ElementNode  = html.ElementNode
	TextNode     = html.TextNode
	DocumentNode = html.DocumentNode
)

// Node is an x/net/html node with the DOM helpers the checklist code needs.
// Conversions to and from *html.Node are free, so selectors run on the same
// tree and node identity is stable across queries.
type Node html.Node

func wrap(h *html.Node) *Node { return (*Node)(h) }

// HTML returns the underlying x/net/html node.
func (n *Node) HTML() *html.Node { return (*html.Node)(n) }

// NewElement creates a detached element with the given tag and classes.
func NewElement(tag string, classes ...string) *Node {
	tag = strings.ToLower(tag)
	n := &Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, c := range classes {
		n.AddClass(c)
	}
	return n
}

// NewText creates a detached text node.
func NewText(data string) *Node {
	return &Node{Type: html.TextNode, Data: data}
}

// Tag is the lower-case element name, or "" for non-elements.
func (n *Node) Tag() string {
	if n.Type != html.ElementNode {
		return ""
	}
	return n.Data
}

// AppendChild attaches c as the last child of n, detaching it first if needed.
func (n *Node) AppendChild(c *Node) {
	c.Remove()
	n.HTML().AppendChild(c.HTML())
}

// Remove detaches n from its parent. Removing a detached node is a no-op.
func (n *Node) Remove() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n.HTML())
	}
}

// SetText replaces all children of n with a single text node.
func (n *Node) SetText(text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.HTML().RemoveChild(c)
		c = next
	}
	n.AppendChild(NewText(text))
}

// AttrValue returns the attribute value and whether it is present.
func (n *Node) AttrValue(key string) (string, bool) {
	for _, a := range n.HTML().Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present, regardless of value.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.AttrValue(key)
	return ok
}

func (n *Node) SetAttr(key, value string) {
	for i, a := range n.HTML().Attr {
		if a.Namespace == "" && a.Key == key {
			n.HTML().Attr[i].Val = value
			return
		}
	}
	n.HTML().Attr = append(n.HTML().Attr, html.Attribute{Key: key, Val: value})
}

func (n *Node) RemoveAttr(key string) {
	attrs := n.HTML().Attr[:0]
	for _, a := range n.HTML().Attr {
		if a.Namespace != "" || a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.HTML().Attr = attrs
}

// Classes returns the element's class list.
func (n *Node) Classes() []string {
	v, _ := n.AttrValue("class")
	return strings.Fields(v)
}

func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

func (n *Node) AddClass(class string) {
	if class == "" || n.HasClass(class) {
		return
	}
	classes := append(n.Classes(), class)
	n.SetAttr("class", strings.Join(classes, " "))
}

// PreviousElementSibling skips text and comment siblings, like the DOM
// property of the same name.
func (n *Node) PreviousElementSibling() *Node {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode {
			return wrap(p)
		}
	}
	return nil
}

// Matches reports whether n is an element selected by sel.
func (n *Node) Matches(sel Selector) bool {
	return sel.Match(n)
}

// Closest returns n or its nearest ancestor matching sel.
func (n *Node) Closest(sel Selector) *Node {
	for cur := n.HTML(); cur != nil; cur = cur.Parent {
		if sel.Match(wrap(cur)) {
			return wrap(cur)
		}
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		wrap(c).Walk(fn)
	}
}

// QueryAll returns descendants of n matching sel, in document order.
func (n *Node) QueryAll(sel Selector) []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		wrap(c).Walk(func(x *Node) bool {
			if sel.Match(x) {
				out = append(out, x)
			}
			return true
		})
	}
	return out
}

// Query returns the first descendant matching sel, or nil.
func (n *Node) Query(sel Selector) *Node {
	var found *Node
	for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
		wrap(c).Walk(func(x *Node) bool {
			if found != nil {
				return false
			}
			if sel.Match(x) {
				found = x
				return false
			}
			return true
		})
	}
	return found
}

// TextContent concatenates the text of n and all of its descendants.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(x *Node) bool {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		return true
	})
	return b.String()
}
