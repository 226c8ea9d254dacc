package document

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Class names GitHub puts on rendered task lists. The markdown converter emits
// the same names so both document sources look alike to callers.
const (
	ClassTaskList     = "contains-task-list"
	ClassTaskItem     = "task-list-item"
	ClassTaskCheckbox = "task-list-item-checkbox"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// FromMarkdown parses GitHub flavored markdown into a tree rooted at a "body"
// element. HTML blocks become sanitized elements, as GitHub renders them, and
// code blocks never produce checkboxes.
func FromMarkdown(src []byte) *Node {
	body := NewElement("body")
	tree := markdown.Parser().Parse(text.NewReader(src))
	c := converter{src: src}
	c.appendChildren(body, tree)
	return body
}

type converter struct {
	src []byte
}

func (c converter) appendChildren(parent *Node, n ast.Node) {
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		c.append(parent, ch)
	}
}

func (c converter) element(parent *Node, n ast.Node, tag string, classes ...string) *Node {
	el := NewElement(tag, classes...)
	parent.AppendChild(el)
	c.appendChildren(el, n)
	return el
}

func (c converter) append(parent *Node, n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		c.element(parent, n, fmt.Sprintf("h%d", n.Level))
	case *ast.Paragraph:
		c.element(parent, n, "p")
	case *ast.TextBlock:
		// tight list items render their text inline, without a <p>
		c.appendChildren(parent, n)
	case *ast.List:
		tag := "ul"
		if n.IsOrdered() {
			tag = "ol"
		}
		el := NewElement(tag)
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if isTaskItem(item) {
				el.AddClass(ClassTaskList)
				break
			}
		}
		parent.AppendChild(el)
		c.appendChildren(el, n)
	case *ast.ListItem:
		if isTaskItem(n) {
			c.element(parent, n, "li", ClassTaskItem)
			return
		}
		c.element(parent, n, "li")
	case *extast.TaskCheckBox:
		el := NewElement("input", ClassTaskCheckbox)
		el.SetAttr("type", "checkbox")
		if n.IsChecked {
			el.SetAttr("checked", "")
		}
		parent.AppendChild(el)
	case *ast.Text:
		parent.AppendChild(NewText(string(n.Segment.Value(c.src))))
		if n.SoftLineBreak() || n.HardLineBreak() {
			parent.AppendChild(NewText("\n"))
		}
	case *ast.String:
		parent.AppendChild(NewText(string(n.Value)))
	case *ast.CodeSpan:
		c.element(parent, n, "code")
	case *ast.Emphasis:
		if n.Level >= 2 {
			c.element(parent, n, "strong")
			return
		}
		c.element(parent, n, "em")
	case *ast.Link:
		el := c.element(parent, n, "a")
		el.SetAttr("href", string(n.Destination))
	case *ast.AutoLink:
		el := NewElement("a")
		el.SetAttr("href", string(n.URL(c.src)))
		el.AppendChild(NewText(string(n.Label(c.src))))
		parent.AppendChild(el)
	case *ast.Image:
		alt := NewElement("span")
		c.appendChildren(alt, n)
		el := NewElement("img")
		el.SetAttr("src", string(n.Destination))
		el.SetAttr("alt", alt.TextContent())
		parent.AppendChild(el)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		pre := NewElement("pre")
		code := NewElement("code")
		code.AppendChild(NewText(c.blockSource(n)))
		pre.AppendChild(code)
		parent.AppendChild(pre)
	case *ast.HTMLBlock:
		for _, el := range parseFragment(c.blockSource(n)) {
			parent.AppendChild(el)
		}
	case *ast.RawHTML:
		// inline tags arrive one at a time; the text between them is kept
	case *ast.ThematicBreak:
		parent.AppendChild(NewElement("hr"))
	case *ast.Blockquote:
		c.element(parent, n, "blockquote")
	default:
		c.element(parent, n, fallbackTag(n))
	}
}

// blockSource joins a block's raw lines, including an HTML block's closing
// line.
func (c converter) blockSource(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	if h, ok := n.(*ast.HTMLBlock); ok && h.HasClosure() {
		b.Write(h.ClosureLine.Value(c.src))
	}
	return b.String()
}

func fallbackTag(n ast.Node) string {
	switch n.Kind() {
	case extast.KindTable:
		return "table"
	case extast.KindTableHeader:
		return "thead"
	case extast.KindTableRow:
		return "tr"
	case extast.KindTableCell:
		return "td"
	case extast.KindStrikethrough:
		return "del"
	}
	if n.Type() == ast.TypeBlock {
		return "div"
	}
	return "span"
}

// isTaskItem reports whether a list item starts with a task checkbox.
func isTaskItem(item ast.Node) bool {
	first := item.FirstChild()
	if first == nil {
		return false
	}
	_, ok := first.FirstChild().(*extast.TaskCheckBox)
	return ok
}
