// Package checklist groups task-list items by their nearest heading and
// computes completion stats. Everything here is a pure function of the
// document passed in.
package checklist

import (
	"strings"

	"github.com/cexll/checklist-gate/internal/document"
)

// Uncategorized names a group with no preceding heading or paragraph.
const Uncategorized = "Uncategorized"

var (
	taskItemSel  = document.MustSelector("." + document.ClassTaskItem)
	checkboxSel  = document.MustSelector("." + document.ClassTaskCheckbox)
	containerSel = document.MustSelector("." + document.ClassTaskList)
	headerSel    = document.MustSelector("h1, h2, h3, h4, h5, h6, p")
	nestedSel    = document.MustSelector("ul, ol")
)

// TaskItem is a transient reference to a checkbox-bearing list entry.
type TaskItem struct {
	Node     *document.Node `json:"-"`
	Checked  bool           `json:"checked"`
	Position int            `json:"position"`
	Text     string         `json:"text"`
}

// Group is a contiguous run of task items under one name.
type Group struct {
	Name  string     `json:"name"`
	Items []TaskItem `json:"items"`
}

// FindGroups partitions the document's task items into groups. An item opens
// a new group when it is the first item or when its previous element sibling
// is not a task item; otherwise it joins the group that is currently open.
func FindGroups(doc *document.Node) []Group {
	if doc == nil {
		return nil
	}
	nodes := doc.QueryAll(taskItemSel)
	if len(nodes) == 0 {
		return nil
	}

	var groups []Group
	for i, n := range nodes {
		prev := n.PreviousElementSibling()
		if i == 0 || prev == nil || !prev.Matches(taskItemSel) {
			groups = append(groups, Group{Name: groupName(n.Closest(containerSel))})
		}
		cur := len(groups) - 1
		groups[cur].Items = append(groups[cur].Items, newTaskItem(n, i))
	}
	return groups
}

// groupName walks backwards from the task-list container to the first
// heading or paragraph sibling.
func groupName(container *document.Node) string {
	if container == nil {
		return Uncategorized
	}
	for prev := container.PreviousElementSibling(); prev != nil; prev = prev.PreviousElementSibling() {
		if prev.Matches(headerSel) {
			return strings.TrimSpace(prev.TextContent())
		}
	}
	return Uncategorized
}

func newTaskItem(n *document.Node, position int) TaskItem {
	box := n.Query(checkboxSel)
	return TaskItem{
		Node:     n,
		Checked:  box != nil && box.HasAttr("checked"),
		Position: position,
		Text:     itemText(n),
	}
}

// itemText is the item's own label, without nested lists.
func itemText(n *document.Node) string {
	var b strings.Builder
	n.Walk(func(x *document.Node) bool {
		if x != n && x.Matches(nestedSel) {
			return false
		}
		if x.Type == document.TextNode {
			b.WriteString(x.Data)
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Flatten returns all items of all groups in document order.
func Flatten(groups []Group) []TaskItem {
	var out []TaskItem
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}
