package document

import (
	"bytes"
	"strings"
	"testing"
)

const prBody = `## Setup

- [x] install deps
- [ ] configure env

Some notes here.

## Tests

- [x] unit
- [X] integration
`

func TestFromMarkdown_TaskListShape(t *testing.T) {
	doc := FromMarkdown([]byte(prBody))

	items := doc.QueryAll(MustSelector("." + ClassTaskItem))
	if len(items) != 4 {
		t.Fatalf("task items = %d, want 4", len(items))
	}

	lists := doc.QueryAll(MustSelector("ul." + ClassTaskList))
	if len(lists) != 2 {
		t.Fatalf("task lists = %d, want 2", len(lists))
	}

	wantChecked := []bool{true, false, true, true}
	for i, item := range items {
		box := item.Query(MustSelector("input." + ClassTaskCheckbox))
		if box == nil {
			t.Fatalf("item %d has no checkbox", i)
		}
		if got := box.HasAttr("checked"); got != wantChecked[i] {
			t.Errorf("item %d checked = %v, want %v", i, got, wantChecked[i])
		}
	}

	prev := lists[1].PreviousElementSibling()
	if prev == nil || prev.Tag() != "h2" {
		t.Fatalf("second list previous sibling = %+v, want h2", prev)
	}
	if got := strings.TrimSpace(prev.TextContent()); got != "Tests" {
		t.Errorf("heading text = %q, want Tests", got)
	}
}

func TestFromMarkdown_CodeBlocksAreInert(t *testing.T) {
	src := "```md\n- [ ] not a task\n```\n\n`- [x] inline`\n"
	doc := FromMarkdown([]byte(src))

	if items := doc.QueryAll(MustSelector("." + ClassTaskItem)); len(items) != 0 {
		t.Fatalf("task items = %d, want 0", len(items))
	}
	if doc.Query(MustSelector("pre")) == nil {
		t.Fatal("expected a pre element for the fenced block")
	}
}

func TestFromMarkdown_MixedListOnlyMarksTaskItems(t *testing.T) {
	doc := FromMarkdown([]byte("- [ ] first\n- plain\n- [x] second\n"))

	list := doc.Query(MustSelector("ul"))
	if list == nil || !list.HasClass(ClassTaskList) {
		t.Fatalf("list = %+v, want contains-task-list", list)
	}
	lis := list.QueryAll(MustSelector("li"))
	if len(lis) != 3 {
		t.Fatalf("li count = %d, want 3", len(lis))
	}
	if lis[1].HasClass(ClassTaskItem) {
		t.Error("plain item should not be a task item")
	}
	if lis[2].PreviousElementSibling() != lis[1] {
		t.Error("sibling links broken")
	}
}

func TestFromHTML_GitHubRendering(t *testing.T) {
	src := `<h3>Checklist</h3>
<ul class="contains-task-list">
<li class="task-list-item"><input type="checkbox" class="task-list-item-checkbox" checked disabled> done</li>
<li class="task-list-item"><input type="checkbox" class="task-list-item-checkbox" disabled> todo</li>
</ul>
<button class="btn merge-box-button">Merge</button>`

	doc, err := FromHTML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if doc.Type != DocumentNode {
		t.Fatalf("root type = %v, want document", doc.Type)
	}

	items := doc.QueryAll(MustSelector(".task-list-item"))
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if !items[0].Query(MustSelector(".task-list-item-checkbox")).HasAttr("checked") {
		t.Error("first item should be checked")
	}
	if items[1].Query(MustSelector(".task-list-item-checkbox")).HasAttr("checked") {
		t.Error("second item should not be checked")
	}
	// text nodes between <li> elements are skipped
	if items[1].PreviousElementSibling() != items[0] {
		t.Error("PreviousElementSibling should skip whitespace text")
	}
	if doc.Query(MustSelector("button.merge-box-button")) == nil {
		t.Error("merge button not found")
	}
}

func TestRender_RoundTrip(t *testing.T) {
	doc := FromMarkdown([]byte("# Title\n\n- [x] done\n"))

	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`<h1>Title</h1>`, `class="task-list-item"`, `checked=""`} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered html missing %q:\n%s", want, out)
		}
	}

	again, err := FromHTML(strings.NewReader(out))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if n := len(again.QueryAll(MustSelector(".task-list-item"))); n != 1 {
		t.Errorf("reparsed items = %d, want 1", n)
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		want    string
	}{
		{in: "h1, h2, p", want: "h1, h2, p"},
		{in: " .merge-box-button ", want: ".merge-box-button"},
		{in: "button.btn.primary", want: "button.btn.primary"},
		{in: "#merge", want: "#merge"},
		{in: "button[type=submit]", want: "button[type=submit]"},
		{in: "div > p", want: "div > p"},
		{in: "", wantErr: true},
		{in: "a..b", wantErr: true},
		{in: "div[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sel, err := ParseSelector(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSelector(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelector(%q): %v", tt.in, err)
			}
			if sel.String() != tt.want {
				t.Errorf("String() = %q, want %q", sel.String(), tt.want)
			}
		})
	}
}

func TestSelector_Match(t *testing.T) {
	doc, err := FromHTML(strings.NewReader(`<div class="merge-box">
<button id="merge" type="submit" class="btn">Merge</button>
<button type="button" class="btn">Options</button>
</div>
<p><button type="submit">Other</button></p>`))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}

	tests := []struct {
		selector string
		want     []string
	}{
		{"#merge", []string{"Merge"}},
		{"button[type=submit]", []string{"Merge", "Other"}},
		{"div.merge-box > button", []string{"Merge", "Options"}},
		{"p button, #merge", []string{"Merge", "Other"}},
		{"button[type=reset]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			var got []string
			for _, n := range doc.QueryAll(MustSelector(tt.selector)) {
				got = append(got, n.TextContent())
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("QueryAll(%q) = %v, want %v", tt.selector, got, tt.want)
			}
		})
	}

	if (Selector{}).Match(doc.Query(MustSelector("#merge"))) {
		t.Error("zero selector should match nothing")
	}
}

func TestFromMarkdown_HTMLBlocks(t *testing.T) {
	src := "<h2>Setup</h2>\n\n- [ ] a\n\n<details open>\n<summary>More</summary>\n<p class=\"task-list-item\" onclick=\"x()\">note</p>\n<input type=\"checkbox\" checked>\n<script>alert(1)</script>\n</details>\n"
	doc := FromMarkdown([]byte(src))

	h2 := doc.Query(MustSelector("h2"))
	if h2 == nil || h2.TextContent() != "Setup" {
		t.Fatalf("h2 = %+v, want Setup heading", h2)
	}
	list := doc.Query(MustSelector("ul." + ClassTaskList))
	if list == nil || list.PreviousElementSibling() != h2 {
		t.Fatal("task list should follow the html heading")
	}

	details := doc.Query(MustSelector("details"))
	if details == nil || !details.HasAttr("open") {
		t.Fatalf("details = %+v", details)
	}
	note := details.Query(MustSelector("p"))
	if note == nil || note.HasAttr("class") || note.HasAttr("onclick") {
		t.Errorf("raw html attributes should be stripped: %+v", note)
	}
	if n := len(doc.QueryAll(MustSelector("." + ClassTaskItem))); n != 1 {
		t.Errorf("task items = %d, want 1 (raw html cannot forge items)", n)
	}
	if doc.Query(MustSelector("input:not(."+ClassTaskCheckbox+"), script")) != nil {
		t.Error("input and script tags should be dropped")
	}
}

func TestNode_RemoveAndSetText(t *testing.T) {
	parent := NewElement("div")
	a, b, c := NewElement("a"), NewElement("b"), NewElement("c")
	parent.AppendChild(a)
	parent.AppendChild(b)
	parent.AppendChild(c)

	b.Remove()
	if a.NextSibling != c.HTML() || c.PrevSibling != a.HTML() {
		t.Fatal("siblings not relinked after Remove")
	}
	b.Remove() // detached, no-op

	c.SetText("hello")
	c.SetText("world")
	if got := parent.TextContent(); got != "world" {
		t.Errorf("TextContent = %q, want world", got)
	}
	if c.Closest(MustSelector("div")) != parent {
		t.Error("Closest should find the parent")
	}
}
