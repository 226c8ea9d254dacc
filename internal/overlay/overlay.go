// Package overlay renders the progress summary that is posted on a pull
// request and tracks its collapsed and hidden state.
package overlay

import (
	"fmt"
	"strings"

	"github.com/cexll/checklist-gate/internal/checklist"
)

const (
	// Marker identifies the summary comment among the PR's comments.
	Marker = "<!-- checklist-gate:summary -->"
	Title  = "📊 PR Progress"

	DefaultKeyword = "/checklist"

	barWidth = 10
)

// Bar draws a fixed width text progress bar.
func Bar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := (pct*barWidth + 50) / 100
	if filled == barWidth && pct < 100 {
		filled = barWidth - 1
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Render builds the summary comment body. It returns "" for an empty summary
// so callers skip or remove the comment.
func Render(sum checklist.Summary, st State) string {
	return RenderWith(sum, st, DefaultKeyword)
}

// RenderWith is Render with the command keyword shown in the footer.
func RenderWith(sum checklist.Summary, st State, keyword string) string {
	total, ok := sum.Total.Percentage()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(Marker + "\n")
	fmt.Fprintf(&b, "### %s\n\n", Title)
	fmt.Fprintf(&b, "`%s` **%d%% complete** · ✅ %d/%d total\n\n",
		Bar(total), total, sum.Total.Completed, sum.Total.Total)

	if st.Collapsed {
		fmt.Fprintf(&b, "<details>\n<summary>%d section(s)</summary>\n\n", len(sum.Groups))
	}

	b.WriteString("| Section | Progress | Done | % |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, g := range sum.Groups {
		fmt.Fprintf(&b, "| %s | `%s` | %d/%d | %d%% |\n",
			escapeCell(g.Name), Bar(g.Percentage), g.Stats.Completed, g.Stats.Total, g.Percentage)
	}

	if st.Collapsed {
		b.WriteString("\n</details>\n")
	}

	if sum.Total.Complete() {
		b.WriteString("\n🎉 All checklist items are complete.\n")
	}

	if keyword != "" {
		fmt.Fprintf(&b, "\n<sub>Comment `%s toggle` to hide or show this summary, `%s collapse` to fold it.</sub>\n", keyword, keyword)
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
