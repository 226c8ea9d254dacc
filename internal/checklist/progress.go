package checklist

import "github.com/cexll/checklist-gate/internal/document"

// Stats counts completed items out of a total.
type Stats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Add sums two stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{Completed: s.Completed + o.Completed, Total: s.Total + o.Total}
}

// Complete reports whether every item is checked and there is at least one.
func (s Stats) Complete() bool {
	return s.Total > 0 && s.Completed == s.Total
}

// Percentage rounds completed/total*100 half-up. ok is false when Total is 0.
// An incomplete checklist never reports 100, so 199/200 is 99.
func (s Stats) Percentage() (pct int, ok bool) {
	if s.Total <= 0 {
		return 0, false
	}
	pct = (200*s.Completed + s.Total) / (2 * s.Total)
	if pct >= 100 && !s.Complete() {
		pct = 99
	}
	return pct, true
}

// StatsOf counts the given items directly.
func StatsOf(items []TaskItem) Stats {
	s := Stats{Total: len(items)}
	for _, it := range items {
		if it.Checked {
			s.Completed++
		}
	}
	return s
}

// Stats counts the group's items.
func (g Group) Stats() Stats {
	return StatsOf(g.Items)
}

// GroupProgress is one group's stats and percentage.
type GroupProgress struct {
	Name       string     `json:"name"`
	Stats      Stats      `json:"stats"`
	Percentage int        `json:"percentage"`
	Items      []TaskItem `json:"items,omitempty"`
}

// Summary holds per-group progress and the grand total.
type Summary struct {
	Groups []GroupProgress `json:"groups"`
	Total  Stats           `json:"total"`
}

// Empty reports whether there is nothing to show or gate.
func (s Summary) Empty() bool {
	return s.Total.Total == 0
}

// Summarize computes per-group stats and sums them into the total.
func Summarize(groups []Group) Summary {
	var sum Summary
	for _, g := range groups {
		st := g.Stats()
		pct, _ := st.Percentage()
		sum.Groups = append(sum.Groups, GroupProgress{
			Name:       g.Name,
			Stats:      st,
			Percentage: pct,
			Items:      g.Items,
		})
		sum.Total = sum.Total.Add(st)
	}
	return sum
}

// Analyze groups and summarizes a document in one pass.
func Analyze(doc *document.Node) Summary {
	return Summarize(FindGroups(doc))
}
