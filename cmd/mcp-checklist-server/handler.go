package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/checklist-gate/internal/checklist"
	"github.com/cexll/checklist-gate/internal/document"
	"github.com/cexll/checklist-gate/internal/gate"
)

// ProgressParams is the tool input.
type ProgressParams struct {
	Markdown string `json:"markdown" jsonschema:"Pull request description in GitHub flavored markdown, or rendered HTML when html is set"`
	HTML     bool   `json:"html,omitempty" jsonschema:"Treat the input as rendered HTML"`
}

type GroupResult struct {
	Name       string `json:"name"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// ProgressResult is the tool output.
type ProgressResult struct {
	Groups     []GroupResult `json:"groups"`
	Completed  int           `json:"completed"`
	Total      int           `json:"total"`
	Percentage int           `json:"percentage"`
	Complete   bool          `json:"complete"`
	Gate       gate.Action   `json:"gate"`
	Hint       string        `json:"hint,omitempty"`
}

// HandleChecklistProgress handles the checklist_progress tool call
func HandleChecklistProgress(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params ProgressParams,
) (*mcp.CallToolResult, ProgressResult, error) {
	log.Printf("[MCP Checklist Server] Received %s request (%d bytes)", toolName, len(params.Markdown))

	if strings.TrimSpace(params.Markdown) == "" {
		return nil, ProgressResult{}, fmt.Errorf("markdown parameter is required")
	}

	var doc *document.Node
	if params.HTML {
		var err error
		doc, err = document.FromHTML(strings.NewReader(params.Markdown))
		if err != nil {
			return nil, ProgressResult{}, fmt.Errorf("parse html: %w", err)
		}
	} else {
		doc = document.FromMarkdown([]byte(params.Markdown))
	}

	sum := checklist.Analyze(doc)
	decision := gate.Decide(sum.Total)
	pct, _ := sum.Total.Percentage()

	out := ProgressResult{
		Groups:     make([]GroupResult, 0, len(sum.Groups)),
		Completed:  sum.Total.Completed,
		Total:      sum.Total.Total,
		Percentage: pct,
		Complete:   sum.Total.Complete(),
		Gate:       decision.Action,
		Hint:       decision.Hint,
	}
	for _, g := range sum.Groups {
		out.Groups = append(out.Groups, GroupResult{
			Name:       g.Name,
			Completed:  g.Stats.Completed,
			Total:      g.Stats.Total,
			Percentage: g.Percentage,
		})
	}

	log.Printf("[MCP Checklist Server] %d group(s), %d/%d items, gate %s", len(out.Groups), out.Completed, out.Total, out.Gate)
	return nil, out, nil
}
