package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cexll/checklist-gate/internal/checklist"
	"github.com/cexll/checklist-gate/internal/document"
	"github.com/cexll/checklist-gate/internal/gate"
	"github.com/cexll/checklist-gate/internal/overlay"
)

// ErrIncomplete is returned with --gate while items remain unchecked.
var ErrIncomplete = errors.New("checklist incomplete")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const nameColumnMax = 32

type progressOptions struct {
	format   string
	jsonOut  bool
	gateExit bool
	mergeSel string
	menuSel  string
}

type progressReport struct {
	File     string            `json:"file"`
	Summary  checklist.Summary `json:"summary"`
	Decision gate.Decision     `json:"decision"`
}

func newProgressCmd() *cobra.Command {
	opts := &progressOptions{}
	cmd := &cobra.Command{
		Use:   "progress FILE",
		Short: "Show checklist progress of a markdown or HTML description",
		Long: `Show checklist progress of a pull request description.

FILE is markdown unless it ends in .html/.htm or --format says otherwise.
Use "-" to read standard input.

With --gate the command fails while any item is unchecked, for use in CI.
With --merge-selector the HTML document's merge controls are gated and the
affected controls are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "auto", "input format: auto, markdown or html")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output the report as JSON")
	cmd.Flags().BoolVar(&opts.gateExit, "gate", false, "exit non-zero while the checklist is incomplete")
	cmd.Flags().StringVar(&opts.mergeSel, "merge-selector", "", "selector for merge buttons to gate in the document")
	cmd.Flags().StringVar(&opts.menuSel, "menu-selector", gate.DefaultMenuSelector, "selector for merge menu items that follow the buttons")
	return cmd
}

func runProgress(ctx context.Context, stdin io.Reader, out io.Writer, path string, opts *progressOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var src []byte
	var err error
	if path == "-" {
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	format, err := resolveFormat(opts.format, path)
	if err != nil {
		return err
	}

	var doc *document.Node
	if format == "html" {
		if doc, err = document.FromHTML(bytes.NewReader(src)); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		doc = document.FromMarkdown(src)
	}

	sum := checklist.Analyze(doc)
	report := progressReport{File: path, Summary: sum, Decision: gate.Decide(sum.Total)}

	if opts.mergeSel != "" {
		surface, err := gate.NewDocumentSurface(doc, opts.mergeSel, opts.menuSel)
		if err != nil {
			return err
		}
		report.Decision, err = gate.NewController(surface).Apply(ctx, sum.Total)
		surface.Close()
		if err != nil {
			return fmt.Errorf("failed to gate merge controls: %w", err)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report, opts.mergeSel != "")
	}

	if opts.gateExit && !sum.Total.Complete() && !sum.Empty() {
		return ErrIncomplete
	}
	return nil
}

func resolveFormat(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return "markdown", nil
	case "html":
		return "html", nil
	case "", "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			return "html", nil
		}
		return "markdown", nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, markdown or html)", format)
	}
}

func printReport(out io.Writer, r progressReport, gated bool) {
	if r.Summary.Empty() {
		fmt.Fprintln(out, mutedStyle.Render("No checklist items found."))
		return
	}

	pct, _ := r.Summary.Total.Percentage()
	fmt.Fprintln(out, titleStyle.Render(overlay.Title))
	fmt.Fprintf(out, "%s %s  %d/%d total\n\n",
		styleFor(r.Summary.Total).Render(overlay.Bar(pct)),
		titleStyle.Render(fmt.Sprintf("%d%% complete", pct)),
		r.Summary.Total.Completed, r.Summary.Total.Total)

	width := 0
	for _, g := range r.Summary.Groups {
		width = max(width, min(lipgloss.Width(g.Name), nameColumnMax))
	}
	nameStyle := lipgloss.NewStyle().Width(width).MaxWidth(width)
	for _, g := range r.Summary.Groups {
		fmt.Fprintf(out, "%s  %s  %d/%d  %d%%\n",
			nameStyle.Render(g.Name),
			styleFor(g.Stats).Render(overlay.Bar(g.Percentage)),
			g.Stats.Completed, g.Stats.Total, g.Percentage)
	}

	fmt.Fprintln(out)
	switch r.Decision.Action {
	case gate.ActionEnable:
		fmt.Fprintln(out, doneStyle.Render("🎉 All items complete, merge is open"))
	case gate.ActionDisable:
		fmt.Fprintln(out, pendingStyle.Render(r.Decision.Hint))
	}
	if gated {
		if len(r.Decision.Controls) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No merge controls matched"))
		} else {
			fmt.Fprintf(out, "%s: %s\n", r.Decision.Action, strings.Join(r.Decision.Controls, ", "))
		}
	}
}

func styleFor(s checklist.Stats) lipgloss.Style {
	if s.Complete() {
		return doneStyle
	}
	return pendingStyle
}
