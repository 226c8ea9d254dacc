package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "checklist",
		Short: "Checklist progress and merge gate for pull request descriptions",
		Long: `checklist groups the task-list checkboxes of a pull request description
by their nearest heading, reports progress per section and in total, and
tells whether the merge gate would be open.`,
		SilenceUsage: true,
	}
	root.AddCommand(newProgressCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
