package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/reference"
)

var listLimit int

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum entries to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List library entries",
	Long: `List the entries in the search index, ordered by id.

Examples:
  bibhub list
  bibhub list --limit 100`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// ListResult is the response for the list command.
type ListResult struct {
	Total   int               `json:"total"`
	Entries []reference.Entry `json:"entries"`
}

func runList(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	db := mustOpenDatabase(root)
	defer db.Close()

	entries, err := db.ListAll(listLimit)
	if err != nil {
		exitWithError(ExitError, "listing entries: %v", err)
	}
	total, err := db.Count()
	if err != nil {
		exitWithError(ExitError, "counting entries: %v", err)
	}

	if humanOutput {
		fmt.Println(listHeading(total, len(entries)))
		if len(entries) > 0 {
			fmt.Println()
		}
		for _, e := range entries {
			fmt.Printf("  %-20s %s\n", e.ID, truncateString(e.Get(reference.FieldTitle), SummaryTitleLen))
		}
	} else {
		if entries == nil {
			entries = []reference.Entry{}
		}
		outputJSON(ListResult{Total: total, Entries: entries})
	}
	return nil
}

// listHeading summarizes how many of total entries are shown.
func listHeading(total, shown int) string {
	switch {
	case total == 0:
		return "No entries in library"
	case shown < total:
		return fmt.Sprintf("%d entries (showing first %d):", total, shown)
	}
	return fmt.Sprintf("%d entries in library:", total)
}
