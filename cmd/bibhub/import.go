package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/convert"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
	"github.com/matsen/bibhub/internal/storage"
)

var (
	importFrom   string
	importDryRun bool
)

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "Source format (default: from file extension)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries into the library",
	Long: `Import entries from a citation file into the library.

Entries whose DOI matches a library entry update it in place and keep its
id. Other entries are added; colliding ids get a -2, -3, ... suffix.

Examples:
  bibhub import refs.bib
  bibhub import export.txt --from ris
  bibhub import refs.bib --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	Imported int              `json:"imported"`
	Updated  int              `json:"updated"`
	Failed   int              `json:"failed"`
	Warnings []format.Warning `json:"warnings"`
}

// DryRunResult represents the result of a dry-run import.
type DryRunResult struct {
	WouldImport int            `json:"would_import"`
	WouldUpdate int            `json:"would_update"`
	WouldFail   int            `json:"would_fail"`
	Details     []ImportDetail `json:"details,omitempty"`
}

// ImportDetail describes a single import action.
type ImportDetail struct {
	ID     string `json:"id"`
	Action string `json:"action"` // new, update
	Title  string `json:"title"`
}

func runImport(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()

	text, path := readInput(args)
	from := mustParseFormat("from", importFrom, path)

	parsed, err := convert.Parse(text, from)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if len(parsed.Entries) == 0 && parsed.HasErrors() {
		if humanOutput {
			printWarnings(os.Stderr, parsed.Warnings)
		}
		exitWithError(ExitDataError, "failed to parse any entries")
	}

	entriesPath := config.EntriesPath(root)
	existing, err := storage.ReadAll(entriesPath)
	if err != nil {
		exitWithError(ExitDataError, "reading library: %v", err)
	}

	plan := storage.PlanImport(existing, parsed.Entries)
	imported, updated := countActions(plan)

	if importDryRun {
		details := make([]ImportDetail, len(plan))
		for i, p := range plan {
			details[i] = ImportDetail{
				ID:     p.Entry.ID,
				Action: p.Action,
				Title:  truncateString(p.Entry.Get(reference.FieldTitle), 60),
			}
		}
		if humanOutput {
			fmt.Printf("Dry run - would import from %s...\n", path)
			fmt.Printf("  Would import: %d new entries\n", imported)
			fmt.Printf("  Would update: %d existing entries (matched by DOI)\n", updated)
			fmt.Printf("  Would fail:   %d records\n", parsed.Stats.Failed)
		} else {
			outputJSON(DryRunResult{
				WouldImport: imported,
				WouldUpdate: updated,
				WouldFail:   parsed.Stats.Failed,
				Details:     details,
			})
		}
		return nil
	}

	if err := storage.SaveImport(entriesPath, existing, plan); err != nil {
		exitWithError(ExitError, "writing library: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()
	if _, err := db.RebuildFromJSONL(entriesPath); err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	warnings := parsed.Warnings
	if warnings == nil {
		warnings = []format.Warning{}
	}
	if humanOutput {
		fmt.Printf("Imported %d entries (%d new, %d updated)\n", imported+updated, imported, updated)
		if parsed.Stats.Failed > 0 {
			fmt.Printf("  %d records failed to parse\n", parsed.Stats.Failed)
		}
		printWarnings(os.Stdout, warnings)
	} else {
		outputJSON(ImportResult{
			Imported: imported,
			Updated:  updated,
			Failed:   parsed.Stats.Failed,
			Warnings: warnings,
		})
	}
	return nil
}

// countActions counts new and updated entries in an import plan.
func countActions(plan []storage.EntryWithAction) (imported, updated int) {
	for _, p := range plan {
		switch p.Action {
		case storage.ActionNew:
			imported++
		case storage.ActionUpdate:
			updated++
		}
	}
	return imported, updated
}
