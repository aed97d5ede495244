package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new bibhub library",
	Long: `Initialize a new bibhub library in the given directory (default: current).

Creates:
  .bibhub/
  ├── entries.jsonl   # Canonical entries, one per line
  ├── config.json     # Library config
  └── cache/          # SQLite index (gitignored)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root = config.ExpandPath(root)

	if config.IsLibrary(root) {
		exitWithError(ExitError, "directory already contains a bibhub library")
	}

	if err := initLibrary(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized bibhub library in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}
	return nil
}

// initLibrary creates the library layout under root.
func initLibrary(root string) error {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating .bibhub directory: %w", err)
	}

	f, err := os.Create(config.EntriesPath(root))
	if err != nil {
		return fmt.Errorf("creating %s: %w", config.EntriesFile, err)
	}
	f.Close()

	cfg := &config.Config{ExportFormat: "bibtex"}
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("creating %s: %w", config.ConfigFile, err)
	}
	return nil
}
