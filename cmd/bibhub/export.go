package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/bibtex"
	"github.com/matsen/bibhub/internal/clipboard"
	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/convert"
	"github.com/matsen/bibhub/internal/fileio"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
	"github.com/matsen/bibhub/internal/storage"
)

var (
	exportTo     string
	exportKeys   string
	exportOutput string
	exportAppend bool
	exportCopy   bool
	exportFlags  outputFlags
)

func init() {
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Target format (default: library export_format)")
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Export only specified IDs (comma-separated)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write output to file (.br compresses)")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append entries missing from --output (BibTeX family only)")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Copy the output to the clipboard instead of printing it")
	exportFlags.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export library entries to a citation format",
	Long: `Export library entries to a citation format.

With --append, entries already present in the --output file (matched by
DOI, then by citation key) are skipped and the rest are appended.

Examples:
  bibhub export --to bibtex
  bibhub export --to ris --keys smith2024,jones2025
  bibhub export --to biblatex -o refs.bib --append
  bibhub export --keys smith2024 --copy`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// ExportAppendResult is the response for export --append.
type ExportAppendResult struct {
	Path     string `json:"path"`
	Appended int    `json:"appended"`
	Skipped  int    `json:"skipped"`
}

func runExport(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	cfg := mustLoadConfig(root)

	to := exportTo
	if to == "" {
		if _, ok := fileio.DetectFormat(exportOutput); !ok {
			to = cfg.ExportFormat
		}
		if to == "" && exportOutput == "" {
			to = string(format.CSLJSON)
		}
	}
	target := mustParseFormat("to", to, exportOutput)
	opts := exportFlags.mustOptions(cmd, cfg)

	all, err := storage.ReadAll(config.EntriesPath(root))
	if err != nil {
		exitWithError(ExitDataError, "reading library: %v", err)
	}

	entries, missing := selectEntries(all, parseKeys(exportKeys))
	if len(missing) > 0 {
		exitWithError(ExitDataError, "unknown key: %s", strings.Join(missing, ", "))
	}

	if exportAppend {
		res, err := appendMissing(exportOutput, entries, target, opts)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Printf("Appended %d entries to %s (%d already present)\n", res.Appended, res.Path, res.Skipped)
		} else {
			outputJSON(res)
		}
		return nil
	}

	out, err := convert.Generate(entries, target, opts)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if exportCopy {
		if err := clipboard.Copy(out); err != nil {
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		if humanOutput {
			fmt.Printf("Copied %d entries to clipboard\n", len(entries))
		} else {
			outputJSON(StatusResponse{Status: "copied"})
		}
	} else if err := fileio.Write(exportOutput, out, os.Stdout); err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}
	printWarnings(os.Stderr, convert.GenerationWarnings(entries, target))
	return nil
}

// parseKeys splits a comma-separated key list, dropping blanks.
func parseKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// selectEntries returns the entries with the given keys, in key order, and
// the keys that matched nothing. No keys selects everything.
func selectEntries(all []reference.Entry, keys []string) (selected []reference.Entry, missing []string) {
	if len(keys) == 0 {
		return all, nil
	}
	for _, k := range keys {
		idx, ok := storage.FindByID(all, k)
		if !ok {
			missing = append(missing, k)
			continue
		}
		selected = append(selected, all[idx])
	}
	return selected, missing
}

// appendMissing appends to path the entries it does not already contain.
func appendMissing(path string, entries []reference.Entry, target format.Format, opts format.Options) (ExportAppendResult, error) {
	res := ExportAppendResult{Path: path}
	if path == "" || path == fileio.Stdio {
		return res, errors.New("--append requires --output")
	}
	if !target.IsBibTeXFamily() {
		return res, fmt.Errorf("--append supports bibtex and biblatex, not %s", target)
	}

	idx := bibtex.NewIndex()
	if _, err := os.Stat(path); err == nil {
		text, err := fileio.ReadFile(path)
		if err != nil {
			return res, err
		}
		existing, err := convert.Parse(text, target)
		if err != nil {
			return res, err
		}
		idx = bibtex.IndexEntries(existing.Entries)
	}

	toAdd := idx.Missing(entries)
	res.Appended = len(toAdd)
	res.Skipped = len(entries) - len(toAdd)
	if len(toAdd) == 0 {
		return res, nil
	}

	out, err := convert.Generate(toAdd, target, opts)
	if err != nil {
		return res, err
	}
	return res, fileio.AppendFile(path, out)
}
