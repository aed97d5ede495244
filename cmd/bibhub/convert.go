package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/convert"
	"github.com/matsen/bibhub/internal/fileio"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
)

var (
	convertFrom   string
	convertTo     string
	convertOutput string
	convertStrict bool
	convertFlags  outputFlags
)

func init() {
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "Source format (default: from file extension)")
	convertCmd.Flags().StringVar(&convertTo, "to", "", "Target format (default: from --output extension)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Write output to file (.br compresses)")
	convertCmd.Flags().BoolVar(&convertStrict, "strict", false, "Exit with a data error if any record failed")
	convertFlags.register(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a citation file to another format",
	Long: `Convert a citation file to another format.

Reads stdin when no file is given or the file is "-". Without --output the
converted text goes to stdout and warnings to stderr; with --output a JSON
summary is printed instead.

Formats: bibtex, biblatex, ris, endnote, csl-json

Examples:
  bibhub convert refs.bib --to ris
  bibhub convert refs.ris --to csl-json -o refs.json
  bibhub convert --from endnote --to bibtex < library.xml
  bibhub convert refs.bib.br --to biblatex --sort --indent 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

// ConvertSummary is the JSON summary printed when output goes to a file.
type ConvertSummary struct {
	From     format.Format    `json:"from"`
	To       format.Format    `json:"to"`
	Output   string           `json:"output"`
	Stats    format.Stats     `json:"stats"`
	Warnings []format.Warning `json:"warnings"`
}

func runConvert(cmd *cobra.Command, args []string) error {
	text, path := readInput(args)
	from := mustParseFormat("from", convertFrom, path)
	to := mustParseFormat("to", convertTo, convertOutput)
	opts := convertFlags.mustOptions(cmd, nil)

	res, err := convert.ConvertWithOptions(text, from, to, opts)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if res.Warnings == nil {
		res.Warnings = []format.Warning{}
	}

	if convertOutput == "" || convertOutput == fileio.Stdio {
		if err := fileio.Write(convertOutput, res.Output, os.Stdout); err != nil {
			exitWithError(ExitError, "writing output: %v", err)
		}
		printWarnings(os.Stderr, res.Warnings)
	} else {
		if err := fileio.WriteFile(convertOutput, res.Output); err != nil {
			exitWithError(ExitError, "writing %s: %v", convertOutput, err)
		}
		summary := ConvertSummary{
			From:     from,
			To:       to,
			Output:   convertOutput,
			Stats:    res.Parse.Stats,
			Warnings: res.Warnings,
		}
		if humanOutput {
			fmt.Printf("Converted %d of %d records (%s -> %s) to %s\n",
				summary.Stats.Successful, summary.Stats.Total, from, to, convertOutput)
			printWarnings(os.Stdout, res.Warnings)
		} else {
			outputJSON(summary)
		}
	}

	if convertStrict && res.Parse.HasErrors() {
		os.Exit(ExitDataError)
	}
	return nil
}

var parseFrom string

func init() {
	parseCmd.Flags().StringVar(&parseFrom, "from", "", "Source format (default: from file extension)")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a citation file into canonical entries",
	Long: `Parse a citation file and print the parse result: canonical entries,
warnings, and record statistics.

Examples:
  bibhub parse refs.bib
  bibhub parse --from ris < export.txt
  bibhub parse refs.ris --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	text, path := readInput(args)
	from := mustParseFormat("from", parseFrom, path)

	res, err := convert.Parse(text, from)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		for i, e := range res.Entries {
			printEntrySummary(os.Stdout, i+1, e)
		}
		fmt.Printf("%d records: %d parsed (%d with warnings), %d failed\n",
			res.Stats.Total, res.Stats.Successful, res.Stats.WithWarnings, res.Stats.Failed)
		printWarnings(os.Stdout, res.Warnings)
	} else {
		if res.Entries == nil {
			res.Entries = []reference.Entry{}
		}
		if res.Warnings == nil {
			res.Warnings = []format.Warning{}
		}
		outputJSON(res)
	}
	return nil
}

var (
	generateTo     string
	generateOutput string
	generateFlags  outputFlags
)

func init() {
	generateCmd.Flags().StringVar(&generateTo, "to", "", "Target format (default: from --output extension)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write output to file (.br compresses)")
	generateFlags.register(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [file.json]",
	Short: "Generate a citation format from canonical JSON",
	Long: `Generate a citation format from canonical (CSL-JSON shaped) entries.

Examples:
  bibhub generate entries.json --to bibtex
  bibhub parse refs.ris | bibhub generate --to biblatex`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	text, _ := readInput(args)
	to := mustParseFormat("to", generateTo, generateOutput)
	opts := generateFlags.mustOptions(cmd, nil)

	parsed, err := convert.Parse(canonicalInput(text), format.CSLJSON)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	printWarnings(os.Stderr, parsed.Warnings)
	if len(parsed.Entries) == 0 && parsed.HasErrors() {
		exitWithError(ExitDataError, "input is not valid canonical JSON")
	}

	out, err := convert.Generate(parsed.Entries, to, opts)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := fileio.Write(generateOutput, out, os.Stdout); err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}
	printWarnings(os.Stderr, convert.GenerationWarnings(parsed.Entries, to))
	return nil
}

// canonicalInput accepts either canonical JSON or the output of the parse
// command, whose entries it unwraps.
func canonicalInput(text string) string {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return text
	}
	var wrapped struct {
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil || len(wrapped.Entries) == 0 {
		return text
	}
	return string(wrapped.Entries)
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := convert.Formats()
		if humanOutput {
			for _, info := range infos {
				fmt.Printf("%-10s parse=%t generate=%t %v\n", info.Name, info.Parse, info.Generate, info.Extensions)
			}
			return nil
		}
		return outputJSON(infos)
	},
}
