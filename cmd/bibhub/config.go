package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set library configuration values",
	Long: `Get or set library configuration values.

Usage:
  bibhub config                      # Show all config
  bibhub config export-format        # Get specific value
  bibhub config export-format ris    # Set value
  bibhub config indent 4             # Indent fields with four spaces

Keys:
  export-format  Default target for export (bibtex, biblatex, ris, endnote, csl-json)
  sort           Sort entries by id on output (true, false)
  indent         Field indentation: number of spaces, or "tab"
  line-ending    Line ending for generated text (lf, crlf)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for showing all config.
type ConfigResponse struct {
	ExportFormat string `json:"export_format"`
	Sort         bool   `json:"sort"`
	Indent       string `json:"indent"`
	LineEnding   string `json:"line_ending"`
}

// UpdateResponse is the response for setting a config value.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindLibrary()
	cfg := mustLoadConfig(root)

	if len(args) == 0 {
		resp := configResponse(cfg)
		if humanOutput {
			fmt.Printf("export-format: %s\n", resp.ExportFormat)
			fmt.Printf("sort:          %t\n", resp.Sort)
			fmt.Printf("indent:        %q\n", resp.Indent)
			fmt.Printf("line-ending:   %s\n", resp.LineEnding)
		} else {
			outputJSON(resp)
		}
		return nil
	}

	key := normalizeKey(args[0])

	if len(args) == 1 {
		value, err := getConfigValue(cfg, key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	return nil
}

func configResponse(cfg *config.Config) ConfigResponse {
	opts := cfg.Options(mustLoadGlobalConfig().Options())
	le := "lf"
	if opts.LineEnding == "\r\n" {
		le = "crlf"
	}
	exportFormat := cfg.ExportFormat
	if exportFormat == "" {
		exportFormat = "csl-json"
	}
	return ConfigResponse{
		ExportFormat: exportFormat,
		Sort:         opts.Sort,
		Indent:       opts.Indent,
		LineEnding:   le,
	}
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "export-format":
		return cfg.ExportFormat, nil
	case "sort":
		if cfg.Sort == nil {
			return "", nil
		}
		return strconv.FormatBool(*cfg.Sort), nil
	case "indent":
		return cfg.Indent, nil
	case "line-ending":
		return cfg.LineEnding, nil
	}
	return "", fmt.Errorf("unknown configuration key: %s", key)
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "export-format":
		if err := config.ValidateExportFormat(value); err != nil {
			return err
		}
		cfg.ExportFormat = value
	case "sort":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid sort: %s (valid: true, false)", value)
		}
		cfg.Sort = &b
	case "indent":
		indent, err := parseIndent(value)
		if err != nil {
			return err
		}
		cfg.Indent = indent
	case "line-ending":
		if err := config.ValidateLineEnding(value); err != nil {
			return err
		}
		cfg.LineEnding = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// parseIndent accepts a number of spaces or "tab".
func parseIndent(value string) (string, error) {
	if strings.EqualFold(value, "tab") {
		return "\t", nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 16 {
		return "", fmt.Errorf("invalid indent: %s (valid: 1-16 or tab)", value)
	}
	return strings.Repeat(" ", n), nil
}

// normalizeKey converts key formats (line_ending, Line-Ending) to line-ending.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
