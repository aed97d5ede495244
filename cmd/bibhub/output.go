package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/fileio"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search results
	SummaryTitleLen    = 70 // Title truncation in entry summaries
	MaxSummaryAuthors  = 3  // Authors shown before "et al."
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		outputError(code, "%s", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// printWarnings writes warnings to w, one per line.
func printWarnings(w io.Writer, warnings []format.Warning) {
	for _, warn := range warnings {
		fmt.Fprintln(w, formatWarning(warn))
	}
}

// formatWarning renders a warning as "severity: [record N] [id] message".
func formatWarning(w format.Warning) string {
	var b strings.Builder
	b.WriteString(string(w.Severity))
	b.WriteString(":")
	if w.Record > 0 {
		fmt.Fprintf(&b, " record %d", w.Record)
	}
	if w.EntryID != "" {
		fmt.Fprintf(&b, " [%s]", w.EntryID)
	}
	if w.Field != "" {
		fmt.Fprintf(&b, " %s:", w.Field)
	}
	b.WriteString(" ")
	b.WriteString(w.Message)
	return b.String()
}

// countErrors returns the number of error-severity warnings.
func countErrors(warnings []format.Warning) int {
	n := 0
	for _, w := range warnings {
		if w.Severity == format.SeverityError {
			n++
		}
	}
	return n
}

// resolveFormat parses a format flag, or guesses from the file extension
// when the flag is empty.
func resolveFormat(value, path string) (format.Format, error) {
	if value != "" {
		return format.ParseFormat(value)
	}
	if path != "" && path != fileio.Stdio {
		if f, ok := fileio.DetectFormat(path); ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("cannot detect format of %q; pass it explicitly", path)
}

// readInput reads the file named by args[0], or stdin when args is empty.
func readInput(args []string) (string, string) {
	path := fileio.Stdio
	if len(args) > 0 {
		path = args[0]
	}
	text, err := fileio.Read(path, os.Stdin)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return text, path
}

// outputFlags are the generator settings shared by commands that write a
// citation format.
type outputFlags struct {
	sort       bool
	indent     int
	lineEnding string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.sort, "sort", false, "Sort entries by id")
	cmd.Flags().IntVar(&f.indent, "indent", 2, "Spaces of indentation for fields")
	cmd.Flags().StringVar(&f.lineEnding, "line-ending", "lf", "Line ending: lf or crlf")
}

// options layers explicitly set flags over base.
func (f *outputFlags) options(cmd *cobra.Command, base format.Options) (format.Options, error) {
	opts := base
	if cmd.Flags().Changed("sort") {
		opts.Sort = f.sort
	}
	if cmd.Flags().Changed("indent") {
		if f.indent < 0 || f.indent > 16 {
			return opts, fmt.Errorf("invalid --indent: %d", f.indent)
		}
		opts.Indent = strings.Repeat(" ", f.indent)
	}
	if cmd.Flags().Changed("line-ending") {
		le, ok := config.ValidLineEndings[f.lineEnding]
		if !ok {
			return opts, fmt.Errorf("invalid --line-ending: %s (valid: lf, crlf)", f.lineEnding)
		}
		opts.LineEnding = le
	}
	return opts, nil
}

// mustOptions resolves generator options: global config, then library
// config when lib is non-nil, then flags.
func (f *outputFlags) mustOptions(cmd *cobra.Command, lib *config.Config) format.Options {
	base := mustLoadGlobalConfig().Options()
	base = lib.Options(base)
	opts, err := f.options(cmd, base)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return opts
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthorsShort formats up to MaxSummaryAuthors family names.
func formatAuthorsShort(persons []reference.Person) string {
	var out []string
	for i, p := range persons {
		if i >= MaxSummaryAuthors {
			out = append(out, "et al.")
			break
		}
		if p.IsLiteral() {
			out = append(out, p.Literal)
			continue
		}
		out = append(out, names.Serialize(reference.Person{
			Family:              p.Family,
			NonDroppingParticle: p.NonDroppingParticle,
		}, names.StyleNatural))
	}
	return strings.Join(out, ", ")
}

// printEntrySummary prints a numbered one-entry summary.
func printEntrySummary(w io.Writer, num int, e reference.Entry) {
	fmt.Fprintf(w, "[%d] %s (%s)\n", num, e.ID, e.Type)
	if title := e.Get(reference.FieldTitle); title != "" {
		fmt.Fprintf(w, "    %s\n", truncateString(title, SummaryTitleLen))
	}
	if len(e.Author) > 0 {
		fmt.Fprintf(w, "    %s\n", formatAuthorsShort(e.Author))
	}

	venue := e.Get(reference.FieldContainerTitle)
	year, _, _ := e.Issued.Start()
	switch {
	case venue != "" && year != 0:
		fmt.Fprintf(w, "    %s (%d)\n", venue, year)
	case venue != "":
		fmt.Fprintf(w, "    %s\n", venue)
	case year != 0:
		fmt.Fprintf(w, "    (%d)\n", year)
	}
	fmt.Fprintln(w)
}
