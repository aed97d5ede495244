// Package convert wires the format parsers and generators together.
//
// Every conversion goes through the canonical entry: the source text is
// parsed into entries, and the entries are generated in the target format.
// Record-level problems surface as warnings; the only error this package
// returns is format.ErrUnknownFormat.
package convert

import (
	"fmt"

	"github.com/matsen/bibhub/internal/bibtex"
	"github.com/matsen/bibhub/internal/csljson"
	"github.com/matsen/bibhub/internal/endnote"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/reference"
	"github.com/matsen/bibhub/internal/ris"
)

type codec struct {
	parser    format.Parser
	generator format.Generator
}

// codecs is the closed dispatch table. Adding a format means adding a row.
var codecs = map[format.Format]codec{
	format.BibTeX:   {bibtex.NewParser(format.BibTeX), bibtex.NewGenerator(format.BibTeX)},
	format.BibLaTeX: {bibtex.NewParser(format.BibLaTeX), bibtex.NewGenerator(format.BibLaTeX)},
	format.RIS:      {ris.NewParser(), ris.NewGenerator()},
	format.EndNote:  {endnote.NewParser(), endnote.NewGenerator()},
	format.CSLJSON:  {csljson.NewParser(), csljson.NewGenerator()},
}

// Result is the outcome of one conversion.
type Result struct {
	Parse    format.ParseResult `json:"parse"`
	Output   string             `json:"output"`
	Warnings []format.Warning   `json:"warnings"` // parse warnings followed by generation warnings
}

// FormatInfo describes one supported format.
type FormatInfo struct {
	Name       format.Format `json:"name"`
	Extensions []string      `json:"extensions"`
	Parse      bool          `json:"parse"`
	Generate   bool          `json:"generate"`
}

var extensions = map[format.Format][]string{
	format.BibTeX:   {".bib"},
	format.BibLaTeX: {".bib"},
	format.RIS:      {".ris"},
	format.EndNote:  {".xml", ".enl"},
	format.CSLJSON:  {".json"},
}

// Formats lists the supported formats in a stable order.
func Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(codecs))
	for _, f := range format.All() {
		c, ok := codecs[f]
		if !ok {
			continue
		}
		out = append(out, FormatInfo{
			Name:       f,
			Extensions: extensions[f],
			Parse:      c.parser != nil,
			Generate:   c.generator != nil,
		})
	}
	return out
}

func lookup(f format.Format) (codec, error) {
	c, ok := codecs[f]
	if !ok {
		return codec{}, fmt.Errorf("%w: %q", format.ErrUnknownFormat, string(f))
	}
	return c, nil
}

// Parse parses text written in format from.
func Parse(text string, from format.Format) (format.ParseResult, error) {
	c, err := lookup(from)
	if err != nil {
		return format.ParseResult{}, err
	}
	return c.parser.Parse(text), nil
}

// Generate writes entries in format to.
func Generate(entries []reference.Entry, to format.Format, opts format.Options) (string, error) {
	c, err := lookup(to)
	if err != nil {
		return "", err
	}
	return c.generator.Generate(entries, opts), nil
}

// Convert converts text from one format to another with default options.
func Convert(text string, from, to format.Format) (Result, error) {
	return ConvertWithOptions(text, from, to, format.DefaultOptions())
}

// ConvertWithOptions converts text from one format to another.
func ConvertWithOptions(text string, from, to format.Format, opts format.Options) (Result, error) {
	src, err := lookup(from)
	if err != nil {
		return Result{}, err
	}
	dst, err := lookup(to)
	if err != nil {
		return Result{}, err
	}

	parsed := src.parser.Parse(text)
	warnings := make([]format.Warning, 0, len(parsed.Warnings))
	warnings = append(warnings, parsed.Warnings...)
	warnings = append(warnings, GenerationWarnings(parsed.Entries, to)...)

	return Result{
		Parse:    parsed,
		Output:   dst.generator.Generate(parsed.Entries, opts),
		Warnings: warnings,
	}, nil
}

// Lossy reports, per entry, whether writing it in format to loses its
// entry type.
func Lossy(entries []reference.Entry, to format.Format) []bool {
	out := make([]bool, len(entries))
	for i, e := range entries {
		_, out[i] = mapping.DenormalizeType(e.Type, to)
	}
	return out
}

// GenerationWarnings describes what writing entries in format to loses:
// entry types that narrow, date ranges cut to their start and fields the
// format has no place for.
func GenerationWarnings(entries []reference.Entry, to format.Format) []format.Warning {
	var out []format.Warning
	warn := func(e reference.Entry, field, msg string) {
		out = append(out, format.Warning{
			Severity: format.SeverityWarning,
			Type:     format.WarnLossyConversion,
			Message:  msg,
			EntryID:  e.ID,
			Field:    field,
		})
	}

	for _, e := range entries {
		typ, lossy := mapping.DenormalizeType(e.Type, to)
		if lossy {
			warn(e, "", fmt.Sprintf("type %s has no exact %s equivalent; written as %s", e.Type, to, typ))
		}

		if e.Issued.IsRange() && (to == format.BibTeX || to == format.RIS) {
			warn(e, reference.FieldIssued, fmt.Sprintf("%s keeps only the start of a date range", to))
		}

		for _, name := range droppedFields(e, to, typ) {
			warn(e, name, fmt.Sprintf("%s has no field for %s; value dropped", to, name))
		}
	}
	return out
}

// writtenSpecially are fields the RIS and EndNote generators place outside
// the field table (split pages, one tag per keyword, the shared ISBN/ISSN
// slot, the URL group).
var writtenSpecially = map[string]bool{
	reference.FieldPage:    true,
	reference.FieldKeyword: true,
	reference.FieldNote:    true,
	reference.FieldURL:     true,
}

func droppedFields(e reference.Entry, to format.Format, typ string) []string {
	if to != format.RIS && to != format.EndNote {
		return nil
	}
	var out []string
	for _, name := range e.FieldNames() {
		if writtenSpecially[name] {
			continue
		}
		if name == reference.FieldISBN || name == reference.FieldISSN {
			if name != mapping.StandardNumberField(e.Type) && e.Has(mapping.StandardNumberField(e.Type)) {
				out = append(out, name)
			}
			continue
		}
		if mapping.FieldName(name, to, typ) == "" {
			out = append(out, name)
		}
	}
	return out
}
