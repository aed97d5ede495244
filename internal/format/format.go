// Package format defines the citation format identifiers and the contract
// shared by every parser and generator.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/bibhub/internal/reference"
)

// Format identifies a citation format.
type Format string

// Supported formats.
const (
	BibTeX   Format = "bibtex"
	BibLaTeX Format = "biblatex"
	RIS      Format = "ris"
	EndNote  Format = "endnote"
	CSLJSON  Format = "csl-json"
)

// ErrUnknownFormat is returned for identifiers outside the supported set.
var ErrUnknownFormat = errors.New("unknown format")

var aliases = map[string]Format{
	"bibtex":   BibTeX,
	"bib":      BibTeX,
	"biblatex": BibLaTeX,
	"ris":      RIS,
	"endnote":  EndNote,
	"enl":      EndNote,
	"xml":      EndNote,
	"csl-json": CSLJSON,
	"csl":      CSLJSON,
	"json":     CSLJSON,
}

// All returns every supported format in a stable order.
func All() []Format {
	return []Format{BibTeX, BibLaTeX, RIS, EndNote, CSLJSON}
}

// ParseFormat resolves a case-insensitive format name or common alias.
func ParseFormat(name string) (Format, error) {
	if f, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want one of bibtex, biblatex, ris, endnote, csl-json)", ErrUnknownFormat, name)
}

// FromExtension guesses a format from a file extension such as ".bib".
func FromExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "bib", "bibtex":
		return BibTeX, true
	case "ris":
		return RIS, true
	case "xml", "enl":
		return EndNote, true
	case "json":
		return CSLJSON, true
	}
	return "", false
}

func (f Format) String() string {
	return string(f)
}

// IsBibTeXFamily reports whether f shares BibTeX's lexical grammar.
func (f Format) IsBibTeXFamily() bool {
	return f == BibTeX || f == BibLaTeX
}

// Parser turns source text into canonical entries.
type Parser interface {
	Parse(text string) ParseResult
}

// Generator turns canonical entries into formatted text.
// Implementations never modify the entries they are given.
type Generator interface {
	Generate(entries []reference.Entry, opts Options) string
}

// Options control generator output.
type Options struct {
	Indent     string // Indentation for nested lines; default two spaces
	LineEnding string // Line terminator; default "\n"
	Sort       bool   // Stable sort entries by id before writing
}

// DefaultOptions returns the options generators use when none are given.
func DefaultOptions() Options {
	return Options{Indent: "  ", LineEnding: "\n"}
}

// Normalize fills unset options with their defaults.
func (o Options) Normalize() Options {
	if o.Indent == "" {
		o.Indent = "  "
	}
	if o.LineEnding == "" {
		o.LineEnding = "\n"
	}
	return o
}

// Order returns entries in output order: sorted by id when opts.Sort is
// set, else as given. The input slice is never reordered.
func Order(entries []reference.Entry, opts Options) []reference.Entry {
	if opts.Sort {
		return reference.SortByID(entries)
	}
	return entries
}

// FallbackID returns the synthesized id for the n-th record (1-based).
func FallbackID(n int) string {
	return fmt.Sprintf("entry%d", n)
}
