// Package csljson reads and writes the canonical JSON form: an array of
// CSL-JSON style entry objects.
package csljson

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/reference"
)

// Parser parses canonical JSON.
type Parser struct{}

// NewParser returns a canonical JSON parser.
func NewParser() Parser {
	return Parser{}
}

// Parse accepts an array of entry objects or a single object. Each element
// is decoded on its own, so one bad element only drops that record.
func (p Parser) Parse(text string) format.ParseResult {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return format.NewCollector().Result()
	}

	var elements []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return invalid(err)
		}
	case '{':
		elements = []json.RawMessage{trimmed}
	default:
		return format.NoRecords(format.CSLJSON)
	}

	c := format.NewCollector()
	for _, raw := range elements {
		n := c.Total() + 1

		var e reference.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			c.Fail(n, "", fmt.Sprintf("element %d: %v", n, err))
			continue
		}
		if err := e.Validate(); err != nil {
			c.Fail(n, e.ID, fmt.Sprintf("element %d: %v", n, err))
			continue
		}

		if e.FormatMetadata == nil {
			e.FormatMetadata = &reference.FormatMetadata{Source: string(format.CSLJSON)}
		}

		var warnings []format.Warning
		if !reference.IsType(e.Type) {
			typ, _ := mapping.NormalizeType(e.Type, format.CSLJSON)
			warnings = append(warnings, format.Warning{
				Severity: format.SeverityInfo,
				Type:     format.WarnUnknownType,
				Message:  fmt.Sprintf("unknown type %q; using %s", e.Type, typ),
				EntryID:  e.ID,
				Record:   n,
			})
			e.FormatMetadata.OriginalType = e.Type
			e.Type = typ
		}
		c.Add(e, warnings)
	}
	return c.Result()
}

func invalid(err error) format.ParseResult {
	c := format.NewCollector()
	c.Warn(format.Warning{
		Severity: format.SeverityError,
		Type:     format.WarnParseError,
		Message:  fmt.Sprintf("invalid JSON: %v", err),
	})
	return c.Result()
}

// Generator writes canonical JSON.
type Generator struct{}

// NewGenerator returns a canonical JSON generator.
func NewGenerator() Generator {
	return Generator{}
}

// Generate writes entries as an indented JSON array.
func (g Generator) Generate(entries []reference.Entry, opts format.Options) string {
	opts = opts.Normalize()
	ordered := format.Order(entries, opts)
	if ordered == nil {
		ordered = []reference.Entry{}
	}

	data, err := json.MarshalIndent(ordered, "", opts.Indent)
	if err != nil {
		// Entries hold only strings, ints and maps of strings.
		panic(fmt.Sprintf("csljson: %v", err))
	}
	out := string(data)
	if opts.LineEnding != "\n" {
		out = strings.ReplaceAll(out, "\n", opts.LineEnding)
	}
	return out + opts.LineEnding
}
