// Package endnote parses and generates EndNote XML exports.
package endnote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Parser parses EndNote XML documents.
type Parser struct{}

// NewParser returns an EndNote XML parser.
func NewParser() Parser {
	return Parser{}
}

// scalarElements are read in order; the first element that maps to a
// canonical field wins, so secondary-title takes precedence over the
// periodical's full-title.
var scalarElements = []string{
	"title",
	"secondary-title",
	"tertiary-title",
	"short-title",
	"alt-title",
	"full-title",
	"pages",
	"volume",
	"number",
	"section",
	"edition",
	"publisher",
	"pub-location",
	"isbn",
	"electronic-resource-num",
	"abstract",
	"notes",
	"language",
	"work-type",
}

// blockElements keep their line breaks.
var blockElements = map[string]bool{"abstract": true, "notes": true}

// preservedElements have no canonical home but are kept in customFields.
var preservedElements = []string{
	"label", "accession-num", "call-num", "research-notes",
	"custom1", "custom2", "custom3", "custom4", "custom5", "custom6", "custom7",
}

var idWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Parse parses every <record> in text. A record that is not closed before
// the next one starts, or before the end of input, is dropped with a
// parse-error warning.
func (p Parser) Parse(text string) format.ParseResult {
	blocks := scanRecords(text)
	if len(blocks) == 0 {
		if strings.TrimSpace(text) == "" {
			return format.NewCollector().Result()
		}
		return format.NoRecords(format.EndNote)
	}

	c := format.NewCollector()
	for _, b := range blocks {
		n := c.Total() + 1
		if b.err != nil {
			c.Fail(n, "", fmt.Sprintf("record %d: %v", n, b.err))
			continue
		}
		e, warnings := buildEntry(b.body, n)
		c.Add(e, warnings)
	}
	return c.Result()
}

func buildEntry(body string, n int) (reference.Entry, []format.Warning) {
	var warnings []format.Warning

	typeName := refTypeName(body)
	if typeName == "" {
		if raw, ok := element(body, "ref-type"); ok {
			if code, err := strconv.Atoi(text(raw)); err == nil {
				typeName, _ = mapping.EndNoteTypeName(code)
			}
		}
	}

	e := reference.Entry{
		Fields: make(map[string]string),
		FormatMetadata: &reference.FormatMetadata{
			Source:       string(format.EndNote),
			OriginalType: typeName,
		},
	}
	typ, known := mapping.NormalizeType(typeName, format.EndNote)
	e.Type = typ

	if contributors, ok := element(body, "contributors"); ok {
		for _, role := range []string{reference.FieldAuthor, reference.FieldEditor, reference.FieldTranslator} {
			group := mapping.FieldName(role, format.EndNote, typeName)
			var persons []reference.Person
			for _, g := range elements(contributors, group) {
				for _, a := range elements(g, "author") {
					if p := names.Parse(text(a)); !p.IsZero() {
						persons = append(persons, p)
					}
				}
			}
			switch role {
			case reference.FieldAuthor:
				e.Author = persons
			case reference.FieldEditor:
				e.Editor = persons
			case reference.FieldTranslator:
				e.Translator = persons
			}
		}
	}

	for _, name := range scalarElements {
		raw, ok := element(body, name)
		if !ok {
			continue
		}
		value := text(raw)
		if blockElements[name] {
			value = blockText(raw)
		}
		canonical, ok := mapping.CanonicalField(name, format.EndNote, typeName)
		if !ok || value == "" {
			continue
		}
		if _, exists := e.Fields[canonical]; !exists {
			e.Fields[canonical] = value
		}
	}

	var keywords []string
	for _, k := range elements(body, "keyword") {
		if v := text(k); v != "" {
			keywords = append(keywords, v)
		}
	}
	if len(keywords) > 0 {
		e.Fields[reference.FieldKeyword] = strings.Join(keywords, ", ")
	}

	if related, ok := element(body, "related-urls"); ok {
		if u, ok := element(related, "url"); ok && text(u) != "" {
			e.Fields[reference.FieldURL] = text(u)
		}
	}

	var year, pubDate string
	if ds, ok := element(body, "dates"); ok {
		if y, ok := element(ds, "year"); ok {
			year = text(y)
		}
		if pd, ok := element(ds, "pub-dates"); ok {
			if d, ok := element(pd, "date"); ok {
				pubDate = text(d)
			}
		}
	}
	e.Issued = issuedDate(year, pubDate)

	if raw, ok := element(body, "access-date"); ok {
		e.Accessed = dates.Parse(text(raw))
	}

	custom := make(map[string]string)
	for _, name := range preservedElements {
		if raw, ok := element(body, name); ok {
			if v := blockText(raw); v != "" {
				custom[name] = v
			}
		}
	}
	if len(custom) > 0 {
		e.FormatMetadata.CustomFields = custom
	}

	e.ID = synthesizeID(e.Get(reference.FieldTitle), dates.Year(e.Issued), n)

	if !known {
		warnings = append(warnings, format.Warning{
			Severity: format.SeverityInfo,
			Type:     format.WarnUnknownType,
			Message:  fmt.Sprintf("unknown EndNote ref-type %q; using %s", typeName, typ),
			EntryID:  e.ID,
			Record:   n,
		})
	}

	if len(e.Fields) == 0 {
		e.Fields = nil
	}
	return e, warnings
}

// issuedDate combines <year> with an optional <pub-dates> date, which is
// often written without the year ("March 15").
func issuedDate(year, pubDate string) *reference.Date {
	if d := dates.Parse(pubDate); d != nil {
		if !d.IsRaw() || year == "" {
			return d
		}
		if withYear := dates.Parse(pubDate + " " + year); !withYear.IsRaw() {
			return withYear
		}
	}
	return dates.Parse(year)
}

// synthesizeID builds an id from the lowercased first word of the title and
// the year, falling back to entry<n> when either is missing.
func synthesizeID(title string, year, n int) string {
	words := strings.Fields(title)
	if len(words) == 0 || year == 0 {
		return format.FallbackID(n)
	}
	word := strings.ToLower(idWordRe.ReplaceAllString(words[0], ""))
	if word == "" {
		return format.FallbackID(n)
	}
	return word + strconv.Itoa(year)
}
