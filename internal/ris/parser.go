// Package ris parses and generates RIS tagged citation files.
package ris

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Parser parses RIS documents.
type Parser struct{}

// NewParser returns a RIS parser.
func NewParser() Parser {
	return Parser{}
}

// tagRe matches "XX  - value". Exporters disagree on the spacing around the
// dash, so one or two spaces are accepted.
var tagRe = regexp.MustCompile(`^([A-Z][A-Z0-9])\s{1,2}-(?:\s(.*))?$`)

type tagValue struct {
	tag   string
	value string
}

// record is the raw content of one TY..ER block.
type record struct {
	line int
	tags []tagValue
}

func (r *record) typ() string {
	for _, tv := range r.tags {
		if tv.tag == "TY" {
			return tv.value
		}
	}
	return ""
}

// Parse parses every TY..ER record in text. A record interrupted by a new
// TY line or by the end of input is dropped with a parse-error warning.
func (p Parser) Parse(text string) format.ParseResult {
	c := format.NewCollector()

	var (
		open  *record
		found bool
	)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for n, raw := range lines {
		ln := strings.TrimRight(strings.TrimPrefix(raw, "\ufeff"), " \t\r")
		m := tagRe.FindStringSubmatch(ln)

		if m == nil {
			if open != nil && strings.TrimSpace(ln) != "" && len(open.tags) > 0 {
				last := &open.tags[len(open.tags)-1]
				last.value = strings.TrimSpace(last.value + " " + strings.TrimSpace(ln))
			}
			continue
		}

		tag, value := m[1], strings.TrimSpace(m[2])
		switch tag {
		case "TY":
			found = true
			if open != nil {
				c.Fail(c.Total()+1, open.id(), fmt.Sprintf("line %d: record not closed by ER before next TY", open.line))
			}
			open = &record{line: n + 1, tags: []tagValue{{tag: tag, value: value}}}
		case "ER":
			if open == nil {
				continue
			}
			e, warnings := buildEntry(open, c.Total()+1)
			c.Add(e, warnings)
			open = nil
		default:
			if open != nil {
				open.tags = append(open.tags, tagValue{tag: tag, value: value})
			}
		}
	}

	if open != nil {
		c.Fail(c.Total()+1, open.id(), fmt.Sprintf("line %d: record not closed by ER", open.line))
	}

	if !found && strings.TrimSpace(text) != "" {
		return format.NoRecords(format.RIS)
	}
	return c.Result()
}

func (r *record) id() string {
	for _, tv := range r.tags {
		if tv.tag == "ID" {
			return tv.value
		}
	}
	return ""
}

// buildEntry maps a closed record onto a canonical entry.
func buildEntry(r *record, n int) (reference.Entry, []format.Warning) {
	var warnings []format.Warning

	risType := strings.ToUpper(r.typ())
	e := reference.Entry{
		ID:     r.id(),
		Fields: make(map[string]string),
		FormatMetadata: &reference.FormatMetadata{
			Source:       string(format.RIS),
			OriginalType: risType,
		},
	}
	if e.ID == "" {
		e.ID = format.FallbackID(n)
	}

	typ, known := mapping.NormalizeType(risType, format.RIS)
	e.Type = typ
	if !known {
		warnings = append(warnings, format.Warning{
			Severity: format.SeverityInfo,
			Type:     format.WarnUnknownType,
			Message:  fmt.Sprintf("unknown RIS type %q; using %s", risType, typ),
			EntryID:  e.ID,
			Record:   n,
		})
	}

	var (
		startPage, endPage string
		issuedDA, issuedPY string
		keywords, notes    []string
		custom             = make(map[string]string)
	)

	for _, tv := range r.tags {
		if tv.value == "" {
			continue
		}
		switch tv.tag {
		case "TY", "ID":
			continue
		case "SP":
			startPage = firstNonEmpty(startPage, tv.value)
			continue
		case "EP":
			endPage = firstNonEmpty(endPage, tv.value)
			continue
		case "DA":
			issuedDA = firstNonEmpty(issuedDA, tv.value)
			continue
		case "PY", "Y1":
			issuedPY = firstNonEmpty(issuedPY, tv.value)
			continue
		case "KW":
			keywords = append(keywords, tv.value)
			continue
		case "N1":
			notes = append(notes, tv.value)
			continue
		}

		canonical, ok := mapping.CanonicalField(tv.tag, format.RIS, risType)
		if !ok {
			if prev, dup := custom[tv.tag]; dup {
				custom[tv.tag] = prev + "\n" + tv.value
			} else {
				custom[tv.tag] = tv.value
			}
			continue
		}

		row, _ := mapping.Field(canonical)
		switch row.Transform {
		case mapping.TransformName:
			p := names.Parse(tv.value)
			if p.IsZero() {
				continue
			}
			switch canonical {
			case reference.FieldAuthor:
				e.Author = append(e.Author, p)
			case reference.FieldEditor:
				e.Editor = append(e.Editor, p)
			case reference.FieldTranslator:
				e.Translator = append(e.Translator, p)
			}
		case mapping.TransformDate:
			if e.Accessed == nil {
				e.Accessed = dates.ParseRIS(tv.value)
			}
		default:
			if _, exists := e.Fields[canonical]; !exists {
				e.Fields[canonical] = tv.value
			}
		}
	}

	switch {
	case issuedDA != "":
		e.Issued = dates.ParseRIS(issuedDA)
	case issuedPY != "":
		e.Issued = dates.ParseRIS(issuedPY)
	}

	if page := pageRange(startPage, endPage); page != "" {
		e.Fields[reference.FieldPage] = page
	}
	if len(keywords) > 0 {
		e.Fields[reference.FieldKeyword] = strings.Join(keywords, ", ")
	}
	if len(notes) > 0 {
		e.Fields[reference.FieldNote] = strings.Join(notes, "\n")
	}

	if len(custom) > 0 {
		e.FormatMetadata.CustomFields = custom
	}
	if len(e.Fields) == 0 {
		e.Fields = nil
	}
	return e, warnings
}

func pageRange(start, end string) string {
	switch {
	case start == "":
		return end
	case end == "" || end == start:
		return start
	}
	return start + "-" + end
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
