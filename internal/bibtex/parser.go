// Package bibtex parses and generates BibTeX and BibLaTeX.
package bibtex

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/latex"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Parser parses BibTeX-family documents. Dialect is format.BibTeX or
// format.BibLaTeX; it only changes the provenance recorded on entries.
type Parser struct {
	Dialect format.Format
}

// NewParser returns a parser for the given dialect.
func NewParser(dialect format.Format) Parser {
	return Parser{Dialect: dialect}
}

// monthMacros are predefined by every BibTeX style.
var monthMacros = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

var (
	commentLineRe = regexp.MustCompile(`(?m)^\s*%.*$`)
	pageDashRe    = regexp.MustCompile(`\s*(--+|–|—)\s*`)
)

// Parse parses every entry in text. A malformed entry is dropped with a
// parse-error warning; the rest of the document is still parsed.
func (p Parser) Parse(text string) format.ParseResult {
	dialect := p.Dialect
	if dialect == "" {
		dialect = format.BibTeX
	}

	blocks := scanBlocks(text)
	if len(blocks) == 0 {
		if strings.TrimSpace(commentLineRe.ReplaceAllString(text, "")) == "" {
			return format.NewCollector().Result()
		}
		return format.NoRecords(dialect)
	}

	c := format.NewCollector()
	macros := make(map[string]string)

	for _, b := range blocks {
		switch b.kind {
		case "comment", "preamble":
			continue
		case "string":
			if w, ok := defineMacros(b, macros); !ok {
				c.Warn(w)
			}
			continue
		}

		record := c.Total() + 1
		if b.err != nil {
			c.Fail(record, "", fmt.Sprintf("line %d: %v", b.line, b.err))
			continue
		}

		raw, err := parseEntryBody(b.body)
		if err != nil {
			c.Fail(record, raw.key, fmt.Sprintf("line %d: %v", b.line, err))
			continue
		}

		e, warnings := buildEntry(b.rawKind, raw, macros, dialect, record)
		c.Add(e, warnings)
	}

	return c.Result()
}

func defineMacros(b block, macros map[string]string) (format.Warning, bool) {
	if b.err != nil {
		return stringWarning(b, b.err), false
	}
	fields, err := parseAssignments(&cursor{s: b.body})
	if err != nil {
		return stringWarning(b, err), false
	}
	for _, f := range fields {
		value, _ := resolve(f.parts, macros)
		macros[strings.ToLower(f.name)] = value
	}
	return format.Warning{}, true
}

func stringWarning(b block, err error) format.Warning {
	return format.Warning{
		Severity: format.SeverityWarning,
		Type:     format.WarnParseError,
		Message:  fmt.Sprintf("line %d: ignoring @string: %v", b.line, err),
	}
}

// resolve concatenates value parts, substituting macros. It returns the
// names of macros that were not defined; those keep their own name.
func resolve(parts []part, macros map[string]string) (string, []string) {
	var (
		sb        strings.Builder
		undefined []string
	)
	for _, pt := range parts {
		if !pt.macro {
			sb.WriteString(pt.text)
			continue
		}
		name := strings.ToLower(pt.text)
		if v, ok := macros[name]; ok {
			sb.WriteString(v)
			continue
		}
		if !monthMacros[name] {
			undefined = append(undefined, pt.text)
		}
		sb.WriteString(pt.text)
	}
	return sb.String(), undefined
}

// buildEntry maps a parsed body onto a canonical entry.
func buildEntry(kind string, raw body, macros map[string]string, dialect format.Format, record int) (reference.Entry, []format.Warning) {
	var warnings []format.Warning
	warn := func(typ, field, msg string) {
		warnings = append(warnings, format.Warning{
			Severity: format.SeverityWarning,
			Type:     typ,
			Message:  msg,
			EntryID:  raw.key,
			Record:   record,
			Field:    field,
		})
	}

	e := reference.Entry{
		ID:     raw.key,
		Fields: make(map[string]string),
		FormatMetadata: &reference.FormatMetadata{
			Source:       string(dialect),
			OriginalType: strings.ToLower(kind),
		},
	}
	if e.ID == "" {
		e.ID = format.FallbackID(record)
		warn(format.WarnMissingID, "", fmt.Sprintf("entry has no citation key; using %s", e.ID))
	}

	typ, known := mapping.NormalizeType(kind, dialect)
	e.Type = typ
	if !known {
		warnings = append(warnings, format.Warning{
			Severity: format.SeverityInfo,
			Type:     format.WarnUnknownType,
			Message:  fmt.Sprintf("unknown entry type @%s; using %s", kind, typ),
			EntryID:  e.ID,
			Record:   record,
		})
	}

	var year, month, day, date string
	custom := make(map[string]string)

	for _, f := range raw.fields {
		name := strings.ToLower(f.name)
		value, undefined := resolve(f.parts, macros)
		for _, u := range undefined {
			warn(format.WarnUnknownMacro, name, fmt.Sprintf("undefined macro %q in field %s", u, name))
		}

		switch name {
		case "year":
			year = cleanText(value)
			continue
		case "month":
			month = cleanText(value)
			continue
		case "day":
			day = cleanText(value)
			continue
		case "date":
			date = cleanText(value)
			continue
		}

		canonical, ok := mapping.CanonicalField(name, dialect, kind)
		if !ok {
			if _, dup := custom[name]; !dup {
				custom[name] = value
			}
			continue
		}
		row, _ := mapping.Field(canonical)

		switch row.Transform {
		case mapping.TransformName:
			persons := parseNames(value)
			switch canonical {
			case reference.FieldAuthor:
				e.Author = persons
			case reference.FieldEditor:
				e.Editor = persons
			case reference.FieldTranslator:
				e.Translator = persons
			}
		case mapping.TransformDate:
			e.Accessed = dates.Parse(cleanText(value))
		case mapping.TransformPageRange:
			setOnce(e.Fields, canonical, normalizePages(value))
		default:
			if row.Verbatim {
				setOnce(e.Fields, canonical, strings.TrimSpace(value))
			} else {
				setOnce(e.Fields, canonical, cleanText(value))
			}
		}
	}

	if date != "" {
		e.Issued = dates.Parse(date)
	} else {
		e.Issued = dates.ParseBibTeX(year, month, day)
	}

	if len(custom) > 0 {
		e.FormatMetadata.CustomFields = custom
	}
	if len(e.Fields) == 0 {
		e.Fields = nil
	}
	return e, warnings
}

func setOnce(fields map[string]string, name, value string) {
	if value == "" {
		return
	}
	if _, ok := fields[name]; !ok {
		fields[name] = value
	}
}

// parseNames decodes a BibTeX name list and splits it on " and ".
func parseNames(value string) []reference.Person {
	decoded := strings.ReplaceAll(latex.Decode(protectEscapedBraces(value)), "~", " ")
	decoded = strings.Join(strings.Fields(decoded), " ")
	persons := names.ParseList(decoded, " and ")
	for i, p := range persons {
		persons[i] = reference.Person{
			Family:              stripBraces(p.Family),
			Given:               stripBraces(p.Given),
			Literal:             stripBraces(p.Literal),
			NonDroppingParticle: stripBraces(p.NonDroppingParticle),
			DroppingParticle:    stripBraces(p.DroppingParticle),
			Suffix:              stripBraces(p.Suffix),
		}
	}
	return persons
}

func normalizePages(value string) string {
	s := strings.TrimSpace(pageDashRe.ReplaceAllString(value, "-"))
	return cleanText(s)
}

// Placeholders keep \{ and \} out of brace stripping.
const (
	openPlaceholder  = "\uE000"
	closePlaceholder = "\uE001"
)

var escapedBraces = strings.NewReplacer(`\{`, openPlaceholder, `\}`, closePlaceholder)

var restoreBraces = strings.NewReplacer(openPlaceholder, "{", closePlaceholder, "}")

func protectEscapedBraces(s string) string {
	return escapedBraces.Replace(s)
}

// formatting commands whose argument is kept as plain text.
var wrapperRe = regexp.MustCompile(`\\(?:textbf|textit|textsl|textsc|texttt|textrm|textsf|textup|textnormal|emph|mbox|text|url|mathrm|mathit|mathbf)\s*\{([^{}]*)\}`)

// cleanText turns a BibTeX field value into plain Unicode text: escapes are
// decoded, formatting wrappers unwrapped, grouping braces removed and
// whitespace collapsed. A non-breaking ~ becomes a space.
func cleanText(value string) string {
	s := latex.Decode(protectEscapedBraces(value))
	for {
		next := wrapperRe.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	s = stripBraces(s)
	s = strings.ReplaceAll(s, "~", " ")
	return strings.Join(strings.Fields(s), " ")
}

// stripBraces removes grouping braces. Braces that delimit the argument of
// an unknown control word (\foo{...}) are kept. Escaped-brace placeholders
// are restored to literal braces.
func stripBraces(s string) string {
	if !strings.ContainsAny(s, "{}"+openPlaceholder+closePlaceholder) {
		return s
	}

	var (
		sb    strings.Builder
		stack []bool // whether each open group is kept
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			keep := precededByControlWord(s, i)
			stack = append(stack, keep)
			if keep {
				sb.WriteByte('{')
			}
		case '}':
			if n := len(stack); n > 0 {
				if stack[n-1] {
					sb.WriteByte('}')
				}
				stack = stack[:n-1]
			}
		default:
			sb.WriteByte(s[i])
		}
	}
	return restoreBraces.Replace(sb.String())
}

func precededByControlWord(s string, i int) bool {
	j := i
	for j > 0 && (s[j-1] == ' ') {
		j--
	}
	k := j
	for k > 0 && ((s[k-1] >= 'a' && s[k-1] <= 'z') || (s[k-1] >= 'A' && s[k-1] <= 'Z')) {
		k--
	}
	return k < j && k > 0 && s[k-1] == '\\'
}
