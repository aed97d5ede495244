package bibtex

import (
	"regexp"
	"sort"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/latex"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Generator writes BibTeX or BibLaTeX.
type Generator struct {
	Dialect format.Format
}

// NewGenerator returns a generator for the given dialect.
func NewGenerator(dialect format.Format) Generator {
	return Generator{Dialect: dialect}
}

// fieldOrder is the conventional order of fields in an entry. Fields not
// listed here follow in sorted order.
var fieldOrder = []string{
	reference.FieldAuthor,
	reference.FieldEditor,
	reference.FieldTranslator,
	reference.FieldTitle,
	reference.FieldTitleShort,
	reference.FieldContainerTitle,
	reference.FieldContainerTitleShort,
	reference.FieldIssued,
	reference.FieldVolume,
	reference.FieldIssue,
	reference.FieldChapterNumber,
	reference.FieldPage,
	reference.FieldPublisher,
	reference.FieldPublisherPlace,
	reference.FieldEdition,
	reference.FieldCollectionTitle,
	reference.FieldGenre,
	reference.FieldDOI,
	reference.FieldISBN,
	reference.FieldISSN,
	reference.FieldURL,
	reference.FieldAccessed,
	reference.FieldAbstract,
	reference.FieldKeyword,
	reference.FieldNote,
	reference.FieldLanguage,
}

// protectedFields get their acronyms braced against case changes.
var protectedFields = map[string]bool{
	reference.FieldTitle:           true,
	reference.FieldTitleShort:      true,
	reference.FieldCollectionTitle: true,
}

var (
	pageRangeRe = regexp.MustCompile(`^\s*([^\s\-–—]+)\s*[-–—]+\s*([^\s\-–—]+)\s*$`)
	badKeyChars = regexp.MustCompile(`[\s,{}()"#%~=\\']+`)
	textEscaper = strings.NewReplacer(`\`, `\textbackslash{}`, "{", `\{`, "}", `\}`)
)

type line struct {
	name  string
	value string
	bare  bool
}

// Generate writes entries as BibTeX (or BibLaTeX) records separated by a
// blank line.
func (g Generator) Generate(entries []reference.Entry, opts format.Options) string {
	opts = opts.Normalize()
	ordered := format.Order(entries, opts)
	if len(ordered) == 0 {
		return ""
	}

	out := make([]string, 0, len(ordered))
	for _, e := range ordered {
		out = append(out, g.entry(e, opts))
	}
	return strings.Join(out, opts.LineEnding+opts.LineEnding) + opts.LineEnding
}

func (g Generator) dialect() format.Format {
	if g.Dialect == "" {
		return format.BibTeX
	}
	return g.Dialect
}

func (g Generator) entry(e reference.Entry, opts format.Options) string {
	dialect := g.dialect()
	typ := g.EntryType(e)

	var lines []line
	used := make(map[string]bool)
	add := func(name, value string, bare bool) {
		if name == "" || value == "" || used[name] {
			return
		}
		used[name] = true
		lines = append(lines, line{name: name, value: value, bare: bare})
	}

	done := make(map[string]bool)
	for _, canonical := range fieldOrder {
		switch canonical {
		case reference.FieldAuthor, reference.FieldEditor, reference.FieldTranslator:
			if persons := e.Names(canonical); len(persons) > 0 {
				add(mapping.FieldName(canonical, dialect, typ), encodeNames(persons), false)
			}
		case reference.FieldIssued:
			for _, l := range g.dateLines(e.Issued) {
				add(l.name, l.value, l.bare)
			}
		case reference.FieldAccessed:
			if e.Accessed != nil {
				add(mapping.FieldName(canonical, dialect, typ), dates.Serialize(e.Accessed), false)
			}
		default:
			name := mapping.FieldName(canonical, dialect, typ)
			if name == "" || !e.Has(canonical) {
				continue
			}
			done[canonical] = true
			add(name, encodeField(canonical, e.Get(canonical)), false)
		}
	}

	for _, canonical := range e.FieldNames() {
		if done[canonical] {
			continue
		}
		name := mapping.FieldName(canonical, dialect, typ)
		if name == "" {
			name = strings.ToLower(canonical)
		}
		add(name, encodeField(canonical, e.Get(canonical)), false)
	}

	if format.Format(e.Source()).IsBibTeXFamily() {
		custom := e.CustomFields()
		keys := make([]string, 0, len(custom))
		for k := range custom {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, custom[k], false)
		}
	}

	var b strings.Builder
	b.WriteString("@" + typ + "{" + Key(e.ID) + ",")
	for i, l := range lines {
		b.WriteString(opts.LineEnding + opts.Indent + l.name + " = ")
		if l.bare {
			b.WriteString(l.value)
		} else {
			b.WriteString("{" + l.value + "}")
		}
		if i < len(lines)-1 {
			b.WriteByte(',')
		}
	}
	b.WriteString(opts.LineEnding + "}")
	return b.String()
}

// EntryType returns the entry type written for e. An entry parsed from
// the same dialect keeps its original spelling when that spelling still
// means the entry's canonical type.
func (g Generator) EntryType(e reference.Entry) string {
	dialect := g.dialect()
	if e.FormatMetadata != nil && format.Format(e.Source()) == dialect && e.FormatMetadata.OriginalType != "" {
		if t, known := mapping.NormalizeType(e.FormatMetadata.OriginalType, dialect); known && t == e.Type {
			return e.FormatMetadata.OriginalType
		}
	}
	typ, _ := mapping.DenormalizeType(e.Type, dialect)
	return typ
}

func (g Generator) dateLines(d *reference.Date) []line {
	if d == nil {
		return nil
	}
	if g.dialect() == format.BibLaTeX && d.IsRange() {
		return []line{{name: "date", value: dates.Serialize(d)}}
	}

	bd := dates.SerializeBibTeX(d)
	lines := []line{{name: "year", value: bd.Year}}
	if bd.Month != "" {
		lines = append(lines, line{name: "month", value: bd.Month, bare: true})
	}
	if bd.Day != "" {
		lines = append(lines, line{name: "day", value: bd.Day})
	}
	return lines
}

// encodeField converts a canonical field value into BibTeX source text.
func encodeField(canonical, value string) string {
	if mapping.IsVerbatim(canonical) {
		return value
	}
	if canonical == reference.FieldPage {
		value = pageRangeRe.ReplaceAllString(value, "$1--$2")
	}
	return encodeText(value, protectedFields[canonical])
}

func encodeText(s string, protect bool) string {
	s = textEscaper.Replace(s)
	if protect {
		s = latex.Protect(s)
	}
	return latex.Encode(s)
}

func encodeNames(persons []reference.Person) string {
	encoded := make([]reference.Person, len(persons))
	for i, p := range persons {
		encoded[i] = reference.Person{
			Family:              encodeText(p.Family, false),
			Given:               encodeText(p.Given, false),
			Literal:             encodeText(p.Literal, false),
			NonDroppingParticle: encodeText(p.NonDroppingParticle, false),
			DroppingParticle:    encodeText(p.DroppingParticle, false),
			Suffix:              encodeText(p.Suffix, false),
		}
	}
	return names.SerializeList(encoded, names.StyleBibTeX, " and ")
}

// Key returns id with characters that are illegal in a citation key
// replaced by underscores.
func Key(id string) string {
	k := badKeyChars.ReplaceAllString(strings.TrimSpace(id), "_")
	if k == "" {
		return "entry"
	}
	return k
}
