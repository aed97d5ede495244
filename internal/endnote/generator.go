package endnote

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Generator writes EndNote XML.
type Generator struct{}

// NewGenerator returns an EndNote XML generator.
func NewGenerator() Generator {
	return Generator{}
}

var titleFields = []string{
	reference.FieldTitle,
	reference.FieldContainerTitle,
	reference.FieldCollectionTitle,
	reference.FieldTitleShort,
	reference.FieldContainerTitleShort,
}

var flatFields = []string{
	reference.FieldPage,
	reference.FieldVolume,
	reference.FieldIssue,
	reference.FieldChapterNumber,
	reference.FieldEdition,
	reference.FieldPublisherPlace,
	reference.FieldPublisher,
}

var trailingFields = []string{
	reference.FieldDOI,
	reference.FieldAbstract,
	reference.FieldNote,
	reference.FieldLanguage,
	reference.FieldGenre,
}

// xmlWriter emits one element per line, indented by depth.
type xmlWriter struct {
	b    strings.Builder
	opts format.Options
}

func (w *xmlWriter) line(depth int, s string) {
	w.b.WriteString(strings.Repeat(w.opts.Indent, depth))
	w.b.WriteString(s)
	w.b.WriteString(w.opts.LineEnding)
}

func (w *xmlWriter) open(depth int, name string) {
	w.line(depth, "<"+name+">")
}

func (w *xmlWriter) close(depth int, name string) {
	w.line(depth, "</"+name+">")
}

func (w *xmlWriter) elem(depth int, name, value string) {
	if name == "" || value == "" {
		return
	}
	w.line(depth, "<"+name+">"+escaper.Replace(value)+"</"+name+">")
}

// Generate writes entries as a single EndNote XML document.
func (g Generator) Generate(entries []reference.Entry, opts format.Options) string {
	opts = opts.Normalize()
	ordered := format.Order(entries, opts)

	w := &xmlWriter{opts: opts}
	w.line(0, `<?xml version="1.0" encoding="UTF-8"?>`)
	w.open(0, "xml")
	w.open(1, "records")
	for i, e := range ordered {
		g.record(w, e, i+1)
	}
	w.close(1, "records")
	w.close(0, "xml")
	return w.b.String()
}

func (g Generator) record(w *xmlWriter, e reference.Entry, n int) {
	typeName, _ := mapping.DenormalizeType(e.Type, format.EndNote)
	if e.Source() == string(format.EndNote) && e.FormatMetadata.OriginalType != "" {
		if t, known := mapping.NormalizeType(e.FormatMetadata.OriginalType, format.EndNote); known && t == e.Type {
			typeName = e.FormatMetadata.OriginalType
		}
	}

	w.open(2, "record")
	w.elem(3, "rec-number", strconv.Itoa(n))
	w.line(3, `<ref-type name="`+escaper.Replace(typeName)+`">`+strconv.Itoa(mapping.EndNoteTypeCode(typeName))+`</ref-type>`)

	if len(e.Author)+len(e.Editor)+len(e.Translator) > 0 {
		w.open(3, "contributors")
		for _, role := range []string{reference.FieldAuthor, reference.FieldEditor, reference.FieldTranslator} {
			persons := e.Names(role)
			if len(persons) == 0 {
				continue
			}
			group := mapping.FieldName(role, format.EndNote, typeName)
			w.open(4, group)
			for _, p := range persons {
				w.elem(5, "author", personName(p))
			}
			w.close(4, group)
		}
		w.close(3, "contributors")
	}

	if hasAny(e, titleFields) {
		w.open(3, "titles")
		for _, f := range titleFields {
			w.elem(4, mapping.FieldName(f, format.EndNote, typeName), e.Get(f))
		}
		w.close(3, "titles")
	}
	if ct := e.Get(reference.FieldContainerTitle); ct != "" && strings.HasPrefix(e.Type, "article") {
		w.open(3, "periodical")
		w.elem(4, "full-title", ct)
		w.close(3, "periodical")
	}

	for _, f := range flatFields {
		w.elem(3, mapping.FieldName(f, format.EndNote, typeName), e.Get(f))
	}

	if kw := e.Get(reference.FieldKeyword); kw != "" {
		w.open(3, "keywords")
		for _, k := range strings.Split(kw, ",") {
			w.elem(4, "keyword", strings.TrimSpace(k))
		}
		w.close(3, "keywords")
	}

	if e.Issued != nil {
		w.open(3, "dates")
		if y := dates.Year(e.Issued); y > 0 {
			w.elem(4, "year", strconv.Itoa(y))
		}
		if d := dates.Serialize(e.Issued); d != "" && (e.Issued.IsRaw() || len(e.Issued.DateParts[0]) > 1 || e.Issued.IsRange()) {
			w.open(4, "pub-dates")
			w.elem(5, "date", d)
			w.close(4, "pub-dates")
		}
		w.close(3, "dates")
	}

	w.elem(3, "isbn", firstNonEmpty(e.Get(mapping.StandardNumberField(e.Type)), e.Get(reference.FieldISBN), e.Get(reference.FieldISSN)))

	for _, f := range trailingFields {
		w.elem(3, mapping.FieldName(f, format.EndNote, typeName), e.Get(f))
	}

	if u := e.Get(reference.FieldURL); u != "" {
		w.open(3, "urls")
		w.open(4, "related-urls")
		w.elem(5, "url", u)
		w.close(4, "related-urls")
		w.close(3, "urls")
	}
	if e.Accessed != nil {
		w.elem(3, "access-date", dates.Serialize(e.Accessed))
	}

	if e.Source() == string(format.EndNote) {
		custom := e.CustomFields()
		keys := make([]string, 0, len(custom))
		for k := range custom {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.elem(3, k, custom[k])
		}
	}

	w.close(2, "record")
}

func hasAny(e reference.Entry, fields []string) bool {
	for _, f := range fields {
		if e.Has(f) {
			return true
		}
	}
	return false
}

// personName writes "Family, Given" for structured names and the literal
// as is.
// personName writes "Family, Given"; literal names are braced so they
// read back as literals.
func personName(p reference.Person) string {
	return names.Serialize(p, names.StyleBibTeX)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
