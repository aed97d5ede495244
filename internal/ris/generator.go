package ris

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/bibhub/internal/dates"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Generator writes RIS.
type Generator struct{}

// NewGenerator returns a RIS generator.
func NewGenerator() Generator {
	return Generator{}
}

// fieldOrder lists the scalar fields written after the names, in order.
var fieldOrder = []string{
	reference.FieldTitle,
	reference.FieldTitleShort,
	reference.FieldContainerTitle,
	reference.FieldContainerTitleShort,
	reference.FieldCollectionTitle,
	reference.FieldVolume,
	reference.FieldIssue,
	reference.FieldEdition,
	reference.FieldPublisher,
	reference.FieldPublisherPlace,
	reference.FieldGenre,
	reference.FieldDOI,
	reference.FieldURL,
	reference.FieldAbstract,
	reference.FieldLanguage,
}

var (
	pageSplitRe  = regexp.MustCompile(`^\s*([^\s\-–—]+)\s*[-–—]+\s*([^\s\-–—]+)\s*$`)
	keywordSplit = regexp.MustCompile(`\s*[;,]\s*`)
	lineBreaksRe = regexp.MustCompile(`\s*\n\s*`)
	customTagRe  = regexp.MustCompile(`^[A-Z][A-Z0-9]$`)
	reservedTags = map[string]bool{"TY": true, "ID": true, "ER": true}
)

// Generate writes entries as RIS records separated by a blank line.
func (g Generator) Generate(entries []reference.Entry, opts format.Options) string {
	opts = opts.Normalize()
	ordered := format.Order(entries, opts)
	if len(ordered) == 0 {
		return ""
	}

	out := make([]string, 0, len(ordered))
	for _, e := range ordered {
		out = append(out, g.record(e, opts))
	}
	return strings.Join(out, opts.LineEnding+opts.LineEnding) + opts.LineEnding
}

func (g Generator) record(e reference.Entry, opts format.Options) string {
	typ, _ := mapping.DenormalizeType(e.Type, format.RIS)
	if e.Source() == string(format.RIS) && e.FormatMetadata.OriginalType != "" {
		if t, known := mapping.NormalizeType(e.FormatMetadata.OriginalType, format.RIS); known && t == e.Type {
			typ = e.FormatMetadata.OriginalType
		}
	}

	var lines []string
	add := func(tag, value string) {
		value = strings.TrimSpace(lineBreaksRe.ReplaceAllString(value, " "))
		if tag == "" || value == "" {
			return
		}
		lines = append(lines, tag+"  - "+value)
	}

	add("TY", typ)
	add("ID", e.ID)

	for _, role := range []string{reference.FieldAuthor, reference.FieldEditor, reference.FieldTranslator} {
		tag := mapping.FieldName(role, format.RIS, typ)
		for _, p := range e.Names(role) {
			add(tag, personName(p))
		}
	}

	for _, canonical := range fieldOrder {
		add(mapping.FieldName(canonical, format.RIS, typ), e.Get(canonical))
	}

	if e.Issued != nil {
		if y := dates.Year(e.Issued); y > 0 {
			add("PY", strconv.Itoa(y))
		}
		add("DA", dates.SerializeRIS(e.Issued))
	}
	if e.Accessed != nil {
		add("Y2", dates.SerializeRIS(e.Accessed))
	}

	if page := e.Get(reference.FieldPage); page != "" {
		if m := pageSplitRe.FindStringSubmatch(page); m != nil {
			add("SP", m[1])
			add("EP", m[2])
		} else {
			add("SP", page)
		}
	}

	sn := e.Get(mapping.StandardNumberField(e.Type))
	if sn == "" {
		sn = firstNonEmpty(e.Get(reference.FieldISBN), e.Get(reference.FieldISSN))
	}
	add("SN", sn)

	if kw := e.Get(reference.FieldKeyword); kw != "" {
		for _, k := range keywordSplit.Split(kw, -1) {
			add("KW", k)
		}
	}
	if note := e.Get(reference.FieldNote); note != "" {
		for _, n := range strings.Split(note, "\n") {
			add("N1", n)
		}
	}

	if e.Source() == string(format.RIS) {
		custom := e.CustomFields()
		tags := make([]string, 0, len(custom))
		for t := range custom {
			if customTagRe.MatchString(t) && !reservedTags[t] {
				tags = append(tags, t)
			}
		}
		sort.Strings(tags)
		for _, t := range tags {
			for _, v := range strings.Split(custom[t], "\n") {
				add(t, v)
			}
		}
	}

	lines = append(lines, "ER  - ")
	return strings.Join(lines, opts.LineEnding)
}

// personName formats a person the way RIS expects: "Family, Given[, Suffix]"
// or the literal name as is.
// personName writes "Family, Given"; literal names are braced so they
// read back as literals.
func personName(p reference.Person) string {
	return names.Serialize(p, names.StyleBibTeX)
}
