package mapping

import (
	"strings"

	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
)

// Transform tells codecs how to convert a field's value.
type Transform int

const (
	TransformNone Transform = iota
	TransformName
	TransformDate
	TransformNumber
	TransformPageRange
)

func (t Transform) String() string {
	switch t {
	case TransformName:
		return "name"
	case TransformDate:
		return "date"
	case TransformNumber:
		return "number"
	case TransformPageRange:
		return "page-range"
	}
	return "none"
}

// FieldMapping is one row of the field table. An empty spelling means the
// format has no home for the field.
type FieldMapping struct {
	Canonical string
	BibTeX    string
	BibLaTeX  string
	RIS       string
	EndNote   string
	Transform Transform
	// Verbatim fields are never LaTeX-encoded or decoded.
	Verbatim bool
}

// For returns the row's default spelling in f.
func (m FieldMapping) For(f format.Format) string {
	switch f {
	case format.BibTeX:
		return m.BibTeX
	case format.BibLaTeX:
		return m.BibLaTeX
	case format.RIS:
		return m.RIS
	case format.EndNote:
		return m.EndNote
	}
	return m.Canonical
}

var fieldTable = []FieldMapping{
	{reference.FieldTitle, "title", "title", "TI", "title", TransformNone, false},
	{reference.FieldContainerTitle, "journal", "journaltitle", "JO", "secondary-title", TransformNone, false},
	{reference.FieldAuthor, "author", "author", "AU", "authors", TransformName, false},
	{reference.FieldEditor, "editor", "editor", "ED", "secondary-authors", TransformName, false},
	{reference.FieldTranslator, "translator", "translator", "A4", "translated-authors", TransformName, false},
	{reference.FieldIssued, "year", "date", "PY", "year", TransformDate, false},
	{reference.FieldAccessed, "urldate", "urldate", "Y2", "access-date", TransformDate, false},
	{reference.FieldVolume, "volume", "volume", "VL", "volume", TransformNumber, false},
	{reference.FieldIssue, "number", "number", "IS", "number", TransformNumber, false},
	{reference.FieldPage, "pages", "pages", "SP", "pages", TransformPageRange, false},
	{reference.FieldPublisher, "publisher", "publisher", "PB", "publisher", TransformNone, false},
	{reference.FieldPublisherPlace, "address", "location", "CY", "pub-location", TransformNone, false},
	{reference.FieldDOI, "doi", "doi", "DO", "electronic-resource-num", TransformNone, true},
	{reference.FieldISBN, "isbn", "isbn", "SN", "isbn", TransformNone, false},
	{reference.FieldISSN, "issn", "issn", "SN", "isbn", TransformNone, false},
	{reference.FieldURL, "url", "url", "UR", "url", TransformNone, true},
	{reference.FieldAbstract, "abstract", "abstract", "AB", "abstract", TransformNone, false},
	{reference.FieldKeyword, "keywords", "keywords", "KW", "keywords", TransformNone, false},
	{reference.FieldNote, "note", "note", "N1", "notes", TransformNone, false},
	{reference.FieldLanguage, "language", "language", "LA", "language", TransformNone, false},
	{reference.FieldEdition, "edition", "edition", "ET", "edition", TransformNone, false},
	{reference.FieldCollectionTitle, "series", "series", "T3", "tertiary-title", TransformNone, false},
	{reference.FieldTitleShort, "shorttitle", "shorttitle", "ST", "short-title", TransformNone, false},
	{reference.FieldContainerTitleShort, "", "shortjournal", "J2", "alt-title", TransformNone, false},
	{reference.FieldChapterNumber, "chapter", "chapter", "", "section", TransformNumber, false},
	{reference.FieldGenre, "type", "type", "M3", "work-type", TransformNone, false},
}

var fieldByCanonical = func() map[string]FieldMapping {
	m := make(map[string]FieldMapping, len(fieldTable))
	for _, row := range fieldTable {
		m[row.Canonical] = row
	}
	return m
}()

// bibtexFields maps lowercase BibTeX and BibLaTeX field names to canonical
// names. Both dialects are accepted by the same parser.
var bibtexFields = func() map[string]string {
	m := map[string]string{
		"booktitle":   reference.FieldContainerTitle,
		"school":      reference.FieldPublisher,
		"institution": reference.FieldPublisher,
	}
	for _, row := range fieldTable {
		if row.BibTeX != "" {
			m[row.BibTeX] = row.Canonical
		}
		if row.BibLaTeX != "" {
			m[row.BibLaTeX] = row.Canonical
		}
	}
	// year and date both land in issued; the parser combines them.
	m["year"] = reference.FieldIssued
	return m
}()

// risFields covers RIS tags not in the field table. SN is resolved by type.
var risFields = func() map[string]string {
	m := map[string]string{
		"A1": reference.FieldAuthor,
		"A2": reference.FieldEditor,
		"T1": reference.FieldTitle,
		"T2": reference.FieldContainerTitle,
		"JF": reference.FieldContainerTitle,
		"JA": reference.FieldContainerTitleShort,
		"Y1": reference.FieldIssued,
		"DA": reference.FieldIssued,
		"EP": reference.FieldPage,
		"N2": reference.FieldAbstract,
		"L2": reference.FieldURL,
	}
	for _, row := range fieldTable {
		if row.RIS != "" && row.RIS != "SN" {
			m[row.RIS] = row.Canonical
		}
	}
	return m
}()

var endnoteFields = func() map[string]string {
	m := map[string]string{
		"full-title": reference.FieldContainerTitle,
	}
	for _, row := range fieldTable {
		if row.EndNote != "" && row.EndNote != "isbn" {
			m[row.EndNote] = row.Canonical
		}
	}
	return m
}()

// Field returns the table row for a canonical field.
func Field(canonical string) (FieldMapping, bool) {
	row, ok := fieldByCanonical[canonical]
	return row, ok
}

// Fields returns every field table row in table order.
func Fields() []FieldMapping {
	out := make([]FieldMapping, len(fieldTable))
	copy(out, fieldTable)
	return out
}

// IsVerbatim reports whether a canonical field must bypass the LaTeX codec.
func IsVerbatim(canonical string) bool {
	return fieldByCanonical[canonical].Verbatim
}

// FieldName returns f's name for a canonical field inside an entry whose
// f-specific type is formatType, applying type-specific overrides.
// It returns "" when f has no home for the field.
func FieldName(canonical string, f format.Format, formatType string) string {
	if f == format.CSLJSON {
		return canonical
	}
	if name, ok := override(canonical, f, formatType); ok {
		return name
	}
	return fieldByCanonical[canonical].For(f)
}

func override(canonical string, f format.Format, formatType string) (string, bool) {
	switch canonical {
	case reference.FieldContainerTitle:
		switch f {
		case format.BibTeX, format.BibLaTeX:
			switch strings.ToLower(formatType) {
			case "inproceedings", "incollection", "inbook", "inreference", "bookinbook":
				return "booktitle", true
			}
		case format.RIS:
			switch strings.ToUpper(formatType) {
			case "CHAP", "CPAPER", "CONF", "ECHAP":
				return "T2", true
			}
		}
	case reference.FieldPublisher:
		switch f {
		case format.BibTeX:
			switch strings.ToLower(formatType) {
			case "phdthesis", "mastersthesis":
				return "school", true
			case "techreport":
				return "institution", true
			}
		case format.BibLaTeX:
			switch strings.ToLower(formatType) {
			case "thesis", "report":
				return "institution", true
			}
		}
	}
	return "", false
}

// CanonicalField returns the canonical name for field name in format f
// inside an entry of f-specific type formatType. The second result is false
// when the field has no canonical home.
func CanonicalField(name string, f format.Format, formatType string) (string, bool) {
	var canonical string
	switch f {
	case format.BibTeX, format.BibLaTeX:
		canonical = bibtexFields[strings.ToLower(name)]
	case format.RIS:
		tag := strings.ToUpper(name)
		if tag == "SN" {
			return standardNumber(isBookType(risTypes[strings.ToUpper(formatType)])), true
		}
		canonical = risFields[tag]
	case format.EndNote:
		n := strings.ToLower(name)
		if n == "isbn" {
			return standardNumber(isBookType(endnoteTypes[strings.ToLower(formatType)])), true
		}
		canonical = endnoteFields[n]
	case format.CSLJSON:
		canonical = name
	}
	return canonical, canonical != ""
}

// StandardNumberField returns whichever of ISBN or ISSN a shared RIS SN or
// EndNote isbn slot carries for the canonical type.
func StandardNumberField(canonicalType string) string {
	return standardNumber(isBookType(canonicalType))
}

func standardNumber(book bool) string {
	if book {
		return reference.FieldISBN
	}
	return reference.FieldISSN
}

func isBookType(canonicalType string) bool {
	switch canonicalType {
	case "book", "chapter", "entry-encyclopedia", "entry-dictionary", "pamphlet", "thesis", "report":
		return true
	}
	return false
}
