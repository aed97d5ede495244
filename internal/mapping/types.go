// Package mapping holds the static tables that translate canonical entry
// types and field names to and from each citation format.
//
// The tables are package-level values that are never modified after
// initialization, so they are safe to read from any goroutine.
package mapping

import (
	"strings"

	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
)

// TypeMapping is one row of the entry-type table.
type TypeMapping struct {
	Canonical   string
	BibTeX      string
	BibLaTeX    string
	RIS         string
	EndNote     string
	EndNoteCode int
	// LossyToBibTeX is set when BibTeX's type cannot tell this type apart
	// from others sharing the same BibTeX spelling.
	LossyToBibTeX bool
}

// For returns the row's spelling in f.
func (m TypeMapping) For(f format.Format) string {
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

var typeTable = []TypeMapping{
	{"article", "article", "article", "GEN", "Generic", 13, false},
	{"article-journal", "article", "article", "JOUR", "Journal Article", 17, false},
	{"article-magazine", "article", "article", "MGZN", "Magazine Article", 19, true},
	{"article-newspaper", "article", "article", "NEWS", "Newspaper Article", 23, true},
	{"book", "book", "book", "BOOK", "Book", 6, false},
	{"chapter", "incollection", "incollection", "CHAP", "Book Section", 5, false},
	{"paper-conference", "inproceedings", "inproceedings", "CPAPER", "Conference Paper", 47, false},
	{"thesis", "phdthesis", "thesis", "THES", "Thesis", 32, false},
	{"report", "techreport", "report", "RPRT", "Report", 27, false},
	{"manuscript", "unpublished", "unpublished", "UNPB", "Unpublished Work", 34, false},
	{"webpage", "misc", "online", "ELEC", "Web Page", 12, true},
	{"post-weblog", "misc", "online", "BLOG", "Blog", 56, true},
	{"dataset", "misc", "dataset", "DATA", "Dataset", 59, true},
	{"software", "misc", "software", "COMP", "Computer Program", 9, true},
	{"patent", "misc", "patent", "PAT", "Patent", 25, true},
	{"pamphlet", "booklet", "booklet", "PAMP", "Pamphlet", 24, false},
	{"entry-encyclopedia", "inbook", "inreference", "ENCYC", "Encyclopedia", 53, true},
	{"entry-dictionary", "inbook", "inreference", "DICT", "Dictionary", 52, true},
	{"standard", "misc", "standard", "STAND", "Standard", 58, true},
}

// Fallback spellings for canonical types with no table row.
var miscType = map[format.Format]string{
	format.BibTeX:   "misc",
	format.BibLaTeX: "misc",
	format.RIS:      "GEN",
	format.EndNote:  "Generic",
}

var typeByCanonical = func() map[string]TypeMapping {
	m := make(map[string]TypeMapping, len(typeTable))
	for _, row := range typeTable {
		m[row.Canonical] = row
	}
	return m
}()

// bibtexTypes is shared by BibTeX and BibLaTeX. Keys are lowercase.
// misc deliberately maps to article: BibTeX cannot say what a misc entry
// was, and callers rely on the historical default.
var bibtexTypes = map[string]string{
	"article":       "article-journal",
	"book":          "book",
	"mvbook":        "book",
	"collection":    "book",
	"mvcollection":  "book",
	"proceedings":   "book",
	"mvproceedings": "book",
	"reference":     "book",
	"booklet":       "pamphlet",
	"inbook":        "chapter",
	"incollection":  "chapter",
	"bookinbook":    "chapter",
	"suppbook":      "chapter",
	"inproceedings": "paper-conference",
	"conference":    "paper-conference",
	"phdthesis":     "thesis",
	"mastersthesis": "thesis",
	"thesis":        "thesis",
	"techreport":    "report",
	"report":        "report",
	"manual":        "report",
	"unpublished":   "manuscript",
	"online":        "webpage",
	"electronic":    "webpage",
	"www":           "webpage",
	"dataset":       "dataset",
	"software":      "software",
	"patent":        "patent",
	"inreference":   "entry-encyclopedia",
	"standard":      "standard",
	"periodical":    "article-journal",
	"misc":          reference.TypeArticle,
}

var risTypes = func() map[string]string {
	m := map[string]string{
		"CONF":   "paper-conference",
		"EBOOK":  "book",
		"EDBOOK": "book",
		"ECHAP":  "chapter",
		"INPR":   "article-journal",
		"JFULL":  "article-journal",
		"ABST":   "article",
		"MAP":    "map",
		"MPCT":   "motion_picture",
		"BILL":   "bill",
		"CASE":   "legal_case",
		"STAT":   "legislation",
		"SOUND":  "song",
		"WEB":    "webpage",
	}
	for _, row := range typeTable {
		if _, ok := m[row.RIS]; !ok {
			m[row.RIS] = row.Canonical
		}
	}
	return m
}()

var endnoteTypes = func() map[string]string {
	m := make(map[string]string, len(typeTable))
	for _, row := range typeTable {
		m[strings.ToLower(row.EndNote)] = row.Canonical
	}
	m["electronic article"] = "article-journal"
	m["edited book"] = "book"
	m["electronic book"] = "book"
	m["conference proceedings"] = "paper-conference"
	return m
}()

var endnoteNames = func() map[int]string {
	m := make(map[int]string, len(typeTable))
	for _, row := range typeTable {
		m[row.EndNoteCode] = row.EndNote
	}
	return m
}()

// LookupType returns the table row for a canonical type.
func LookupType(canonical string) (TypeMapping, bool) {
	row, ok := typeByCanonical[canonical]
	return row, ok
}

// DenormalizeType returns f's spelling of a canonical type and whether the
// conversion loses information. Unmapped types fall back to the format's
// miscellaneous type and are always lossy. Mapped types are lossy only when
// the target is BibTeX and the row says so.
func DenormalizeType(canonical string, f format.Format) (string, bool) {
	if f == format.CSLJSON {
		return canonical, false
	}
	row, ok := typeByCanonical[canonical]
	if !ok {
		return miscType[f], true
	}
	if f == format.BibTeX {
		return row.BibTeX, row.LossyToBibTeX
	}
	return row.For(f), false
}

// NormalizeType returns the canonical type for a format's type spelling.
// Unrecognized spellings map to "article"; the second result is false for
// them so callers can record the fallback.
func NormalizeType(formatType string, f format.Format) (string, bool) {
	var (
		typ string
		ok  bool
	)
	switch f {
	case format.BibTeX, format.BibLaTeX:
		typ, ok = bibtexTypes[strings.ToLower(strings.TrimSpace(formatType))]
	case format.RIS:
		typ, ok = risTypes[strings.ToUpper(strings.TrimSpace(formatType))]
	case format.EndNote:
		typ, ok = endnoteTypes[strings.ToLower(strings.TrimSpace(formatType))]
	case format.CSLJSON:
		typ, ok = formatType, reference.IsType(formatType)
	}
	if !ok {
		return reference.TypeArticle, false
	}
	return typ, true
}

// EndNoteTypeName returns the EndNote ref-type name for a numeric code.
func EndNoteTypeName(code int) (string, bool) {
	name, ok := endnoteNames[code]
	return name, ok
}

// EndNoteTypeCode returns the numeric code for an EndNote ref-type name.
func EndNoteTypeCode(name string) int {
	if canonical, ok := endnoteTypes[strings.ToLower(name)]; ok {
		if row, ok := typeByCanonical[canonical]; ok {
			return row.EndNoteCode
		}
	}
	return typeByCanonical[reference.TypeArticle].EndNoteCode
}
