// Package reference defines the canonical bibliographic record that every
// citation format converts through.
package reference

import (
	"errors"
	"sort"
)

// Entry is one bibliographic record in canonical form.
//
// Entries are values: code that needs a modified entry calls Clone or
// WithField and works on the copy, so an Entry handed out by a parser can be
// shared between concurrent conversions.
type Entry struct {
	// Identity
	ID   string // Citation key
	Type string // Canonical type (see Types)

	// Contributors, in citation order
	Author     []Person
	Editor     []Person
	Translator []Person

	// Dates
	Issued   *Date
	Accessed *Date

	// Fields holds every scalar field keyed by its canonical name
	// (title, container-title, DOI, page, ...).
	Fields map[string]string

	// FormatMetadata records provenance; nil for directly constructed entries.
	FormatMetadata *FormatMetadata
}

// FormatMetadata records where an entry came from and what could not be mapped.
type FormatMetadata struct {
	Source       string            `json:"source"`                 // Format name the entry was parsed from
	OriginalType string            `json:"originalType,omitempty"` // Entry type as spelled in the source
	CustomFields map[string]string `json:"customFields,omitempty"` // Source fields with no canonical home
}

// Canonical scalar field names.
const (
	FieldTitle               = "title"
	FieldTitleShort          = "title-short"
	FieldContainerTitle      = "container-title"
	FieldContainerTitleShort = "container-title-short"
	FieldCollectionTitle     = "collection-title"
	FieldPublisher           = "publisher"
	FieldPublisherPlace      = "publisher-place"
	FieldVolume              = "volume"
	FieldIssue               = "issue"
	FieldPage                = "page"
	FieldEdition             = "edition"
	FieldDOI                 = "DOI"
	FieldISBN                = "ISBN"
	FieldISSN                = "ISSN"
	FieldURL                 = "URL"
	FieldAbstract            = "abstract"
	FieldKeyword             = "keyword"
	FieldNote                = "note"
	FieldLanguage            = "language"
	FieldGenre               = "genre"
	FieldChapterNumber       = "chapter-number"
	FieldNumber              = "number"
)

// Structured field names (not stored in Fields).
const (
	FieldAuthor     = "author"
	FieldEditor     = "editor"
	FieldTranslator = "translator"
	FieldIssued     = "issued"
	FieldAccessed   = "accessed"
)

// TypeArticle is the generic article type used when a format type has no
// better canonical match.
const TypeArticle = "article"

// Types is the closed canonical type vocabulary.
var Types = []string{
	"article", "article-journal", "article-magazine", "article-newspaper",
	"bill", "book", "broadcast", "chapter", "dataset", "entry",
	"entry-dictionary", "entry-encyclopedia", "figure", "graphic",
	"interview", "legal_case", "legislation", "manuscript", "map",
	"motion_picture", "musical_score", "pamphlet", "paper-conference",
	"patent", "personal_communication", "post", "post-weblog", "report",
	"review", "review-book", "software", "song", "speech", "standard",
	"thesis", "treaty", "webpage",
}

var typeSet = func() map[string]bool {
	m := make(map[string]bool, len(Types))
	for _, t := range Types {
		m[t] = true
	}
	return m
}()

// IsType reports whether t belongs to the canonical type vocabulary.
func IsType(t string) bool {
	return typeSet[t]
}

// Validation errors.
var (
	ErrEmptyID   = errors.New("id is required")
	ErrEmptyType = errors.New("type is required")
)

// Validate checks the invariants every parsed entry must satisfy.
func (e Entry) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Type == "" {
		return ErrEmptyType
	}
	return nil
}

// Get returns a scalar field, or "" if absent.
func (e Entry) Get(name string) string {
	return e.Fields[name]
}

// Has reports whether a non-empty scalar field is present.
func (e Entry) Has(name string) bool {
	return e.Fields[name] != ""
}

// FieldNames returns the names of present scalar fields in sorted order.
func (e Entry) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns the person list for author, editor or translator.
func (e Entry) Names(role string) []Person {
	switch role {
	case FieldAuthor:
		return e.Author
	case FieldEditor:
		return e.Editor
	case FieldTranslator:
		return e.Translator
	}
	return nil
}

// CustomFields returns the unmapped source fields, or nil.
func (e Entry) CustomFields() map[string]string {
	if e.FormatMetadata == nil {
		return nil
	}
	return e.FormatMetadata.CustomFields
}

// Source returns the format the entry was parsed from, or "".
func (e Entry) Source() string {
	if e.FormatMetadata == nil {
		return ""
	}
	return e.FormatMetadata.Source
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	out.Author = clonePersons(e.Author)
	out.Editor = clonePersons(e.Editor)
	out.Translator = clonePersons(e.Translator)
	out.Issued = e.Issued.Clone()
	out.Accessed = e.Accessed.Clone()
	if e.Fields != nil {
		out.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	if e.FormatMetadata != nil {
		md := *e.FormatMetadata
		if md.CustomFields != nil {
			md.CustomFields = make(map[string]string, len(e.FormatMetadata.CustomFields))
			for k, v := range e.FormatMetadata.CustomFields {
				md.CustomFields[k] = v
			}
		}
		out.FormatMetadata = &md
	}
	return out
}

// WithField returns a copy of the entry with the scalar field set.
// An empty value removes the field.
func (e Entry) WithField(name, value string) Entry {
	out := e.Clone()
	if out.Fields == nil {
		out.Fields = make(map[string]string)
	}
	if value == "" {
		delete(out.Fields, name)
	} else {
		out.Fields[name] = value
	}
	return out
}

// SortByID returns a copy of entries stably ordered by ID.
func SortByID(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clonePersons(ps []Person) []Person {
	if ps == nil {
		return nil
	}
	out := make([]Person, len(ps))
	copy(out, ps)
	return out
}
