package ris

import (
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
)

const sampleRIS = `TY  - JOUR
ID  - smith2024
AU  - Smith, John
AU  - von Neumann, John
A2  - Editor, Ed
TI  - Deep Learning for
  DNA Sequences
JO  - Nature
PY  - 2024
DA  - 2024/03/15/
VL  - 12
IS  - 3
SP  - 100
EP  - 110
SN  - 1234-5678
DO  - 10.1234/example
KW  - genomics
KW  - deep learning
N1  - First note
DB  - PubMed
ER  -

TY  - BOOK
AU  - Doe, Jane
T1  - A Book
PB  - Springer
SN  - 978-3-16-148410-0
Y1  - 2019
ER  -
`

func TestParse(t *testing.T) {
	r := NewParser().Parse(sampleRIS)
	if r.Stats != (format.Stats{Total: 2, Successful: 2}) {
		t.Fatalf("Stats = %+v, warnings = %+v", r.Stats, r.Warnings)
	}

	e := r.Entries[0]
	if e.ID != "smith2024" || e.Type != "article-journal" {
		t.Errorf("identity = %s/%s", e.ID, e.Type)
	}
	wantAuthors := []reference.Person{
		{Family: "Smith", Given: "John"},
		{Family: "Neumann", Given: "John", NonDroppingParticle: "von"},
	}
	if !reflect.DeepEqual(e.Author, wantAuthors) {
		t.Errorf("Author = %+v, want %+v", e.Author, wantAuthors)
	}
	if len(e.Editor) != 1 || e.Editor[0].Family != "Editor" {
		t.Errorf("Editor = %+v", e.Editor)
	}

	fields := map[string]string{
		reference.FieldTitle:          "Deep Learning for DNA Sequences",
		reference.FieldContainerTitle: "Nature",
		reference.FieldVolume:         "12",
		reference.FieldIssue:          "3",
		reference.FieldPage:           "100-110",
		reference.FieldISSN:           "1234-5678",
		reference.FieldDOI:            "10.1234/example",
		reference.FieldKeyword:        "genomics, deep learning",
		reference.FieldNote:           "First note",
	}
	for name, want := range fields {
		if got := e.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if !reflect.DeepEqual(e.Issued, reference.NewDate(2024, 3, 15)) {
		t.Errorf("Issued = %+v, want DA date", e.Issued)
	}
	if e.CustomFields()["DB"] != "PubMed" {
		t.Errorf("CustomFields = %v", e.CustomFields())
	}

	book := r.Entries[1]
	if book.ID != "entry2" {
		t.Errorf("synthesized ID = %q, want entry2", book.ID)
	}
	if book.Type != "book" || book.Get(reference.FieldISBN) != "978-3-16-148410-0" {
		t.Errorf("book = %+v", book)
	}
	if book.Get(reference.FieldTitle) != "A Book" || dateYear(book.Issued) != 2019 {
		t.Errorf("book = %+v", book)
	}
}

func dateYear(d *reference.Date) int {
	y, _, _ := d.Start()
	return y
}

func TestParse_PartialFailure(t *testing.T) {
	input := `TY  - JOUR
TI  - First
ER  -
TY  - JOUR
TI  - Never closed
TY  - BOOK
TI  - Third
ER  -
TY  - GEN
TI  - Truncated at EOF
`
	r := NewParser().Parse(input)

	if r.Stats.Total != 4 || r.Stats.Successful != 2 || r.Stats.Failed != 2 {
		t.Errorf("Stats = %+v, want total 4, 2 successful, 2 failed", r.Stats)
	}
	if len(r.Entries) != 2 || r.Entries[0].Get(reference.FieldTitle) != "First" || r.Entries[1].Get(reference.FieldTitle) != "Third" {
		t.Errorf("Entries = %+v", r.Entries)
	}

	var records []int
	for _, w := range r.Warnings {
		if w.Severity == format.SeverityError {
			records = append(records, w.Record)
		}
	}
	if !reflect.DeepEqual(records, []int{2, 4}) {
		t.Errorf("failed records = %v, want [2 4]", records)
	}
}

func TestParse_NoRecords(t *testing.T) {
	if r := NewParser().Parse("just some text"); !r.HasErrors() || len(r.Entries) != 0 {
		t.Errorf("Parse(garbage) = %+v", r)
	}
	if r := NewParser().Parse("\n\n"); r.HasErrors() || len(r.Warnings) != 0 {
		t.Errorf("Parse(blank) = %+v", r)
	}
}

func TestParse_ChapterContainer(t *testing.T) {
	r := NewParser().Parse("TY  - CHAP\nTI  - A Chapter\nT2  - The Book\nSN  - 0-306-40615-2\nER  - \n")
	if len(r.Entries) != 1 {
		t.Fatalf("Parse() = %+v", r)
	}
	e := r.Entries[0]
	if e.Type != "chapter" || e.Get(reference.FieldContainerTitle) != "The Book" {
		t.Errorf("entry = %+v", e)
	}
	if e.Get(reference.FieldISBN) != "0-306-40615-2" {
		t.Errorf("ISBN = %q", e.Get(reference.FieldISBN))
	}
}

func TestGenerate(t *testing.T) {
	e := reference.Entry{
		ID:     "smith2024",
		Type:   "article-journal",
		Author: []reference.Person{{Family: "Smith", Given: "John"}},
		Issued: reference.NewDate(2024, 3, 0),
		Fields: map[string]string{
			reference.FieldTitle:          "Deep Learning",
			reference.FieldContainerTitle: "Nature",
			reference.FieldPage:           "100-110",
			reference.FieldKeyword:        "a, b",
			reference.FieldISSN:           "1234-5678",
		},
	}

	got := NewGenerator().Generate([]reference.Entry{e}, format.DefaultOptions())
	want := strings.Join([]string{
		"TY  - JOUR",
		"ID  - smith2024",
		"AU  - Smith, John",
		"TI  - Deep Learning",
		"JO  - Nature",
		"PY  - 2024",
		"DA  - 2024/03",
		"SP  - 100",
		"EP  - 110",
		"SN  - 1234-5678",
		"KW  - a",
		"KW  - b",
		"ER  - ",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("Generate() =\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerate_TypeSpecificTags(t *testing.T) {
	e := reference.Entry{
		ID:   "conf1",
		Type: "paper-conference",
		Fields: map[string]string{
			reference.FieldTitle:          "Talk",
			reference.FieldContainerTitle: "Proceedings",
		},
	}
	got := NewGenerator().Generate([]reference.Entry{e}, format.DefaultOptions())
	if !strings.Contains(got, "TY  - CPAPER\n") || !strings.Contains(got, "T2  - Proceedings\n") {
		t.Errorf("Generate() should use CPAPER with T2, got:\n%s", got)
	}

	e.Type = "legal_case"
	got = NewGenerator().Generate([]reference.Entry{e}, format.DefaultOptions())
	if !strings.HasPrefix(got, "TY  - GEN\n") {
		t.Errorf("Generate() should fall back to GEN, got:\n%s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	first := NewParser().Parse(sampleRIS)
	text := NewGenerator().Generate(first.Entries, format.DefaultOptions())
	second := NewParser().Parse(text)

	if len(second.Entries) != len(first.Entries) || len(second.Warnings) != 0 {
		t.Fatalf("Parse(Generate()) = %+v\n%s", second, text)
	}
	for i := range first.Entries {
		a, b := first.Entries[i], second.Entries[i]
		if a.Type != b.Type || !reflect.DeepEqual(a.Author, b.Author) || !reflect.DeepEqual(a.Editor, b.Editor) {
			t.Errorf("entry %d names/type differ:\n%+v\n%+v", i, a, b)
		}
		if !reflect.DeepEqual(a.Fields, b.Fields) {
			t.Errorf("entry %d Fields = %v, want %v", i, b.Fields, a.Fields)
		}
		if !reflect.DeepEqual(a.Issued, b.Issued) {
			t.Errorf("entry %d Issued = %+v, want %+v", i, b.Issued, a.Issued)
		}
		if !reflect.DeepEqual(a.CustomFields(), b.CustomFields()) {
			t.Errorf("entry %d CustomFields = %v, want %v", i, b.CustomFields(), a.CustomFields())
		}
	}
}

func TestRoundTrip_LiteralAuthor(t *testing.T) {
	e := reference.Entry{
		ID:     "team2023",
		Type:   "report",
		Author: []reference.Person{{Literal: "The Research Team"}, {Family: "Doe", Given: "Jane"}},
		Fields: map[string]string{reference.FieldTitle: "Annual Report"},
	}

	text := NewGenerator().Generate([]reference.Entry{e}, format.DefaultOptions())
	if !strings.Contains(text, "AU  - {The Research Team}\n") {
		t.Errorf("Generate() should brace the literal name, got:\n%s", text)
	}
	r := NewParser().Parse(text)
	if len(r.Entries) != 1 {
		t.Fatalf("Parse(Generate()) = %+v\n%s", r, text)
	}
	if !reflect.DeepEqual(r.Entries[0].Author, e.Author) {
		t.Errorf("Author = %+v, want %+v", r.Entries[0].Author, e.Author)
	}
}
