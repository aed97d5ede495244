package mapping_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/mapping"
	"github.com/matsen/bibhub/internal/reference"
)

func TestDenormalizeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		canonical string
		target    format.Format
		wantType  string
		wantLossy bool
	}{
		{"dataset to bibtex", "dataset", format.BibTeX, "misc", true},
		{"dataset to biblatex", "dataset", format.BibLaTeX, "dataset", false},
		{"journal article to bibtex", "article-journal", format.BibTeX, "article", false},
		{"chapter to ris", "chapter", format.RIS, "CHAP", false},
		{"thesis to endnote", "thesis", format.EndNote, "Thesis", false},
		{"webpage to biblatex", "webpage", format.BibLaTeX, "online", false},
		{"unmapped to bibtex", "motion_picture", format.BibTeX, "misc", true},
		{"unmapped to ris", "motion_picture", format.RIS, "GEN", true},
		{"unmapped to endnote", "motion_picture", format.EndNote, "Generic", true},
		{"csl-json is identity", "motion_picture", format.CSLJSON, "motion_picture", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			typ, lossy := mapping.DenormalizeType(tt.canonical, tt.target)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantLossy, lossy)
		})
	}
}

func TestNormalizeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		formatType string
		source     format.Format
		want       string
		wantKnown  bool
	}{
		{"bibtex article", "article", format.BibTeX, "article-journal", true},
		{"bibtex case-insensitive", "InProceedings", format.BibTeX, "paper-conference", true},
		{"bibtex misc falls back to article", "misc", format.BibTeX, "article", true},
		{"bibtex unknown", "whatever", format.BibTeX, "article", false},
		{"biblatex online", "online", format.BibLaTeX, "webpage", true},
		{"biblatex dataset", "dataset", format.BibLaTeX, "dataset", true},
		{"ris journal", "JOUR", format.RIS, "article-journal", true},
		{"ris generic", "GEN", format.RIS, "article", true},
		{"ris conference alias", "CONF", format.RIS, "paper-conference", true},
		{"endnote name", "Book Section", format.EndNote, "chapter", true},
		{"csl-json known", "dataset", format.CSLJSON, "dataset", true},
		{"csl-json unknown", "misc", format.CSLJSON, "article", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, known := mapping.NormalizeType(tt.formatType, tt.source)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestTypeTableRoundTrips(t *testing.T) {
	t.Parallel()

	// Every canonical type with a distinct BibLaTeX, RIS or EndNote spelling
	// survives a denormalize/normalize cycle in that format.
	for _, f := range []format.Format{format.RIS, format.EndNote} {
		for _, typ := range []string{"article-journal", "book", "chapter", "paper-conference", "thesis", "report", "dataset", "software", "patent"} {
			spelled, lossy := mapping.DenormalizeType(typ, f)
			require.False(t, lossy, "%s in %s", typ, f)
			back, known := mapping.NormalizeType(spelled, f)
			require.True(t, known, "%s in %s", spelled, f)
			assert.Equal(t, typ, back, "%s via %s", typ, f)
		}
	}
}

func TestFieldName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		canonical  string
		target     format.Format
		formatType string
		want       string
	}{
		{"journal in article", reference.FieldContainerTitle, format.BibTeX, "article", "journal"},
		{"booktitle in inproceedings", reference.FieldContainerTitle, format.BibTeX, "inproceedings", "booktitle"},
		{"booktitle in incollection", reference.FieldContainerTitle, format.BibLaTeX, "incollection", "booktitle"},
		{"journaltitle in biblatex", reference.FieldContainerTitle, format.BibLaTeX, "article", "journaltitle"},
		{"school in phdthesis", reference.FieldPublisher, format.BibTeX, "phdthesis", "school"},
		{"institution in techreport", reference.FieldPublisher, format.BibTeX, "techreport", "institution"},
		{"institution in biblatex thesis", reference.FieldPublisher, format.BibLaTeX, "thesis", "institution"},
		{"ris T2 in chapter", reference.FieldContainerTitle, format.RIS, "CHAP", "T2"},
		{"ris JO in journal", reference.FieldContainerTitle, format.RIS, "JOUR", "JO"},
		{"no bibtex home", reference.FieldContainerTitleShort, format.BibTeX, "article", ""},
		{"csl-json identity", reference.FieldDOI, format.CSLJSON, "article-journal", "DOI"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mapping.FieldName(tt.canonical, tt.target, tt.formatType))
		})
	}
}

func TestCanonicalField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		field      string
		source     format.Format
		formatType string
		want       string
		wantOK     bool
	}{
		{"bibtex journal", "journal", format.BibTeX, "article", reference.FieldContainerTitle, true},
		{"bibtex booktitle", "BookTitle", format.BibTeX, "inproceedings", reference.FieldContainerTitle, true},
		{"biblatex journaltitle", "journaltitle", format.BibLaTeX, "article", reference.FieldContainerTitle, true},
		{"bibtex school", "school", format.BibTeX, "phdthesis", reference.FieldPublisher, true},
		{"bibtex unknown", "owner", format.BibTeX, "article", "", false},
		{"ris SN in book", "SN", format.RIS, "BOOK", reference.FieldISBN, true},
		{"ris SN in journal", "SN", format.RIS, "JOUR", reference.FieldISSN, true},
		{"ris T2", "T2", format.RIS, "CHAP", reference.FieldContainerTitle, true},
		{"endnote isbn in book", "isbn", format.EndNote, "Book", reference.FieldISBN, true},
		{"endnote doi", "electronic-resource-num", format.EndNote, "Journal Article", reference.FieldDOI, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := mapping.CanonicalField(tt.field, tt.source, tt.formatType)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldTable(t *testing.T) {
	t.Parallel()

	doi, ok := mapping.Field(reference.FieldDOI)
	require.True(t, ok)
	assert.True(t, doi.Verbatim)
	assert.True(t, mapping.IsVerbatim(reference.FieldURL))
	assert.False(t, mapping.IsVerbatim(reference.FieldTitle))

	author, ok := mapping.Field(reference.FieldAuthor)
	require.True(t, ok)
	assert.Equal(t, mapping.TransformName, author.Transform, spew.Sdump(author))

	rows := mapping.Fields()
	rows[0].BibTeX = "changed"
	first, _ := mapping.Field(rows[0].Canonical)
	assert.NotEqual(t, "changed", first.BibTeX, "Fields() must return a copy")
}

func TestEndNoteTypeCodes(t *testing.T) {
	t.Parallel()

	name, ok := mapping.EndNoteTypeName(17)
	require.True(t, ok)
	assert.Equal(t, "Journal Article", name)
	assert.Equal(t, 6, mapping.EndNoteTypeCode("Book"))
	assert.Equal(t, 13, mapping.EndNoteTypeCode("Unheard Of"))

	_, ok = mapping.EndNoteTypeName(999)
	assert.False(t, ok)
}
