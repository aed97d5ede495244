package bibtex

import (
	"testing"

	"github.com/matsen/bibhub/internal/reference"
)

func TestIndex_HasEntry(t *testing.T) {
	idx := IndexEntries([]reference.Entry{
		{ID: "Smith2024", Type: "article-journal", Fields: map[string]string{reference.FieldDOI: "10.1234/ABC"}},
		{ID: "NoDOI2020", Type: "book"},
	})

	tests := []struct {
		name string
		key  string
		doi  string
		want bool
	}{
		{"same key", "Smith2024", "", true},
		{"doi match with other key", "Other", "https://doi.org/10.1234/abc", true},
		{"doi prefix and case", "Other", "DOI:10.1234/Abc", true},
		{"key fallback", "NoDOI2020", "10.9999/none", true},
		{"new entry", "Jones2021", "10.5555/new", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.HasEntry(tt.key, tt.doi); got != tt.want {
				t.Errorf("HasEntry(%q, %q) = %v, want %v", tt.key, tt.doi, got, tt.want)
			}
		})
	}
}

func TestIndex_Missing(t *testing.T) {
	idx := NewIndex()
	idx.Add(reference.Entry{ID: "a", Type: "book"})

	got := idx.Missing([]reference.Entry{
		{ID: "a", Type: "book"},
		{ID: "b", Type: "book"},
		{ID: "c", Type: "book"},
	})
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("Missing() = %+v, want b and c", got)
	}
}
