package bibtex

import (
	"github.com/matsen/bibhub/internal/reference"
)

// Index indexes existing BibTeX entries for deduplication.
type Index struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// IndexEntries builds an index from parsed entries.
func IndexEntries(entries []reference.Entry) *Index {
	idx := NewIndex()
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

// Add records an entry's key and DOI.
func (idx *Index) Add(e reference.Entry) {
	key := Key(e.ID)
	idx.Keys[key] = true
	if doi := reference.NormalizeDOI(e.Get(reference.FieldDOI)); doi != "" {
		idx.DOIs[doi] = key
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *Index) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[reference.NormalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[Key(key)]
}

// Missing returns the entries not already in the index, in order.
func (idx *Index) Missing(entries []reference.Entry) []reference.Entry {
	var out []reference.Entry
	for _, e := range entries {
		if !idx.HasEntry(e.ID, e.Get(reference.FieldDOI)) {
			out = append(out, e)
		}
	}
	return out
}
