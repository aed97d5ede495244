package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/fileio"
	"github.com/matsen/bibhub/internal/format"
	"github.com/matsen/bibhub/internal/reference"
	"github.com/matsen/bibhub/internal/storage"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		path    string
		want    format.Format
		wantErr bool
	}{
		{"flag wins over extension", "ris", "refs.bib", format.RIS, false},
		{"alias", "csl", "", format.CSLJSON, false},
		{"extension", "", "refs.ris", format.RIS, false},
		{"compressed extension", "", "refs.bib.br", format.BibTeX, false},
		{"stdin has no extension", "", fileio.Stdio, "", true},
		{"empty path", "", "", "", true},
		{"unknown extension", "", "refs.docx", "", true},
		{"unknown flag", "docx", "refs.bib", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFormat(tt.value, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveFormat(%q, %q) error = %v, wantErr %v", tt.value, tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveFormat(%q, %q) = %q, want %q", tt.value, tt.path, got, tt.want)
			}
		})
	}

	if _, err := resolveFormat("docx", ""); !errors.Is(err, format.ErrUnknownFormat) {
		t.Errorf("unknown flag error = %v, want ErrUnknownFormat", err)
	}
}

func TestOutputFlagsOptions(t *testing.T) {
	base := format.DefaultOptions()

	tests := []struct {
		name    string
		set     map[string]string
		want    format.Options
		wantErr bool
	}{
		{
			name: "nothing set keeps base",
			want: base,
		},
		{
			name: "all set",
			set:  map[string]string{"sort": "true", "indent": "4", "line-ending": "crlf"},
			want: format.Options{Indent: "    ", LineEnding: "\r\n", Sort: true},
		},
		{
			name:    "indent out of range",
			set:     map[string]string{"indent": "17"},
			wantErr: true,
		},
		{
			name:    "bad line ending",
			set:     map[string]string{"line-ending": "cr"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			var f outputFlags
			f.register(cmd)
			for k, v := range tt.set {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatalf("setting --%s: %v", k, err)
				}
			}

			got, err := f.options(cmd, base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("options() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("options() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b,,c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := parseKeys(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("parseKeys(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSelectEntries(t *testing.T) {
	all := []reference.Entry{
		{ID: "a", Type: "book"},
		{ID: "b", Type: "book"},
		{ID: "c", Type: "book"},
	}

	got, missing := selectEntries(all, nil)
	if len(got) != 3 || missing != nil {
		t.Errorf("no keys: got %d entries, missing %v", len(got), missing)
	}

	got, missing = selectEntries(all, []string{"c", "zzz", "a"})
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("selected = %v, want [c a]", got)
	}
	if len(missing) != 1 || missing[0] != "zzz" {
		t.Errorf("missing = %v, want [zzz]", missing)
	}
}

func TestAppendMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refs.bib")
	existing := "@article{smith2024,\n  title = {Old},\n  doi = {10.1234/abc}\n}\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	entries := []reference.Entry{
		{ID: "renamed", Type: "article-journal", Fields: map[string]string{
			reference.FieldTitle: "Old", reference.FieldDOI: "https://doi.org/10.1234/ABC",
		}},
		{ID: "new2025", Type: "book", Fields: map[string]string{reference.FieldTitle: "New"}},
	}

	res, err := appendMissing(path, entries, format.BibTeX, format.DefaultOptions())
	if err != nil {
		t.Fatalf("appendMissing() error = %v", err)
	}
	if res.Appended != 1 || res.Skipped != 1 {
		t.Errorf("appended %d, skipped %d; want 1, 1", res.Appended, res.Skipped)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, existing) {
		t.Errorf("existing content was modified:\n%s", text)
	}
	if !strings.Contains(text, "@book{new2025,") {
		t.Errorf("new entry not appended:\n%s", text)
	}
	if strings.Contains(text, "renamed") {
		t.Errorf("DOI duplicate was appended:\n%s", text)
	}

	// A second run appends nothing.
	res, err = appendMissing(path, entries, format.BibTeX, format.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Appended != 0 || res.Skipped != 2 {
		t.Errorf("second run appended %d, skipped %d; want 0, 2", res.Appended, res.Skipped)
	}
}

func TestAppendMissing_Errors(t *testing.T) {
	dir := t.TempDir()
	entries := []reference.Entry{{ID: "a", Type: "book"}}

	tests := []struct {
		name string
		path string
		to   format.Format
	}{
		{"no output", "", format.BibTeX},
		{"stdout", fileio.Stdio, format.BibTeX},
		{"not bibtex family", filepath.Join(dir, "refs.ris"), format.RIS},
		{"compressed", filepath.Join(dir, "refs.bib.br"), format.BibTeX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := appendMissing(tt.path, entries, tt.to, format.DefaultOptions()); err == nil {
				t.Error("appendMissing() succeeded, want error")
			}
		})
	}
}

func TestRefineByAuthor(t *testing.T) {
	entries := []reference.Entry{
		{ID: "a", Author: []reference.Person{{Given: "Timothy C", Family: "Yu"}}},
		{ID: "b", Author: []reference.Person{{Given: "Wei", Family: "Yujia"}}},
		{ID: "c", Editor: []reference.Person{{Given: "Tim", Family: "Yu"}}, Author: []reference.Person{{Family: "Matsen"}}},
	}

	tests := []struct {
		name    string
		authors []string
		limit   int
		want    []string
	}{
		{"no authors keeps all", nil, 0, []string{"a", "b", "c"}},
		{"family is exact", []string{"Yu"}, 0, []string{"a", "c"}},
		{"given is prefix", []string{"Tim Yu"}, 0, []string{"a", "c"}},
		{"and logic", []string{"Yu", "Matsen"}, 0, []string{"c"}},
		{"limit", []string{"Yu"}, 1, []string{"a"}},
		{"no match", []string{"Nobody"}, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := refineByAuthor(entries, tt.authors, tt.limit)
			if got == nil {
				t.Fatal("refineByAuthor() returned nil")
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("refineByAuthor() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestCanonicalInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"array passes through", `[{"id":"a"}]`, `[{"id":"a"}]`},
		{"single entry passes through", `{"id":"a","type":"book"}`, `{"id":"a","type":"book"}`},
		{"parse result unwrapped", `{"entries":[{"id":"a"}],"warnings":[]}`, `[{"id":"a"}]`},
		{"invalid passes through", `{"entries":`, `{"entries":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canonicalInput(tt.input); got != tt.want {
				t.Errorf("canonicalInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(*config.Config) bool
	}{
		{"export-format", "ris", false, func(c *config.Config) bool { return c.ExportFormat == "ris" }},
		{"export-format", "docx", true, nil},
		{"sort", "true", false, func(c *config.Config) bool { return c.Sort != nil && *c.Sort }},
		{"sort", "maybe", true, nil},
		{"indent", "4", false, func(c *config.Config) bool { return c.Indent == "    " }},
		{"indent", "tab", false, func(c *config.Config) bool { return c.Indent == "\t" }},
		{"indent", "0", true, nil},
		{"line-ending", "crlf", false, func(c *config.Config) bool { return c.LineEnding == "crlf" }},
		{"line-ending", "cr", true, nil},
		{"pdf-root", "/tmp", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &config.Config{}
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setConfigValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("setConfigValue(%q, %q) left config %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	for _, in := range []string{"line-ending", "line_ending", "Line_Ending", "LINE-ENDING"} {
		if got := normalizeKey(in); got != "line-ending" {
			t.Errorf("normalizeKey(%q) = %q", in, got)
		}
	}
}

func TestFormatWarning(t *testing.T) {
	w := format.Warning{
		Severity: format.SeverityWarning,
		Message:  "unknown month",
		EntryID:  "smith2024",
		Record:   2,
		Field:    "month",
	}
	want := "warning: record 2 [smith2024] month: unknown month"
	if got := formatWarning(w); got != want {
		t.Errorf("formatWarning() = %q, want %q", got, want)
	}

	if got := formatWarning(format.Warning{Severity: format.SeverityError, Message: "no records"}); got != "error: no records" {
		t.Errorf("formatWarning() = %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("Über lange Überschriften", 10); got != "Über la..." {
		t.Errorf("truncateString() = %q", got)
	}
}

func TestCountActions(t *testing.T) {
	existing := []reference.Entry{
		{ID: "a", Type: "book", Fields: map[string]string{reference.FieldDOI: "10.1/a"}},
	}
	incoming := []reference.Entry{
		{ID: "x", Type: "book", Fields: map[string]string{reference.FieldDOI: "10.1/A"}},
		{ID: "a", Type: "book"},
		{ID: "b", Type: "book"},
	}

	imported, updated := countActions(storage.PlanImport(existing, incoming))
	if imported != 2 || updated != 1 {
		t.Errorf("countActions() = %d, %d; want 2, 1", imported, updated)
	}
}

func TestInitLibrary(t *testing.T) {
	root := t.TempDir()
	if err := initLibrary(root); err != nil {
		t.Fatalf("initLibrary() error = %v", err)
	}

	if !config.IsLibrary(root) {
		t.Fatal("IsLibrary() = false after init")
	}
	if _, err := os.Stat(config.EntriesPath(root)); err != nil {
		t.Errorf("entries file: %v", err)
	}
	if info, err := os.Stat(config.CachePath(root)); err != nil || !info.IsDir() {
		t.Errorf("cache dir: %v", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExportFormat != "bibtex" {
		t.Errorf("ExportFormat = %q, want bibtex", cfg.ExportFormat)
	}

	entries, err := storage.ReadAll(config.EntriesPath(root))
	if err != nil || len(entries) != 0 {
		t.Errorf("ReadAll() = %v, %v; want empty", entries, err)
	}
}

func TestKeywordOnly(t *testing.T) {
	tests := []struct {
		name    string
		filters storage.SearchFilters
		want    bool
	}{
		{"keyword", storage.SearchFilters{Keyword: "phylogenetics"}, true},
		{"keyword and year", storage.SearchFilters{Keyword: "phylogenetics", YearFrom: 2020}, false},
		{"author only", storage.SearchFilters{Authors: []string{"Matsen"}}, false},
		{"empty", storage.SearchFilters{}, false},
	}
	for _, tt := range tests {
		if got := keywordOnly(tt.filters); got != tt.want {
			t.Errorf("%s: keywordOnly() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestListHeading(t *testing.T) {
	tests := []struct {
		total, shown int
		want         string
	}{
		{0, 0, "No entries in library"},
		{5, 5, "5 entries in library:"},
		{5, 2, "5 entries (showing first 2):"},
	}
	for _, tt := range tests {
		if got := listHeading(tt.total, tt.shown); got != tt.want {
			t.Errorf("listHeading(%d, %d) = %q, want %q", tt.total, tt.shown, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short", 10, "  "); got != "short" {
		t.Errorf("wrapText(short) = %q", got)
	}
	got := wrapText("one two three four", 9, "> ")
	if want := "one two\n> three\n> four"; got != want {
		t.Errorf("wrapText() = %q, want %q", got, want)
	}
}

func TestPrintEntryDetail(t *testing.T) {
	e := reference.Entry{
		ID:     "smith2024",
		Type:   "article-journal",
		Author: []reference.Person{{Given: "John", Family: "Smith"}, {Literal: "The Research Team"}},
		Issued: reference.NewDate(2024, 3, 0),
		Fields: map[string]string{
			reference.FieldTitle:          "Deep Learning",
			reference.FieldContainerTitle: "Nature",
			reference.FieldDOI:            "10.1234/example",
		},
	}

	var buf bytes.Buffer
	printEntryDetail(&buf, e)
	out := buf.String()
	for _, want := range []string{
		"smith2024 (article-journal)\n",
		"Title:    Deep Learning\n",
		"Authors:  John Smith, The Research Team\n",
		"Venue:    Nature\n",
		"Date:     2024-03\n",
		"DOI:      10.1234/example\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printEntryDetail() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Editors:") || strings.Contains(out, "Abstract:") {
		t.Errorf("printEntryDetail() printed empty sections:\n%s", out)
	}
}
