package bibtex

import (
	"reflect"
	"testing"
)

func TestScanBlocks(t *testing.T) {
	input := `Some preamble text.
@String{foo = "bar"}
@article{a, title = {Nested {braces} here}}

@book(b, title = "Parens")
@article{c, title = {Unclosed
@misc{d, note = {ok}}
`
	blocks := scanBlocks(input)

	var kinds []string
	for _, b := range blocks {
		kinds = append(kinds, b.kind)
	}
	if want := []string{"string", "article", "book", "article", "misc"}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}

	if blocks[0].rawKind != "String" {
		t.Errorf("rawKind = %q, want String", blocks[0].rawKind)
	}
	if blocks[1].body != "a, title = {Nested {braces} here}" {
		t.Errorf("body = %q", blocks[1].body)
	}
	if blocks[2].line != 5 {
		t.Errorf("line = %d, want 5", blocks[2].line)
	}
	if blocks[3].err != errUnterminated {
		t.Errorf("err = %v, want errUnterminated", blocks[3].err)
	}
	if blocks[4].err != nil || blocks[4].body != "d, note = {ok}" {
		t.Errorf("recovered block = %+v", blocks[4])
	}
}

func TestScanBlocks_IgnoresStrayAt(t *testing.T) {
	blocks := scanBlocks("mail me at user@example.com\n@article{x, title={T}}")
	if len(blocks) != 1 || blocks[0].kind != "article" {
		t.Errorf("scanBlocks() = %+v", blocks)
	}
}

func TestScanBlocks_LineComments(t *testing.T) {
	blocks := scanBlocks("% @article{old, title={Old}}\n@book{b, title={B}} % trailing @misc{x}\n%")
	if len(blocks) != 1 || blocks[0].kind != "book" {
		t.Errorf("scanBlocks() = %+v", blocks)
	}
}

func TestScanBlocks_InlineRecovery(t *testing.T) {
	blocks := scanBlocks("@article{a, title={A} @misc{b, note={in {braces} @book{x}}}")
	if len(blocks) != 2 {
		t.Fatalf("scanBlocks() = %+v", blocks)
	}
	if blocks[0].err != errUnterminated || blocks[1].kind != "misc" || blocks[1].err != nil {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestParseEntryBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		key     string
		fields  []string
		wantErr bool
	}{
		{"key and fields", "k1, title = {T}, year = 2020,", "k1", []string{"title", "year"}, false},
		{"no key", "title = {T}", "", []string{"title"}, false},
		{"key only", "k2", "k2", nil, false},
		{"concatenation", `k3, note = "a" # mac # {b}`, "k3", []string{"note"}, false},
		{"comment inside", "k4, % note\n title = {T}", "k4", []string{"title"}, false},
		{"key with space", "bad key, title = {T}", "", nil, true},
		{"missing equals", "k5, title {T}", "k5", nil, true},
		{"unterminated quote", `k6, title = "T`, "k6", nil, true},
		{"missing comma", "k7, title = {T} year = 2020", "k7", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseEntryBody(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEntryBody(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if b.key != tt.key {
				t.Errorf("key = %q, want %q", b.key, tt.key)
			}
			var names []string
			for _, f := range b.fields {
				names = append(names, f.name)
			}
			if !reflect.DeepEqual(names, tt.fields) {
				t.Errorf("fields = %v, want %v", names, tt.fields)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	macros := map[string]string{"jn": "Nature"}
	parts := []part{{text: "JN", macro: true}, {text: " and "}, {text: "jan", macro: true}, {text: "nope", macro: true}}

	got, undefined := resolve(parts, macros)
	if got != "Nature and jannope" {
		t.Errorf("resolve() = %q", got)
	}
	if !reflect.DeepEqual(undefined, []string{"nope"}) {
		t.Errorf("undefined = %v, want [nope]", undefined)
	}
}
