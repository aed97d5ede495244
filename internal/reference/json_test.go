package reference

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFlexibleString_String(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string year", `"2026"`, "2026"},
		{"number year", `2026`, "2026"},
		{"null value", `null`, ""},
		{"float number", `2026.0`, "2026.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			if got := f.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlexibleString_InvalidInput(t *testing.T) {
	for _, input := range []string{`[1,2,3]`, `{"key": "value"}`} {
		var f FlexibleString
		if err := json.Unmarshal([]byte(input), &f); err == nil {
			t.Errorf("UnmarshalJSON() expected error for input %s", input)
		}
	}
}

func TestEntry_MarshalJSON_WireNames(t *testing.T) {
	e := Entry{
		ID:   "Neumann1945",
		Type: "report",
		Author: []Person{
			{Family: "Neumann", Given: "John", NonDroppingParticle: "von"},
		},
		Issued: NewDate(1945, 6, 30),
		Fields: map[string]string{
			FieldTitle:          "First Draft of a Report on the EDVAC",
			FieldContainerTitle: "Moore School",
			FieldDOI:            "10.1109/85.238389",
		},
		FormatMetadata: &FormatMetadata{Source: "bibtex", OriginalType: "techreport"},
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)

	if !strings.HasPrefix(got, `{"id":"Neumann1945","type":"report",`) {
		t.Errorf("Marshal() should lead with id and type, got %s", got)
	}
	for _, want := range []string{
		`"non-dropping-particle":"von"`,
		`"date-parts":[[1945,6,30]]`,
		`"container-title":"Moore School"`,
		`"DOI":"10.1109/85.238389"`,
		`"_formatMetadata":{"source":"bibtex","originalType":"techreport"}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Marshal() missing %s in %s", want, got)
		}
	}
}

func TestEntry_UnmarshalJSON_FlexibleValues(t *testing.T) {
	input := `{
		"id": "Doe2020",
		"type": "article-journal",
		"title": "Flexible",
		"volume": 12,
		"keyword": ["alpha", "beta"],
		"issued": {"date-parts": [["2020", "5"]]},
		"accessed": "last spring",
		"custom": {"ignored": true}
	}`

	var e Entry
	if err := json.Unmarshal([]byte(input), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if e.Get(FieldVolume) != "12" {
		t.Errorf("volume = %q, want 12", e.Get(FieldVolume))
	}
	if e.Get(FieldKeyword) != "alpha, beta" {
		t.Errorf("keyword = %q, want \"alpha, beta\"", e.Get(FieldKeyword))
	}
	if y, m, _ := e.Issued.Start(); y != 2020 || m != 5 {
		t.Errorf("issued = %v, want 2020-05", e.Issued)
	}
	if !e.Accessed.IsRaw() || e.Accessed.Raw != "last spring" {
		t.Errorf("accessed = %+v, want raw", e.Accessed)
	}
	if e.Has("custom") {
		t.Error("object-valued field should be ignored")
	}
}

func TestEntry_JSONRoundTrip(t *testing.T) {
	orig := Entry{
		ID:         "Team2023",
		Type:       "dataset",
		Author:     []Person{{Literal: "The Research Team"}},
		Translator: []Person{{Family: "Dupont", Given: "Marie"}},
		Issued:     NewRange([]int{2023}, []int{2024}),
		Fields: map[string]string{
			FieldTitle: "Measurements",
			FieldURL:   "https://example.org/data?id=1&v=2",
		},
		FormatMetadata: &FormatMetadata{
			Source:       "biblatex",
			OriginalType: "dataset",
			CustomFields: map[string]string{"version": "2"},
		},
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.ID != orig.ID || got.Type != orig.Type {
		t.Errorf("identity = %s/%s, want %s/%s", got.ID, got.Type, orig.ID, orig.Type)
	}
	if got.Author[0].Literal != "The Research Team" {
		t.Errorf("author literal = %q", got.Author[0].Literal)
	}
	if !got.Issued.IsRange() {
		t.Errorf("issued = %+v, want range", got.Issued)
	}
	if got.Get(FieldURL) != orig.Get(FieldURL) {
		t.Errorf("URL = %q, want %q", got.Get(FieldURL), orig.Get(FieldURL))
	}
	if got.CustomFields()["version"] != "2" {
		t.Errorf("customFields = %v", got.CustomFields())
	}
}
