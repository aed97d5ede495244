package dates

import (
	"reflect"
	"testing"

	"github.com/matsen/bibhub/internal/reference"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *reference.Date
	}{
		{"year", "2024", &reference.Date{DateParts: [][]int{{2024}}}},
		{"year month", "2024-03", &reference.Date{DateParts: [][]int{{2024, 3}}}},
		{"full date", "2024-03-15", &reference.Date{DateParts: [][]int{{2024, 3, 15}}}},
		{"range", "2024-03-15/2024-03-20", &reference.Date{DateParts: [][]int{{2024, 3, 15}, {2024, 3, 20}}}},
		{"year range", "2019/2020", &reference.Date{DateParts: [][]int{{2019}, {2020}}}},
		{"month name year", "March 2024", &reference.Date{DateParts: [][]int{{2024, 3}}}},
		{"abbreviated month", "Sep. 2021", &reference.Date{DateParts: [][]int{{2021, 9}}}},
		{"day month year", "15 March 2024", &reference.Date{DateParts: [][]int{{2024, 3, 15}}}},
		{"month day year", "March 15, 2024", &reference.Date{DateParts: [][]int{{2024, 3, 15}}}},
		{"leap day", "2024-02-29", &reference.Date{DateParts: [][]int{{2024, 2, 29}}}},
		{"invalid", "invalid date", &reference.Date{Raw: "invalid date"}},
		{"invalid month", "2024-13", &reference.Date{Raw: "2024-13"}},
		{"day past month end", "2024-02-30", &reference.Date{Raw: "2024-02-30"}},
		{"leap day in common year", "2023-02-29", &reference.Date{Raw: "2023-02-29"}},
		{"april 31", "April 31, 2024", &reference.Date{Raw: "April 31, 2024"}},
		{"half range", "2024/someday", &reference.Date{Raw: "2024/someday"}},
		{"unknown month name", "Smarch 2024", &reference.Date{Raw: "Smarch 2024"}},
		{"empty", "", nil},
		{"blank", "  \t", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{1900, 2, 28},
		{2000, 2, 29},
		{2024, 4, 30},
		{2024, 12, 31},
		{2024, 0, 31},
	}
	for _, tt := range tests {
		if got := daysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("daysIn(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestParseBibTeX(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day string
		want             *reference.Date
	}{
		{"year only", "2024", "", "", reference.NewDate(2024, 0, 0)},
		{"month macro", "2024", "mar", "", reference.NewDate(2024, 3, 0)},
		{"month numeral", "2024", "3", "15", reference.NewDate(2024, 3, 15)},
		{"full month name", "2024", "March", "", reference.NewDate(2024, 3, 0)},
		{"uppercase month", "2024", "MAR", "", reference.NewDate(2024, 3, 0)},
		{"bad month dropped", "2024", "thirteen", "5", reference.NewDate(2024, 0, 0)},
		{"day past month end dropped", "2023", "feb", "29", reference.NewDate(2023, 2, 0)},
		{"non-numeric year", "forthcoming", "", "", &reference.Date{Raw: "forthcoming"}},
		{"no year", "", "mar", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBibTeX(tt.year, tt.month, tt.day)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseBibTeX(%q, %q, %q) = %+v, want %+v", tt.year, tt.month, tt.day, got, tt.want)
			}
		})
	}
}

func TestBibTeXMonthRoundTrip(t *testing.T) {
	d := ParseBibTeX("2024", "mar", "")
	got := SerializeBibTeX(d)
	want := BibTeXDate{Year: "2024", Month: "mar"}
	if got != want {
		t.Errorf("SerializeBibTeX() = %+v, want %+v", got, want)
	}

	full := SerializeBibTeX(reference.NewDate(2024, 3, 5))
	if full.Day != "05" {
		t.Errorf("SerializeBibTeX() day = %q, want 05", full.Day)
	}

	raw := SerializeBibTeX(&reference.Date{Raw: "in press"})
	if raw.Year != "in press" || raw.Month != "" {
		t.Errorf("SerializeBibTeX(raw) = %+v", raw)
	}
}

func TestParseRIS(t *testing.T) {
	tests := []struct {
		input string
		want  *reference.Date
	}{
		{"2024", reference.NewDate(2024, 0, 0)},
		{"2024/03", reference.NewDate(2024, 3, 0)},
		{"2024/03/15", reference.NewDate(2024, 3, 15)},
		{"2024/03/15/Spring", reference.NewDate(2024, 3, 15)},
		{"2024//", reference.NewDate(2024, 0, 0)},
		{"2024-03-15", reference.NewDate(2024, 3, 15)},
		{"Spring 2024", &reference.Date{Raw: "Spring 2024"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := ParseRIS(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseRIS(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		date *reference.Date
		iso  string
		ris  string
	}{
		{"year", reference.NewDate(2024, 0, 0), "2024", "2024"},
		{"month", reference.NewDate(2024, 3, 0), "2024-03", "2024/03"},
		{"day", reference.NewDate(2024, 3, 5), "2024-03-05", "2024/03/05"},
		{"range", reference.NewRange([]int{2024, 3, 15}, []int{2024, 3, 20}), "2024-03-15/2024-03-20", "2024/03/15"},
		{"raw", &reference.Date{Raw: "circa 1850"}, "circa 1850", "circa 1850"},
		{"nil", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Serialize(tt.date); got != tt.iso {
				t.Errorf("Serialize() = %q, want %q", got, tt.iso)
			}
			if got := SerializeRIS(tt.date); got != tt.ris {
				t.Errorf("SerializeRIS() = %q, want %q", got, tt.ris)
			}
		})
	}
}

func TestSerializeParseInverse(t *testing.T) {
	for _, input := range []string{"2024", "2024-03", "2024-03-15", "2024-03-15/2024-03-20"} {
		if got := Serialize(Parse(input)); got != input {
			t.Errorf("Serialize(Parse(%q)) = %q", input, got)
		}
	}
}

func TestYear(t *testing.T) {
	tests := []struct {
		date *reference.Date
		want int
	}{
		{reference.NewDate(1999, 1, 1), 1999},
		{&reference.Date{Raw: "1850?"}, 1850},
		{&reference.Date{Raw: "n.d."}, 0},
		{nil, 0},
	}

	for _, tt := range tests {
		if got := Year(tt.date); got != tt.want {
			t.Errorf("Year(%+v) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
