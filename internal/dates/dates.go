// Package dates parses and formats bibliographic dates.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/bibhub/internal/reference"
)

// BibTeXDate is a date split into BibTeX's year, month and day fields.
// Month is a three-letter macro name such as "mar".
type BibTeXDate struct {
	Year  string
	Month string
	Day   string
}

var monthMacros = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	isoRe        = regexp.MustCompile(`^(\d{4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?$`)
	monthYearRe  = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{4})$`)
	dayMonthRe   = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?,?\s+(\d{4})$`)
	monthDayRe   = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})$`)
	risDateRe    = regexp.MustCompile(`^(\d{4})(?:/(\d{0,2})(?:/(\d{0,2})(?:/.*)?)?)?/?$`)
	yearPrefixRe = regexp.MustCompile(`^\d{4}`)
)

// Parse parses ISO dates, "a/b" ranges and natural-language dates such as
// "March 2024" or "15 March 2024". Anything else becomes a raw date, and
// blank text yields nil.
func Parse(text string) *reference.Date {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	if parts, ok := parseSingle(s); ok {
		return &reference.Date{DateParts: [][]int{parts}}
	}

	if i := strings.Index(s, "/"); i > 0 {
		from, ok1 := parseSingle(strings.TrimSpace(s[:i]))
		to, ok2 := parseSingle(strings.TrimSpace(s[i+1:]))
		if ok1 && ok2 {
			return reference.NewRange(from, to)
		}
	}

	return &reference.Date{Raw: text}
}

func parseSingle(s string) ([]int, bool) {
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return build(m[2], strconv.Itoa(month), "")
		}
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[strings.ToLower(m[2])]; ok {
			return build(m[3], strconv.Itoa(month), m[1])
		}
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return build(m[3], strconv.Itoa(month), m[2])
		}
	}
	return nil, false
}

// build validates year, month and day strings and returns date parts.
// Empty month or day are omitted. The day must exist in its month.
func build(year, month, day string) ([]int, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil, false
	}
	m, d := 0, 0
	if month != "" {
		if m, err = strconv.Atoi(month); err != nil || m < 1 || m > 12 {
			return nil, false
		}
	}
	if day != "" {
		if d, err = strconv.Atoi(day); err != nil || d < 1 || d > daysIn(y, m) {
			return nil, false
		}
	}
	return reference.Parts(y, m, d), true
}

// daysIn returns the length of month m in year y, or 31 when m is unknown.
func daysIn(y, m int) int {
	if m < 1 || m > 12 {
		return 31
	}
	return time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseBibTeX builds a date from BibTeX's year, month and day fields.
// It returns nil when year is empty. Month may be a number or an English
// month name or abbreviation; a year that is not a number becomes a raw date.
func ParseBibTeX(year, month, day string) *reference.Date {
	year = strings.TrimSpace(year)
	if year == "" {
		return nil
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return Parse(year)
	}

	m := ParseMonth(month)
	d := 0
	if m > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(day)); err == nil && n >= 1 && n <= daysIn(y, m) {
			d = n
		}
	}
	return reference.NewDate(y, m, d)
}

// ParseMonth returns the month number for a numeral or English month name,
// or 0 when it is not recognized.
func ParseMonth(month string) int {
	s := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(month), "."))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	return monthNames[s]
}

// ParseRIS parses RIS dates: "YYYY", "YYYY/MM", "YYYY/MM/DD" and
// "YYYY/MM/DD/other". Empty components are allowed ("2024//").
func ParseRIS(text string) *reference.Date {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	if m := risDateRe.FindStringSubmatch(s); m != nil {
		if parts, ok := build(m[1], m[2], m[3]); ok {
			return &reference.Date{DateParts: [][]int{parts}}
		}
	}
	return Parse(s)
}

// Serialize formats a date as zero-padded ISO. Ranges are joined with "/"
// and raw dates are returned verbatim.
func Serialize(d *reference.Date) string {
	if d == nil {
		return ""
	}
	if len(d.DateParts) == 0 {
		return d.Raw
	}
	out := make([]string, 0, len(d.DateParts))
	for _, p := range d.DateParts {
		out = append(out, joinParts(p, "-"))
	}
	return strings.Join(out, "/")
}

// SerializeBibTeX splits the start of a date into BibTeX fields. A raw date
// goes into Year unchanged.
func SerializeBibTeX(d *reference.Date) BibTeXDate {
	if d == nil {
		return BibTeXDate{}
	}
	if len(d.DateParts) == 0 {
		return BibTeXDate{Year: d.Raw}
	}

	y, m, day := d.Start()
	out := BibTeXDate{Year: strconv.Itoa(y)}
	if m >= 1 && m <= 12 {
		out.Month = monthMacros[m-1]
	}
	if day > 0 {
		out.Day = fmt.Sprintf("%02d", day)
	}
	return out
}

// SerializeRIS formats the start of a date as "YYYY", "YYYY/MM" or
// "YYYY/MM/DD".
func SerializeRIS(d *reference.Date) string {
	if d == nil {
		return ""
	}
	if len(d.DateParts) == 0 {
		return d.Raw
	}
	return joinParts(d.DateParts[0], "/")
}

// Year returns the year a date starts in, or 0 if none can be determined.
func Year(d *reference.Date) int {
	if d == nil {
		return 0
	}
	if y, _, _ := d.Start(); y != 0 {
		return y
	}
	if m := yearPrefixRe.FindString(strings.TrimSpace(d.Raw)); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}

// MonthMacro returns the BibTeX macro for month 1-12, or "".
func MonthMacro(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthMacros[month-1]
}

func joinParts(p []int, sep string) string {
	out := make([]string, 0, len(p))
	for i, n := range p {
		if i == 0 {
			out = append(out, fmt.Sprintf("%04d", n))
		} else {
			out = append(out, fmt.Sprintf("%02d", n))
		}
	}
	return strings.Join(out, sep)
}
