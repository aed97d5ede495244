package reference

// Date is either a list of date parts or an unparsed string.
//
// DateParts holds one element for a single date and two for a range. Each
// element is year, optionally followed by month and day.
type Date struct {
	DateParts [][]int `json:"date-parts,omitempty"`
	Raw       string  `json:"raw,omitempty"`
}

// NewDate builds a single date from year, month and day. Zero month or day
// are omitted, and a zero month drops the day as well.
func NewDate(year, month, day int) *Date {
	return &Date{DateParts: [][]int{Parts(year, month, day)}}
}

// NewRange builds a two-element range date.
func NewRange(from, to []int) *Date {
	return &Date{DateParts: [][]int{from, to}}
}

// Parts builds one date-parts element.
func Parts(year, month, day int) []int {
	p := []int{year}
	if month > 0 {
		p = append(p, month)
		if day > 0 {
			p = append(p, day)
		}
	}
	return p
}

// IsRaw reports whether the date carries only an unparsed string.
func (d *Date) IsRaw() bool {
	return d != nil && len(d.DateParts) == 0 && d.Raw != ""
}

// IsRange reports whether the date has a start and an end.
func (d *Date) IsRange() bool {
	return d != nil && len(d.DateParts) == 2
}

// Start returns year, month and day of the first element. Missing parts are 0.
func (d *Date) Start() (year, month, day int) {
	if d == nil || len(d.DateParts) == 0 {
		return 0, 0, 0
	}
	return unpack(d.DateParts[0])
}

// End returns year, month and day of the range end, or of the single date.
func (d *Date) End() (year, month, day int) {
	if d == nil || len(d.DateParts) == 0 {
		return 0, 0, 0
	}
	return unpack(d.DateParts[len(d.DateParts)-1])
}

// Clone returns a deep copy, or nil.
func (d *Date) Clone() *Date {
	if d == nil {
		return nil
	}
	out := &Date{Raw: d.Raw}
	if d.DateParts != nil {
		out.DateParts = make([][]int, len(d.DateParts))
		for i, p := range d.DateParts {
			out.DateParts[i] = append([]int(nil), p...)
		}
	}
	return out
}

func unpack(p []int) (year, month, day int) {
	if len(p) > 0 {
		year = p[0]
	}
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return year, month, day
}
