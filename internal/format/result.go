package format

import (
	"github.com/matsen/bibhub/internal/reference"
)

// Severity grades a warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Warning kinds.
const (
	WarnParseError      = "parse-error"
	WarnUnknownMacro    = "unknown-macro"
	WarnMissingID       = "missing-id"
	WarnUnknownType     = "unknown-type"
	WarnLossyConversion = "lossy-conversion"
)

// Warning describes a problem found while parsing or generating.
// Warnings are data: nothing in the conversion core aborts on them.
type Warning struct {
	Severity Severity `json:"severity"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	EntryID  string   `json:"entryId,omitempty"`
	Record   int      `json:"record,omitempty"` // 1-based position in the source
	Field    string   `json:"field,omitempty"`
}

// Stats counts the records seen by a parser.
type Stats struct {
	Total        int `json:"total"`
	Successful   int `json:"successful"`
	WithWarnings int `json:"withWarnings"`
	Failed       int `json:"failed"`
}

// ParseResult is the outcome of parsing one document.
type ParseResult struct {
	Entries  []reference.Entry `json:"entries"`
	Warnings []Warning         `json:"warnings"`
	Stats    Stats             `json:"stats"`
}

// HasErrors reports whether any warning has error severity.
func (r ParseResult) HasErrors() bool {
	for _, w := range r.Warnings {
		if w.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Collector accumulates records into a ParseResult and keeps Stats in step.
type Collector struct {
	result ParseResult
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{result: ParseResult{
		Entries:  []reference.Entry{},
		Warnings: []Warning{},
	}}
}

// Add records a successfully parsed entry with any record-level warnings.
func (c *Collector) Add(e reference.Entry, warnings []Warning) {
	c.result.Stats.Total++
	c.result.Stats.Successful++
	if len(warnings) > 0 {
		c.result.Stats.WithWarnings++
		c.result.Warnings = append(c.result.Warnings, warnings...)
	}
	c.result.Entries = append(c.result.Entries, e)
}

// Fail records a dropped record.
func (c *Collector) Fail(record int, entryID, message string) {
	c.result.Stats.Total++
	c.result.Stats.Failed++
	c.result.Warnings = append(c.result.Warnings, Warning{
		Severity: SeverityError,
		Type:     WarnParseError,
		Message:  message,
		EntryID:  entryID,
		Record:   record,
	})
}

// Warn records a document-level warning that belongs to no record.
func (c *Collector) Warn(w Warning) {
	c.result.Warnings = append(c.result.Warnings, w)
}

// Total returns the number of records seen so far.
func (c *Collector) Total() int {
	return c.result.Stats.Total
}

// Result returns the accumulated result.
func (c *Collector) Result() ParseResult {
	return c.result
}

// NoRecords builds the result for non-blank input in which no record could
// be located.
func NoRecords(f Format) ParseResult {
	c := NewCollector()
	c.Warn(Warning{
		Severity: SeverityError,
		Type:     WarnParseError,
		Message:  "no " + string(f) + " records found",
	})
	return c.Result()
}
