package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// structuredKeys are JSON keys that never live in Entry.Fields.
var structuredKeys = map[string]bool{
	"id":              true,
	"type":            true,
	FieldAuthor:       true,
	FieldEditor:       true,
	FieldTranslator:   true,
	FieldIssued:       true,
	FieldAccessed:     true,
	"_formatMetadata": true,
}

// MarshalJSON writes the canonical wire form: id and type first, then
// contributors, dates, scalar fields in sorted order and provenance last.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true

	write := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	if err := write("id", e.ID); err != nil {
		return nil, err
	}
	if err := write("type", e.Type); err != nil {
		return nil, err
	}

	for _, role := range []string{FieldAuthor, FieldEditor, FieldTranslator} {
		if ps := e.Names(role); len(ps) > 0 {
			if err := write(role, ps); err != nil {
				return nil, err
			}
		}
	}
	if e.Issued != nil {
		if err := write(FieldIssued, e.Issued); err != nil {
			return nil, err
		}
	}
	if e.Accessed != nil {
		if err := write(FieldAccessed, e.Accessed); err != nil {
			return nil, err
		}
	}

	for _, name := range e.FieldNames() {
		if structuredKeys[name] {
			continue
		}
		if err := write(name, e.Fields[name]); err != nil {
			return nil, err
		}
	}

	if e.FormatMetadata != nil {
		if err := write("_formatMetadata", e.FormatMetadata); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the canonical wire form. Scalar fields may be strings
// or numbers; keyword arrays are joined with ", "; values of other shapes are
// ignored.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Entry
	for key, value := range raw {
		var err error
		switch key {
		case "id":
			var id FlexibleString
			err = json.Unmarshal(value, &id)
			out.ID = id.String()
		case "type":
			err = json.Unmarshal(value, &out.Type)
		case FieldAuthor:
			err = json.Unmarshal(value, &out.Author)
		case FieldEditor:
			err = json.Unmarshal(value, &out.Editor)
		case FieldTranslator:
			err = json.Unmarshal(value, &out.Translator)
		case FieldIssued:
			out.Issued, err = unmarshalDate(value)
		case FieldAccessed:
			out.Accessed, err = unmarshalDate(value)
		case "_formatMetadata":
			var md FormatMetadata
			err = json.Unmarshal(value, &md)
			out.FormatMetadata = &md
		default:
			if s, ok := scalarValue(value); ok && s != "" {
				if out.Fields == nil {
					out.Fields = make(map[string]string)
				}
				out.Fields[key] = s
			}
		}
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	*e = out
	return nil
}

func scalarValue(data json.RawMessage) (string, bool) {
	var f FlexibleString
	if err := json.Unmarshal(data, &f); err == nil {
		return f.String(), true
	}
	var list []FlexibleString
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				parts = append(parts, s.String())
			}
		}
		return strings.Join(parts, ", "), true
	}
	return "", false
}

// wireDate accepts CSL's looser date shapes: string parts and "literal".
type wireDate struct {
	DateParts [][]FlexibleString `json:"date-parts"`
	Raw       string             `json:"raw"`
	Literal   string             `json:"literal"`
}

func unmarshalDate(data json.RawMessage) (*Date, error) {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		return nil, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &Date{Raw: s}, nil
	}

	var w wireDate
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, err
	}

	d := &Date{Raw: w.Raw}
	if d.Raw == "" {
		d.Raw = w.Literal
	}
	for _, part := range w.DateParts {
		var ints []int
		for _, p := range part {
			n, err := strconv.Atoi(strings.TrimSpace(p.String()))
			if err != nil {
				return nil, fmt.Errorf("invalid date part %q", p.String())
			}
			ints = append(ints, n)
		}
		if len(ints) > 0 {
			d.DateParts = append(d.DateParts, ints)
		}
	}
	if len(d.DateParts) > 0 {
		d.Raw = ""
	}
	return d, nil
}
