package bibtex

import (
	"errors"
	"fmt"
	"strings"
)

// block is one @-introduced unit of a document: an entry, @string,
// @comment or @preamble.
type block struct {
	kind    string // lowercase
	rawKind string // as written
	body    string // text between the delimiters
	line    int    // line of the '@', 1-based
	err     error  // set when the block is unterminated
}

var errUnterminated = errors.New("unterminated entry")

// scanBlocks splits a document into blocks. Text outside blocks is ignored,
// and a '%' outside blocks comments out the rest of its line. An
// unterminated block ends at the next "@type{" that starts a line or follows
// whitespace at field level, or at the end of input, and carries
// errUnterminated.
func scanBlocks(text string) []block {
	var blocks []block
	i := 0
	for i < len(text) {
		at := strings.IndexAny(text[i:], "@%")
		if at < 0 {
			break
		}
		at += i
		if text[at] == '%' {
			nl := strings.IndexByte(text[at:], '\n')
			if nl < 0 {
				break
			}
			i = at + nl + 1
			continue
		}

		j := at + 1
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		kind := text[at+1 : j]
		k := skipBlank(text, j)
		if kind == "" || k >= len(text) || (text[k] != '{' && text[k] != '(') {
			i = j
			continue
		}

		b := block{
			kind:    strings.ToLower(kind),
			rawKind: kind,
			line:    strings.Count(text[:at], "\n") + 1,
		}
		end, ok := findClose(text, k)
		if ok {
			b.body = text[k+1 : end]
			i = end + 1
		} else {
			b.body = text[k+1 : end]
			b.err = errUnterminated
			i = end
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// findClose returns the index of the delimiter closing the one at open.
// When the block is unterminated it returns the recovery point and false.
func findClose(text string, open int) (int, bool) {
	closer := byte('}')
	base := 1
	if text[open] == '(' {
		closer = ')'
		base = 0
	}

	depth := base
	inQuote := false
	for p := open + 1; p < len(text); p++ {
		c := text[p]
		switch {
		case c == '\\':
			p++
		case c == '\n':
			if q := skipInline(text, p+1); startsBlock(text, q) {
				return q, false
			}
		case c == '@' && depth == base && !inQuote && isSpace(text[p-1]) && startsBlock(text, p):
			return p, false
		case c == '%' && depth == base && !inQuote:
			if nl := strings.IndexByte(text[p:], '\n'); nl >= 0 {
				p += nl - 1
			} else {
				p = len(text)
			}
		case c == '"' && depth == base:
			inQuote = !inQuote
		case c == '{':
			depth++
		case c == '}':
			depth--
			if closer == '}' && depth == 0 {
				return p, true
			}
			if depth < 0 {
				return p, false
			}
		case c == ')' && closer == ')' && depth == 0 && !inQuote:
			return p, true
		}
	}
	return len(text), false
}

// startsBlock reports whether text[p:] looks like "@word{" or "@word(".
func startsBlock(text string, p int) bool {
	if p >= len(text) || text[p] != '@' {
		return false
	}
	j := p + 1
	for j < len(text) && isIdentByte(text[j]) {
		j++
	}
	if j == p+1 {
		return false
	}
	j = skipInline(text, j)
	return j < len(text) && (text[j] == '{' || text[j] == '(')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipBlank(s string, p int) int {
	for p < len(s) && (s[p] == ' ' || s[p] == '\t' || s[p] == '\n' || s[p] == '\r') {
		p++
	}
	return p
}

func skipInline(s string, p int) int {
	for p < len(s) && (s[p] == ' ' || s[p] == '\t' || s[p] == '\r') {
		p++
	}
	return p
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

// part is one operand of a '#'-concatenated field value.
type part struct {
	text  string
	macro bool // bare identifier to be resolved against @string definitions
}

type rawField struct {
	name  string
	parts []part
}

// body is a parsed entry body.
type body struct {
	key    string
	fields []rawField
}

// cursor walks an entry body.
type cursor struct {
	s string
	p int
}

func (c *cursor) eof() bool { return c.p >= len(c.s) }

func (c *cursor) peek() byte { return c.s[c.p] }

// skip advances over whitespace and %-comments.
func (c *cursor) skip() {
	for !c.eof() {
		switch c.peek() {
		case ' ', '\t', '\n', '\r':
			c.p++
		case '%':
			if nl := strings.IndexByte(c.s[c.p:], '\n'); nl >= 0 {
				c.p += nl + 1
			} else {
				c.p = len(c.s)
			}
		default:
			return
		}
	}
}

// parseEntryBody parses "key, name = value, ...".
// A body whose first segment contains '=' has no key.
func parseEntryBody(s string) (body, error) {
	c := &cursor{s: s}
	c.skip()

	var b body
	start := c.p
	end := strings.IndexByte(s[start:], ',')
	if end < 0 {
		end = len(s)
	} else {
		end += start
	}
	key := strings.TrimSpace(s[start:end])
	switch {
	case strings.ContainsAny(key, "={}\""):
		// No key; fields start immediately.
	case strings.ContainsAny(key, " \t\n\r"):
		return b, fmt.Errorf("invalid citation key %q", key)
	default:
		b.key = key
		c.p = end
	}

	fields, err := parseAssignments(c)
	b.fields = fields
	return b, err
}

// parseAssignments parses a comma-separated list of name = value pairs.
func parseAssignments(c *cursor) ([]rawField, error) {
	var fields []rawField
	for {
		c.skip()
		if c.eof() {
			return fields, nil
		}
		if c.peek() == ',' {
			c.p++
			continue
		}

		start := c.p
		for !c.eof() && isFieldNameByte(c.peek()) {
			c.p++
		}
		name := c.s[start:c.p]
		if name == "" {
			return fields, fmt.Errorf("unexpected %q in entry body", c.peek())
		}

		c.skip()
		if c.eof() || c.peek() != '=' {
			return fields, fmt.Errorf("expected '=' after field %q", name)
		}
		c.p++

		var parts []part
		for {
			c.skip()
			p, err := c.readPart()
			if err != nil {
				return fields, fmt.Errorf("field %q: %w", name, err)
			}
			parts = append(parts, p)
			c.skip()
			if !c.eof() && c.peek() == '#' {
				c.p++
				continue
			}
			break
		}

		c.skip()
		if !c.eof() && c.peek() != ',' {
			return fields, fmt.Errorf("expected ',' after field %q", name)
		}
		fields = append(fields, rawField{name: name, parts: parts})
	}
}

func (c *cursor) readPart() (part, error) {
	if c.eof() {
		return part{}, errors.New("missing value")
	}
	switch ch := c.peek(); {
	case ch == '{':
		end := matchBrace(c.s, c.p)
		if end < 0 {
			return part{}, errors.New("unbalanced braces")
		}
		text := c.s[c.p+1 : end]
		c.p = end + 1
		return part{text: text}, nil
	case ch == '"':
		depth := 0
		for q := c.p + 1; q < len(c.s); q++ {
			switch c.s[q] {
			case '\\':
				q++
			case '{':
				depth++
			case '}':
				depth--
			case '"':
				if depth == 0 {
					text := c.s[c.p+1 : q]
					c.p = q + 1
					return part{text: text}, nil
				}
			}
		}
		return part{}, errors.New("unterminated quoted value")
	case ch >= '0' && ch <= '9':
		start := c.p
		for !c.eof() && c.peek() >= '0' && c.peek() <= '9' {
			c.p++
		}
		return part{text: c.s[start:c.p]}, nil
	case isFieldNameByte(ch):
		start := c.p
		for !c.eof() && isFieldNameByte(c.peek()) {
			c.p++
		}
		return part{text: c.s[start:c.p], macro: true}, nil
	default:
		return part{}, fmt.Errorf("unexpected %q at start of value", ch)
	}
}

// matchBrace returns the index of the brace closing s[open], or -1.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isFieldNameByte(c byte) bool {
	return isIdentByte(c) || c == ':' || c == '.' || c == '+' || c == '/'
}
