package endnote

import (
	"errors"
	"regexp"
	"strings"
)

// EndNote exports are regular enough that records and their children can
// be located by tag name without a general XML parser. This also keeps a
// single malformed record from failing the whole document.

var errUnclosedRecord = errors.New("record not closed by </record>")

type recordBlock struct {
	body string
	err  error
}

// scanRecords returns the body of each <record> element in order. A record
// left open by the next <record> or by the end of input carries an error.
func scanRecords(s string) []recordBlock {
	var out []recordBlock
	for {
		i, inner := openTag(s, "record")
		if i < 0 {
			return out
		}
		end := strings.Index(inner, "</record>")
		next, _ := openTag(inner, "record")
		switch {
		case end < 0 && next < 0:
			return append(out, recordBlock{body: inner, err: errUnclosedRecord})
		case end < 0 || (next >= 0 && next < end):
			out = append(out, recordBlock{body: inner[:next], err: errUnclosedRecord})
			s = inner[next:]
		default:
			out = append(out, recordBlock{body: inner[:end]})
			s = inner[end+len("</record>"):]
		}
	}
}

// openTag finds the first <name> or <name attr...> start tag in s. It returns
// the tag's offset and the text after it, or -1. Self-closing tags are
// skipped.
func openTag(s, name string) (int, string) {
	prefix := "<" + name
	offset := 0
	for {
		i := strings.Index(s[offset:], prefix)
		if i < 0 {
			return -1, ""
		}
		i += offset
		rest := s[i+len(prefix):]
		if rest == "" {
			return -1, ""
		}
		switch rest[0] {
		case '>', ' ', '\t', '\n', '\r', '/':
		default:
			offset = i + len(prefix)
			continue
		}
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			return -1, ""
		}
		if strings.HasSuffix(rest[:gt], "/") {
			offset = i + len(prefix) + gt + 1
			continue
		}
		return i, rest[gt+1:]
	}
}

// elements returns the raw inner markup of every <name> element in s.
func elements(s, name string) []string {
	var out []string
	closing := "</" + name + ">"
	for {
		i, inner := openTag(s, name)
		if i < 0 {
			return out
		}
		j := strings.Index(inner, closing)
		if j < 0 {
			return out
		}
		out = append(out, inner[:j])
		s = inner[j+len(closing):]
	}
}

// element returns the raw inner markup of the first <name> element in s.
func element(s, name string) (string, bool) {
	all := elements(s, name)
	if len(all) == 0 {
		return "", false
	}
	return all[0], true
}

var (
	markupRe  = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`\s+`)
	unescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
)

// text strips nested markup such as <style> runs, decodes the five
// predefined entities and collapses whitespace.
func text(markup string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(unescaper.Replace(markupRe.ReplaceAllString(markup, "")), " "))
}

// blockText is text for long fields: line breaks survive, runs of blanks
// on a line do not.
func blockText(markup string) string {
	lines := strings.Split(unescaper.Replace(markupRe.ReplaceAllString(markup, "")), "\n")
	out := lines[:0]
	for _, ln := range lines {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

var refTypeNameRe = regexp.MustCompile(`<ref-type\s[^>]*\bname\s*=\s*"([^"]*)"`)

// refTypeName returns the name attribute of the first <ref-type> tag.
func refTypeName(s string) string {
	if m := refTypeNameRe.FindStringSubmatch(s); m != nil {
		return unescaper.Replace(m[1])
	}
	return ""
}
