// Package names parses free-text personal and corporate names into
// structured persons and serializes them back.
package names

import (
	"strings"

	"github.com/matsen/bibhub/internal/reference"
)

// Style selects the serialization order of a name.
type Style int

const (
	// StyleBibTeX is "[particles] Family, Given[, Suffix]".
	StyleBibTeX Style = iota
	// StyleNatural is "Given [particles] Family[, Suffix]".
	StyleNatural
)

// particles is the closed list of lowercase family-name prefixes.
var particles = map[string]bool{
	"von": true, "van": true, "de": true, "di": true, "del": true,
	"della": true, "da": true, "le": true, "la": true, "el": true,
	"al": true, "bin": true, "ibn": true, "ter": true, "op": true,
	"aan": true, "dos": true, "das": true,
}

var suffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
	"v": true, "vi": true, "esq": true, "phd": true, "md": true,
}

// Parse parses a single name.
//
// Supported forms:
//   - "{The Research Team}"     → literal
//   - "von Neumann, John"       → family, given, particle
//   - "King, Jr., Martin"       → family, suffix, given
//   - "Ludwig van Beethoven"    → given, particle, family
//   - "Martin Luther King Jr."  → given, family, suffix
//
// Parse never fails: input with no usable family or given part becomes a
// literal.
func Parse(raw string) reference.Person {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return reference.Person{}
	}

	if s[0] == '{' && closingBrace(s, 0) == len(s)-1 {
		return reference.Person{Literal: strings.TrimSpace(s[1 : len(s)-1])}
	}

	var p reference.Person
	if parts := splitDepth0(s, ","); len(parts) > 1 {
		p = parseCommaForm(parts)
	} else {
		p = parseNatural(tokens(s))
	}

	if p.Family == "" && p.Given == "" {
		return reference.Person{Literal: s}
	}
	return p
}

func parseCommaForm(parts []string) reference.Person {
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var p reference.Person
	switch {
	case len(parts) == 2:
		p.Given = parts[1]
	case isSuffix(parts[1]):
		p.Suffix = parts[1]
		p.Given = strings.Join(parts[2:], ", ")
	default:
		p.Given = parts[1]
		p.Suffix = strings.Join(parts[2:], ", ")
	}

	toks := tokens(parts[0])
	start, end := particleRun(toks, 0, len(toks)-1)
	if end > start {
		p.NonDroppingParticle = strings.Join(toks[start:end], " ")
	}
	p.Family = strings.Join(toks[end:], " ")
	return p
}

func parseNatural(toks []string) reference.Person {
	var p reference.Person

	// The first token is never a suffix, so at least one name token remains.
	kept := toks[:0:0]
	var sfx []string
	for i, tok := range toks {
		if i > 0 && isSuffix(tok) {
			sfx = append(sfx, tok)
			continue
		}
		kept = append(kept, tok)
	}
	p.Suffix = strings.Join(sfx, " ")

	if len(kept) == 0 {
		return p
	}
	if len(kept) == 1 {
		p.Family = kept[0]
		return p
	}

	last := len(kept) - 1
	first := last
	for i := 0; i < last; i++ {
		if particles[kept[i]] {
			first = i
			break
		}
	}
	if first == last {
		p.Given = strings.Join(kept[:last], " ")
		p.Family = kept[last]
		return p
	}

	start, end := particleRun(kept, first, last)
	p.Given = strings.Join(kept[:start], " ")
	p.NonDroppingParticle = strings.Join(kept[start:end], " ")
	p.Family = strings.Join(kept[end:], " ")
	return p
}

// particleRun returns the bounds of the particle run beginning at from.
// The run starts only on a listed particle, continues over lowercase tokens
// and never reaches limit, so at least one family token remains.
func particleRun(toks []string, from, limit int) (int, int) {
	if from >= len(toks) || from >= limit || !particles[toks[from]] {
		return from, from
	}
	end := from + 1
	for end < limit && isLower(toks[end]) {
		end++
	}
	return from, end
}

// Serialize formats a person in the given style.
func Serialize(p reference.Person, style Style) string {
	if p.IsLiteral() {
		if style == StyleBibTeX {
			return "{" + p.Literal + "}"
		}
		return p.Literal
	}

	family := joinNonEmpty(" ", p.Particles(), p.Family)

	if style == StyleNatural {
		out := joinNonEmpty(" ", p.Given, family)
		if p.Suffix != "" {
			out += ", " + p.Suffix
		}
		return out
	}

	switch {
	case family == "":
		return p.Given
	case p.Suffix != "":
		return family + ", " + p.Given + ", " + p.Suffix
	case p.Given != "":
		return family + ", " + p.Given
	}
	return family
}

// ParseList splits raw on delim at brace depth zero and parses each
// non-empty segment.
func ParseList(raw, delim string) []reference.Person {
	var out []reference.Person
	for _, seg := range splitDepth0(raw, delim) {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if p := Parse(seg); !p.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

// SerializeList serializes each person and joins the results with delim.
func SerializeList(persons []reference.Person, style Style, delim string) string {
	parts := make([]string, 0, len(persons))
	for _, p := range persons {
		if s := Serialize(p, style); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, delim)
}

func isSuffix(tok string) bool {
	t := strings.ToLower(strings.TrimSpace(tok))
	t = strings.TrimSuffix(t, ",")
	t = strings.ReplaceAll(t, ".", "")
	return suffixes[t]
}

func isLower(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c >= 'a' && c <= 'z'
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// tokens splits on spaces outside braces.
func tokens(s string) []string {
	var out []string
	for _, t := range splitDepth0(s, " ") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitDepth0 splits s on sep wherever the brace depth is zero.
func splitDepth0(s, sep string) []string {
	var out []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
			continue
		case '}':
			if depth > 0 {
				depth--
			}
			continue
		case '\\':
			i++
			continue
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			out = append(out, s[last:i])
			i += len(sep) - 1
			last = i + 1
		}
	}
	return append(out, s[last:])
}

// closingBrace returns the index of the brace closing the one at open, or -1.
func closingBrace(s string, open int) int {
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
