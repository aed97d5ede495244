// Package author provides contributor name matching for search queries.
package author

import (
	"strings"

	"github.com/matsen/bibhub/internal/names"
	"github.com/matsen/bibhub/internal/reference"
)

// Query represents a parsed author search query.
type Query struct {
	Given  string // May be empty for family-name-only queries
	Family string // Required; includes any particles ("van Beethoven")
}

// ParseQuery parses an author search string into a structured Query.
//
// Supported formats:
//   - "Yu"                   → family="Yu"
//   - "Timothy Yu"           → given="Timothy", family="Yu"
//   - "Yu, Timothy"          → given="Timothy", family="Yu"
//   - "Ludwig van Beethoven" → given="Ludwig", family="van Beethoven"
//
// Names are trimmed but case is preserved (matching is case-insensitive).
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	if !strings.Contains(input, ",") && len(strings.Fields(input)) == 1 {
		return Query{Family: input}
	}

	p := names.Parse(input)
	if p.IsLiteral() {
		return Query{Family: p.Literal}
	}
	return Query{Given: p.Given, Family: familyWithParticles(p)}
}

func familyWithParticles(p reference.Person) string {
	return strings.TrimSpace(p.Particles() + " " + p.Family)
}

// Matches checks if the query matches a given person.
//
// Matching rules:
//   - Family name: case-insensitive exact match, with or without particles
//   - Given name: case-insensitive prefix match (if query has one)
//   - Literal names match on the whole literal
//
// This lets "Tim Yu" match "Timothy C Yu" while "Yu" does not match "Yujia".
func (q Query) Matches(p reference.Person) bool {
	if q.Family == "" {
		return false
	}
	if p.IsLiteral() {
		return q.Given == "" && strings.EqualFold(q.Family, p.Literal)
	}

	if !strings.EqualFold(q.Family, p.Family) && !strings.EqualFold(q.Family, familyWithParticles(p)) {
		return false
	}

	if q.Given == "" {
		return true
	}

	return strings.HasPrefix(strings.ToLower(p.Given), strings.ToLower(q.Given))
}

// MatchesAny checks if the query matches any person in the list.
func (q Query) MatchesAny(persons []reference.Person) bool {
	for _, p := range persons {
		if q.Matches(p) {
			return true
		}
	}
	return false
}

// AllMatch checks if all queries match at least one person each.
// This implements AND logic for multiple author filters.
func AllMatch(queries []Query, persons []reference.Person) bool {
	for _, q := range queries {
		if !q.MatchesAny(persons) {
			return false
		}
	}
	return true
}

// Contributors returns every author, editor and translator of e.
func Contributors(e reference.Entry) []reference.Person {
	out := make([]reference.Person, 0, len(e.Author)+len(e.Editor)+len(e.Translator))
	out = append(out, e.Author...)
	out = append(out, e.Editor...)
	return append(out, e.Translator...)
}
