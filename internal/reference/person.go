package reference

import "strings"

// Person is a structured personal or corporate name.
// Either Literal is set, or some of the structured parts are.
type Person struct {
	Family              string `json:"family,omitempty"`
	Given               string `json:"given,omitempty"`
	Literal             string `json:"literal,omitempty"` // Organizations and unparseable names
	NonDroppingParticle string `json:"non-dropping-particle,omitempty"`
	DroppingParticle    string `json:"dropping-particle,omitempty"`
	Suffix              string `json:"suffix,omitempty"`
}

// IsLiteral reports whether the name is an opaque literal.
func (p Person) IsLiteral() bool {
	return p.Literal != ""
}

// IsZero reports whether no part of the name is set.
func (p Person) IsZero() bool {
	return p == Person{}
}

// Particles returns the dropping and non-dropping particles joined by a space.
func (p Person) Particles() string {
	return strings.TrimSpace(p.DroppingParticle + " " + p.NonDroppingParticle)
}
