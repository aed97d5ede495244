// Package latex converts between LaTeX escape sequences and Unicode text.
package latex

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// reservedEncode are the characters Encode escapes with a backslash.
var reservedEncode = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
)

var encoder = func() *strings.Replacer {
	chars := make([]string, 0, len(encodeTable))
	for c := range encodeTable {
		chars = append(chars, c)
	}
	// Longest first; strings.Replacer tries arguments in order.
	sort.Slice(chars, func(i, j int) bool {
		if len(chars[i]) != len(chars[j]) {
			return len(chars[i]) > len(chars[j])
		}
		return chars[i] < chars[j]
	})
	pairs := make([]string, 0, 2*len(chars))
	for _, c := range chars {
		pairs = append(pairs, c, encodeTable[c])
	}
	return strings.NewReplacer(pairs...)
}()

var (
	commandRe  = regexp.MustCompile(`\\(?:[A-Za-z]+|[^A-Za-z\s])`)
	wrapperRe  = regexp.MustCompile(`\\[A-Za-z]+\*?\s*\{([^{}]*)\}`)
	bareCmdRe  = regexp.MustCompile(`\\[A-Za-z]+\*?`)
	escapedRe  = regexp.MustCompile(`\\(.)`)
	upperRunRe = regexp.MustCompile(`\p{Lu}{2,}`)
	protectRe  = regexp.MustCompile(`\{(\p{Lu}{2,})\}`)
)

// Decode replaces every known LaTeX escape with its Unicode equivalent.
// At each position the longest matching escape wins; unknown escapes are
// left as they are.
func Decode(s string) string {
	if !strings.ContainsAny(s, "\\{`'-$") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if to, n := matchAt(s, i); n > 0 {
			b.WriteString(to)
			i += n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func matchAt(s string, i int) (string, int) {
	for _, r := range decodeIndex[s[i]] {
		if !strings.HasPrefix(s[i:], r.from) {
			continue
		}
		end := i + len(r.from)
		if r.word && end < len(s) && isLetter(s[end]) {
			continue
		}
		return r.to, len(r.from)
	}
	return "", 0
}

// Encode escapes & % $ # _ and replaces every character that has a braced
// macro form with that macro (é becomes {\'e}).
func Encode(s string) string {
	s = reservedEncode.Replace(s)
	s = norm.NFC.String(s)
	return encoder.Replace(s)
}

// HasCommands reports whether s contains a backslash followed by a letter
// run or a single symbol character.
func HasCommands(s string) bool {
	return commandRe.MatchString(s)
}

// Strip decodes known escapes and then removes any remaining LaTeX markup,
// leaving plain text with single spaces.
func Strip(s string) string {
	s = Decode(s)
	for {
		next := wrapperRe.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	s = bareCmdRe.ReplaceAllString(s, "")
	s = escapedRe.ReplaceAllString(s, "$1")
	return strings.Join(strings.Fields(s), " ")
}

// Protect wraps every run of two or more uppercase letters in braces so
// BibTeX styles keep their case.
func Protect(s string) string {
	return upperRunRe.ReplaceAllString(s, "{$0}")
}

// Unprotect removes one level of braces around uppercase runs.
func Unprotect(s string) string {
	return protectRe.ReplaceAllString(s, "$1")
}
