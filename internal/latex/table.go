package latex

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// rule is one decode substitution.
type rule struct {
	from string
	to   string
	// word is set when from ends in a control word (\ss, \alpha, \'\i):
	// the rule only applies when the next byte is not a letter.
	word bool
}

// Accents whose command is a single symbol: \'e, {\'e}, \'{e}.
var symbolAccents = map[byte]rune{
	'`':  '\u0300',
	'\'': '\u0301',
	'^':  '\u0302',
	'~':  '\u0303',
	'=':  '\u0304',
	'.':  '\u0307',
	'"':  '\u0308',
}

// Accents whose command is a letter: \c{c}, {\c c}, \c c.
var letterAccents = map[byte]rune{
	'u': '\u0306',
	'r': '\u030a',
	'H': '\u030b',
	'v': '\u030c',
	'c': '\u0327',
	'k': '\u0328',
	'd': '\u0323',
	'b': '\u0331',
}

// Ligatures and letters with their own command.
var specialLetters = []struct {
	cmd  string
	char string
}{
	{"ss", "ß"}, {"ae", "æ"}, {"AE", "Æ"}, {"oe", "œ"}, {"OE", "Œ"},
	{"aa", "å"}, {"AA", "Å"}, {"o", "ø"}, {"O", "Ø"}, {"l", "ł"},
	{"L", "Ł"}, {"i", "ı"}, {"j", "ȷ"},
}

// Text-mode symbols. Those marked encode are produced by Encode as {\cmd}.
var textSymbols = []struct {
	cmd    string
	char   string
	encode bool
}{
	{"textregistered", "®", true},
	{"texttrademark", "™", true},
	{"copyright", "©", true},
	{"textcopyright", "©", false},
	{"textdegree", "°", true},
	{"pounds", "£", true},
	{"textsterling", "£", false},
	{"euro", "€", true},
	{"texteuro", "€", false},
	{"S", "§", true},
	{"P", "¶", true},
	{"textbullet", "•", true},
	{"dag", "†", true},
	{"ddag", "‡", true},
	{"ldots", "…", true},
	{"dots", "…", false},
	{"textellipsis", "…", false},
	{"guillemotleft", "«", true},
	{"guillemotright", "»", true},
	{"textemdash", "—", false},
	{"textendash", "–", false},
	{"textquoteleft", "‘", false},
	{"textquoteright", "’", false},
	{"textquotedblleft", "“", false},
	{"textquotedblright", "”", false},
	{"textbackslash", `\`, false},
	{"textasciitilde", "~", false},
	{"textasciicircum", "^", false},
	{"textless", "<", false},
	{"textgreater", ">", false},
	{"textbar", "|", false},
	{"textunderscore", "_", false},
	{"textperiodcentered", "·", false},
	{"texttimes", "×", false},
}

// Math-mode symbols, accepted bare, braced or inside $...$.
var mathSymbols = []struct {
	cmd  string
	char string
}{
	{"alpha", "α"}, {"beta", "β"}, {"gamma", "γ"}, {"delta", "δ"},
	{"epsilon", "ϵ"}, {"varepsilon", "ε"}, {"zeta", "ζ"}, {"eta", "η"},
	{"theta", "θ"}, {"vartheta", "ϑ"}, {"iota", "ι"}, {"kappa", "κ"},
	{"lambda", "λ"}, {"mu", "μ"}, {"nu", "ν"}, {"xi", "ξ"}, {"pi", "π"},
	{"varpi", "ϖ"}, {"rho", "ρ"}, {"varrho", "ϱ"}, {"sigma", "σ"},
	{"varsigma", "ς"}, {"tau", "τ"}, {"upsilon", "υ"}, {"phi", "ϕ"},
	{"varphi", "φ"}, {"chi", "χ"}, {"psi", "ψ"}, {"omega", "ω"},
	{"Gamma", "Γ"}, {"Delta", "Δ"}, {"Theta", "Θ"}, {"Lambda", "Λ"},
	{"Xi", "Ξ"}, {"Pi", "Π"}, {"Sigma", "Σ"}, {"Upsilon", "Υ"},
	{"Phi", "Φ"}, {"Psi", "Ψ"}, {"Omega", "Ω"},
	{"pm", "±"}, {"times", "×"}, {"infty", "∞"}, {"leq", "≤"},
	{"geq", "≥"}, {"neq", "≠"}, {"approx", "≈"},
}

// Characters escaped with a backslash in BibTeX source.
const reservedDecode = "&%$#_{}"

var (
	decodeIndex map[byte][]rule
	encodeTable map[string]string
)

func init() {
	var rules []rule
	encodeTable = make(map[string]string)

	add := func(from, to string) {
		rules = append(rules, rule{from: from, to: to, word: endsInControlWord(from)})
	}
	addEncode := func(char, macro string) {
		if _, ok := encodeTable[char]; !ok {
			encodeTable[char] = macro
		}
	}

	for _, c := range reservedDecode {
		add(`\`+string(c), string(c))
	}

	add("``", "“")
	add("''", "”")
	add("---", "—")
	add("--", "–")

	for _, sl := range specialLetters {
		add("{\\"+sl.cmd+"}", sl.char)
		add("\\"+sl.cmd+"{}", sl.char)
		add("\\"+sl.cmd, sl.char)
		addEncode(sl.char, "{\\"+sl.cmd+"}")
	}

	for _, ts := range textSymbols {
		add("{\\"+ts.cmd+"}", ts.char)
		add("\\"+ts.cmd+"{}", ts.char)
		add("\\"+ts.cmd, ts.char)
		if ts.encode {
			addEncode(ts.char, "{\\"+ts.cmd+"}")
		}
	}

	for _, ms := range mathSymbols {
		add("$\\"+ms.cmd+"$", ms.char)
		add("{\\"+ms.cmd+"}", ms.char)
		add("\\"+ms.cmd+"{}", ms.char)
		add("\\"+ms.cmd, ms.char)
	}

	for _, cmd := range sortedKeys(symbolAccents) {
		mark := symbolAccents[cmd]
		c := string(cmd)
		for _, base := range baseLetters() {
			char, ok := compose(base, mark)
			if !ok {
				continue
			}
			b := string(base)
			add(`{\`+c+b+`}`, char)
			add(`{\`+c+`{`+b+`}}`, char)
			add(`\`+c+`{`+b+`}`, char)
			add(`\`+c+b, char)
			addEncode(char, `{\`+c+b+`}`)
		}
		if char, ok := compose('i', mark); ok {
			add(`{\`+c+`\i}`, char)
			add(`{\`+c+`{\i}}`, char)
			add(`\`+c+`{\i}`, char)
			add(`\`+c+`\i`, char)
		}
	}

	for _, cmd := range sortedKeys(letterAccents) {
		mark := letterAccents[cmd]
		c := string(cmd)
		for _, base := range baseLetters() {
			char, ok := compose(base, mark)
			if !ok {
				continue
			}
			b := string(base)
			add(`{\`+c+`{`+b+`}}`, char)
			add(`{\`+c+` `+b+`}`, char)
			add(`\`+c+`{`+b+`}`, char)
			add(`\`+c+` `+b, char)
			addEncode(char, `{\`+c+`{`+b+`}}`)
		}
	}

	decodeIndex = make(map[byte][]rule)
	for _, r := range rules {
		decodeIndex[r.from[0]] = append(decodeIndex[r.from[0]], r)
	}
	for k := range decodeIndex {
		rs := decodeIndex[k]
		sort.SliceStable(rs, func(i, j int) bool { return len(rs[i].from) > len(rs[j].from) })
	}
}

// compose returns the single precomposed rune for base+mark, if one exists.
func compose(base, mark rune) (string, bool) {
	s := norm.NFC.String(string(base) + string(mark))
	if utf8.RuneCountInString(s) != 1 {
		return "", false
	}
	return s, true
}

func baseLetters() []rune {
	letters := make([]rune, 0, 52)
	for r := 'A'; r <= 'Z'; r++ {
		letters = append(letters, r)
	}
	for r := 'a'; r <= 'z'; r++ {
		letters = append(letters, r)
	}
	return letters
}

func sortedKeys(m map[byte]rune) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// endsInControlWord reports whether s ends with \ followed by letters.
func endsInControlWord(s string) bool {
	i := len(s)
	for i > 0 && isLetter(s[i-1]) {
		i--
	}
	return i < len(s) && i > 0 && s[i-1] == '\\'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
