package latex

import (
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Plain text, nothing here.", "Plain text, nothing here."},
		{"braced umlaut", `Schr{\"o}dinger`, "Schrödinger"},
		{"unbraced acute", `Caf\'e`, "Café"},
		{"acute with braced arg", `Caf\'{e}`, "Café"},
		{"cedilla", `Fran{\c{c}}ois`, "François"},
		{"cedilla with space", `Fran\c coise`, "Françoise"},
		{"dotless i", `na{\"\i}ve`, "naïve"},
		{"ligature", `Stra{\ss}e`, "Straße"},
		{"slashed o", `Bj{\o}rn`, "Bjørn"},
		{"reserved characters", `Smith \& Sons, 50\% \$5 \#1 a\_b`, "Smith & Sons, 50% $5 #1 a_b"},
		{"em dash before en dash", "a---b", "a—b"},
		{"en dash", "1--10", "1–10"},
		{"quotes", "``quoted''", "“quoted”"},
		{"greek bare", `\alpha-helix`, "α-helix"},
		{"greek math", `$\beta$ sheet`, "β sheet"},
		{"symbol", `Widget\textregistered`, "Widget®"},
		{"control word followed by letter", `\ssx`, `\ssx`},
		{"unknown escape", `\unknown{x}`, `\unknown{x}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.input); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"acute", "Café", `Caf{\'e}`},
		{"cedilla", "François", `Fran{\c{c}}ois`},
		{"sharp s", "Straße", `Stra{\ss}e`},
		{"reserved", "Smith & Sons 50%", `Smith \& Sons 50\%`},
		{"decomposed input", "Cafe\u0301", `Caf{\'e}`},
		{"plain", "Deep Learning", "Deep Learning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.input); got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeInverse(t *testing.T) {
	for _, ch := range []string{
		"é", "è", "ê", "ë", "É", "à", "â", "ä", "ö", "ü", "Ü", "ñ", "õ",
		"ç", "Ç", "ş", "ą", "ę", "ř", "š", "ž", "Ž", "ő", "ű", "ā", "ō",
		"ğ", "ů", "å", "Å", "ø", "Ø", "ß", "æ", "Æ", "œ", "ł", "Ł", "ı",
		"©", "®", "£", "€", "§",
	} {
		enc := Encode(ch)
		if enc == ch {
			t.Errorf("Encode(%q) produced no macro", ch)
			continue
		}
		if got := Decode(enc); got != ch {
			t.Errorf("Decode(Encode(%q)) = %q (encoded %q)", ch, got, enc)
		}
	}
}

func TestHasCommands(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`\alpha`, true},
		{`Smith \& Sons`, true},
		{`{\'e}`, true},
		{"plain text", false},
		{`trailing \`, false},
		{"a\\ b", false},
	}

	for _, tt := range tests {
		if got := HasCommands(tt.input); got != tt.want {
			t.Errorf("HasCommands(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"nested wrappers", `\textbf{\emph{Deep} Learning}`, "Deep Learning"},
		{"accent then wrapper", `\textit{Caf{\'e}} culture`, "Café culture"},
		{"bare command", `Section \newline two`, "Section two"},
		{"empty wrapper", `\LaTeX{} rocks`, "rocks"},
		{"whitespace", "  too   many \n spaces ", "too many spaces"},
		{"leftover escape", `a\@b`, "a@b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.input); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProtect(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DNA and RNA in E. coli", "{DNA} and {RNA} in E. coli"},
		{"The BRCA1 gene", "The {BRCA}1 gene"},
		{"No acronyms", "No acronyms"},
		{"ÉTÉ fort", "{ÉTÉ} fort"},
	}

	for _, tt := range tests {
		got := Protect(tt.input)
		if got != tt.want {
			t.Errorf("Protect(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if back := Unprotect(got); back != tt.input {
			t.Errorf("Unprotect(Protect(%q)) = %q", tt.input, back)
		}
	}
}

func TestUnprotect_OneLevel(t *testing.T) {
	if got := Unprotect("{{DNA}}"); got != "{DNA}" {
		t.Errorf("Unprotect(%q) = %q, want %q", "{{DNA}}", got, "{DNA}")
	}
}
