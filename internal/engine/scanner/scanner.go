package scanner

import (
	"strings"
)

// Syntax describes the minimal lexical surface the scanner needs to know
// about a language: how line comments start and which characters delimit
// string literals. This is deliberately not a grammar.
type Syntax struct {
	LineComment string
	Quotes      []rune
}

// Line is one physical source line. Code is the line with string-literal
// contents and comment tails blanked out with spaces, so column offsets in
// Code line up with the raw text while quoted keywords and call-shaped
// tokens inside strings or comments can never match.
type Line struct {
	Number int // 1-based
	Text   string
	Code   string
	Indent int
	Blank  bool
}

// Scan splits src into lines and precomputes the masked Code view,
// indentation width and blankness for each.
func Scan(src string, syn Syntax) []Line {
	if src == "" {
		return nil
	}
	raw := strings.Split(src, "\n")
	// A trailing newline produces one empty trailing element; drop it so
	// line counts match what editors report.
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}

	lines := make([]Line, len(raw))
	for i, text := range raw {
		text = strings.TrimSuffix(text, "\r")
		code := Mask(text, syn)
		lines[i] = Line{
			Number: i + 1,
			Text:   text,
			Code:   code,
			Indent: IndentWidth(text),
			Blank:  strings.TrimSpace(code) == "",
		}
	}
	return lines
}

// Mask replaces string-literal contents and comment tails with spaces.
// Escaped quotes are honored; an unterminated literal masks to end of line.
func Mask(text string, syn Syntax) string {
	runes := []rune(text)
	out := make([]rune, len(runes))
	copy(out, runes)

	var quote rune
	escaped := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			out[i] = ' '
			if escaped {
				escaped = false
				continue
			}
			if r == '\\' {
				escaped = true
				continue
			}
			if r == quote {
				quote = 0
			}
			continue
		}

		if isQuote(r, syn.Quotes) {
			quote = r
			// Keep the opening quote visible so masked lines remain
			// recognizable as containing a literal.
			continue
		}

		if syn.LineComment != "" && hasPrefixAt(runes, i, syn.LineComment) {
			for j := i; j < len(out); j++ {
				out[j] = ' '
			}
			break
		}
	}
	return string(out)
}

// IndentWidth measures leading whitespace, counting a tab as a jump to the
// next multiple of 8. Mixed-indent files still get a stable ordering.
func IndentWidth(text string) int {
	width := 0
	for _, r := range text {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 8 - width%8
		default:
			return width
		}
	}
	return width
}

// DepthDelta returns the net nesting change contributed by code for one
// open/close delimiter pair. Callers accumulate it across lines to find
// where a multi-line header or a brace block ends.
func DepthDelta(code string, open, close rune) int {
	delta := 0
	for _, r := range code {
		switch r {
		case open:
			delta++
		case close:
			delta--
		}
	}
	return delta
}

func isQuote(r rune, quotes []rune) bool {
	for _, q := range quotes {
		if r == q {
			return true
		}
	}
	return false
}

func hasPrefixAt(runes []rune, i int, prefix string) bool {
	p := []rune(prefix)
	if i+len(p) > len(runes) {
		return false
	}
	for j, r := range p {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
