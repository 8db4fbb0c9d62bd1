package extract

import (
	"log/slog"
	"strings"

	"calltree/internal/engine/scanner"
)

// Function is one extracted definition. StartLine is the line carrying the
// definition keyword (decorators and attributes above it do not count).
// EndLine is the last line of the body; for an empty body it equals
// HeaderEnd. Params is the parameter-list text with newlines and runs of
// whitespace collapsed to single spaces.
type Function struct {
	Name      string
	Params    string
	StartLine int
	HeaderEnd int
	EndLine   int
	Indent    int
	Malformed bool
}

// scan states for header recognition. Body ranges are computed in a second
// pass so the boundary rules stay independently testable.
type state int

const (
	seekingHeader state = iota
	accumulatingHeader
	inBody
)

// Extract scans the lines for definition headers and returns functions in
// file order. A header whose parameter list never closes before EOF is
// captured as malformed with the remainder of the file as its body.
func Extract(lines []scanner.Line, spec Spec) []Function {
	var fns []Function

	st := seekingHeader
	var cur Function
	var header []string
	depth := 0
	opened := false

	finalize := func(end int, malformed bool) {
		joined := strings.Join(strings.Fields(strings.Join(header, " ")), " ")
		name, params, ok := parseHeader(joined, spec)
		if !ok {
			slog.Warn("could not parse definition header",
				"line", cur.StartLine, "header", joined)
			st = seekingHeader
			return
		}
		cur.Name = name
		cur.Params = params
		cur.HeaderEnd = end
		cur.Malformed = malformed
		fns = append(fns, cur)
		st = inBody
	}

	for i := range lines {
		line := &lines[i]

		switch st {
		case seekingHeader, inBody:
			if !startsHeader(line, spec) {
				continue
			}
			cur = Function{StartLine: line.Number, Indent: line.Indent}
			header = header[:0]
			header = append(header, line.Text)
			depth = 0
			opened = false
			d, o := depthWalk(line.Code, '(', ')')
			depth += d
			opened = opened || o
			if opened && depth == 0 {
				finalize(line.Number, false)
				continue
			}
			st = accumulatingHeader

		case accumulatingHeader:
			header = append(header, line.Text)
			d, o := depthWalk(line.Code, '(', ')')
			depth += d
			opened = opened || o
			if opened && depth == 0 {
				finalize(line.Number, false)
			}
		}
	}

	if st == accumulatingHeader && len(lines) > 0 {
		// Unterminated parameter list at EOF: keep what we have and flag it.
		finalize(lines[len(lines)-1].Number, true)
	}

	for i := range fns {
		bodyRange(lines, &fns[i], spec)
	}
	return fns
}

// startsHeader reports whether the masked line begins a definition header:
// optional indentation, the keyword as a full token, then an identifier
// (receiver and generic groups allowed) reaching an opening parenthesis.
func startsHeader(line *scanner.Line, spec Spec) bool {
	name, _ := headerName(strings.TrimLeft(line.Code, " \t"), spec)
	return name != ""
}

// headerName pulls the function name out of text that starts with the
// definition keyword. Returns the name and the offset just past it.
func headerName(text string, spec Spec) (string, int) {
	if !strings.HasPrefix(text, spec.Keyword) {
		return "", 0
	}
	rest := text[len(spec.Keyword):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", 0
	}
	pos := len(spec.Keyword)
	trimmed := strings.TrimLeft(rest, " \t")
	pos += len(rest) - len(trimmed)
	rest = trimmed

	// Go methods: skip the receiver group before the name.
	if spec.Name == "go" && strings.HasPrefix(rest, "(") {
		end := matchGroup(rest, '(', ')')
		if end < 0 {
			return "", 0
		}
		rest = rest[end+1:]
		pos += end + 1
		trimmed = strings.TrimLeft(rest, " \t")
		pos += len(rest) - len(trimmed)
		rest = trimmed
	}

	n := identLen(rest)
	if n == 0 {
		return "", 0
	}
	name := rest[:n]
	after := rest[n:]
	pos += n

	// Generic parameter groups sit between name and parameter list.
	if strings.HasPrefix(after, "<") {
		end := matchGroup(after, '<', '>')
		if end < 0 {
			return "", 0
		}
		after = after[end+1:]
		pos += end + 1
	} else if strings.HasPrefix(after, "[") {
		end := matchGroup(after, '[', ']')
		if end < 0 {
			return "", 0
		}
		after = after[end+1:]
		pos += end + 1
	}

	if !strings.HasPrefix(strings.TrimLeft(after, " \t"), "(") {
		return "", 0
	}
	return name, pos
}

// parseHeader extracts name and normalized parameter text from a collapsed
// single-line header. ok is false when no name can be recognized at all.
func parseHeader(header string, spec Spec) (name, params string, ok bool) {
	name, pos := headerName(header, spec)
	if name == "" {
		return "", "", false
	}

	rest := header[pos:]
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return name, "", true
	}
	rest = rest[open+1:]

	depth := 1
	for i, r := range rest {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return name, strings.TrimSpace(rest[:i]), true
			}
		}
	}
	// Unterminated list: the remainder is the best available parameter text.
	return name, strings.TrimSpace(rest), true
}

// bodyRange fills in EndLine using the language's block style.
func bodyRange(lines []scanner.Line, fn *Function, spec Spec) {
	if fn.Malformed {
		fn.EndLine = lines[len(lines)-1].Number
		return
	}

	switch spec.Block {
	case BlockIndent:
		end := fn.HeaderEnd
		for i := fn.HeaderEnd; i < len(lines); i++ {
			line := &lines[i]
			if line.Blank {
				continue
			}
			if line.Indent <= fn.Indent {
				break
			}
			end = line.Number
		}
		fn.EndLine = end

	case BlockBrace:
		depth := 0
		opened := false
		for i := fn.StartLine - 1; i < len(lines); i++ {
			line := &lines[i]
			if !opened && line.Number > fn.HeaderEnd && !line.Blank {
				// The opening brace must come before any new definition or
				// other statement, else this was a bodyless declaration
				// (trait methods, prototypes).
				if startsHeader(line, spec) || !strings.ContainsRune(line.Code, '{') {
					fn.EndLine = fn.HeaderEnd
					return
				}
			}
			d, o := depthWalk(line.Code, '{', '}')
			depth += d
			opened = opened || o
			if opened && depth <= 0 {
				fn.EndLine = line.Number
				return
			}
		}
		fn.EndLine = lines[len(lines)-1].Number
	}
}

// depthWalk accumulates the delimiter depth across one line and reports
// whether the depth was ever positive, so one-line groups still register.
func depthWalk(code string, open, close rune) (delta int, opened bool) {
	for _, r := range code {
		switch r {
		case open:
			delta++
			opened = true
		case close:
			delta--
		}
	}
	return delta, opened
}

// matchGroup returns the index of the close delimiter matching the open
// delimiter at position 0, or -1 when unbalanced within the text.
func matchGroup(text string, open, close rune) int {
	depth := 0
	for i, r := range text {
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func identLen(s string) int {
	for i, r := range s {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return i
	}
	return len(s)
}
