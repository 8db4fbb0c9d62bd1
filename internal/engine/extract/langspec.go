package extract

import (
	"path/filepath"
	"strings"

	"calltree/internal/engine/scanner"
)

type BlockStyle int

const (
	// BlockIndent languages end a body when indentation returns to the
	// definition's level (python).
	BlockIndent BlockStyle = iota
	// BlockBrace languages end a body when brace depth returns to zero
	// (rust, go).
	BlockBrace
)

// Spec is the structural description of a language: just enough to find
// definition headers and body boundaries. Not a grammar.
type Spec struct {
	Name     string
	Keyword  string
	Block    BlockStyle
	Syntax   scanner.Syntax
	Reserved map[string]bool
}

var specs = map[string]Spec{
	"python": {
		Name:    "python",
		Keyword: "def",
		Block:   BlockIndent,
		Syntax:  scanner.Syntax{LineComment: "#", Quotes: []rune{'"', '\''}},
		Reserved: keywordSet(
			"if", "elif", "else", "while", "for", "with", "match", "case",
			"return", "raise", "assert", "yield", "except", "lambda",
			"and", "or", "not", "in", "is", "del", "class", "def",
		),
	},
	"rust": {
		Name:    "rust",
		Keyword: "fn",
		Block:   BlockBrace,
		Syntax:  scanner.Syntax{LineComment: "//", Quotes: []rune{'"'}},
		Reserved: keywordSet(
			"if", "else", "while", "for", "loop", "match", "return",
			"let", "move", "unsafe", "impl", "fn", "use", "mod",
		),
	},
	"go": {
		Name:    "go",
		Keyword: "func",
		Block:   BlockBrace,
		Syntax:  scanner.Syntax{LineComment: "//", Quotes: []rune{'"', '`'}},
		Reserved: keywordSet(
			"if", "else", "for", "switch", "select", "case", "return",
			"go", "defer", "range", "func", "chan", "map", "interface",
			"struct",
		),
	},
}

var extensions = map[string]string{
	".py": "python",
	".rs": "rust",
	".go": "go",
}

// SpecFor returns the structural spec for a language name.
func SpecFor(language string) (Spec, bool) {
	spec, ok := specs[strings.ToLower(strings.TrimSpace(language))]
	return spec, ok
}

// DetectLanguage maps a file path to a language name by extension.
func DetectLanguage(path string) (string, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Languages lists the supported language names in stable order.
func Languages() []string {
	return []string{"go", "python", "rust"}
}

func keywordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
