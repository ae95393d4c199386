package runtime

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect selects which extraction pipeline handles a file.
type Dialect int

const (
	// SyntaxOnly files are walked without type information.
	SyntaxOnly Dialect = iota
	// Typed files carry type annotations and go through type resolution.
	Typed
)

func (d Dialect) String() string {
	if d == Typed {
		return "typed"
	}
	return "syntax-only"
}

// extToGrammar maps file extensions to grammar names. Extensions not listed
// here fall back to the javascript grammar on the syntax-only path.
var extToGrammar = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
}

// Lazily initialized on first call via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
			"javascript": javascript.GetLanguage(),
		}
	})
}

// GrammarName returns the grammar name used for path. Unknown extensions
// resolve to "javascript".
func GrammarName(path string) string {
	if name, ok := extToGrammar[strings.ToLower(filepath.Ext(path))]; ok {
		return name
	}
	return "javascript"
}

// Route picks the dialect for path from its suffix alone. Anything that is
// not a TypeScript suffix takes the syntax-only path.
func Route(path string) Dialect {
	switch GrammarName(path) {
	case "typescript", "tsx":
		return Typed
	default:
		return SyntaxOnly
	}
}

// GrammarFor returns the tree-sitter grammar for path.
func GrammarFor(path string) *sitter.Language {
	initGrammars()
	return grammars[GrammarName(path)]
}

// IsSource reports whether path has one of the recognized source suffixes.
func IsSource(path string) bool {
	_, ok := extToGrammar[strings.ToLower(filepath.Ext(path))]
	return ok
}
