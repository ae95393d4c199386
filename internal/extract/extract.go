// Package extract walks tree-sitter syntax trees and produces declaration
// descriptors for functions and variables.
//
// Two extractors share the Extractor interface. TypedExtractor walks
// TypeScript with parent tracking and resolves parameter and return types
// through an injected TypeResolver. SyntaxOnlyExtractor walks JavaScript and
// records parameter names only.
package extract

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrParse marks a source file that does not conform to its grammar.
var ErrParse = errors.New("parse failure")

// ParseError reports the first syntax error found in a tree.
type ParseError struct {
	Path   string
	Line   int // 1-indexed
	Column int // 1-indexed
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

// Unwrap lets errors.Is(err, ErrParse) match.
func (e *ParseError) Unwrap() error { return ErrParse }

// Extractor produces descriptors for one source file. Implementations must
// not retain state between calls.
type Extractor interface {
	Extract(ctx context.Context, path string, src []byte) ([]Descriptor, error)
}

// Option configures an extractor.
type Option func(*options)

type options struct {
	variables bool
}

// WithVariables controls whether variable descriptors are emitted.
// Defaults to true.
func WithVariables(include bool) Option {
	return func(o *options) {
		o.variables = include
	}
}

func buildOptions(opts []Option) options {
	o := options{variables: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// parse runs tree-sitter with a fresh parser. Parsers are not shared so
// extractors stay safe to use from several goroutines.
func parse(ctx context.Context, lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse")
	}
	return tree, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	// HasError is set but no child carries it; report the node itself.
	return n
}

func newParseError(path string, n *sitter.Node) *ParseError {
	p := n.StartPoint()
	return &ParseError{Path: path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// SyntaxError returns a ParseError for the first syntax error in tree, or nil.
func SyntaxError(path string, tree *sitter.Tree) *ParseError {
	if bad := firstError(tree.RootNode()); bad != nil {
		return newParseError(path, bad)
	}
	return nil
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row)
}
