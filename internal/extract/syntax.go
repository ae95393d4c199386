package extract

import (
	"context"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxOnlyExtractor walks JavaScript trees without any type information.
// Every type it reports is Unknown and every variable is TopLevel.
type SyntaxOnlyExtractor struct {
	lang *sitter.Language
	opts options
}

var _ Extractor = (*SyntaxOnlyExtractor)(nil)

// NewSyntaxOnlyExtractor creates a SyntaxOnlyExtractor for lang.
func NewSyntaxOnlyExtractor(lang *sitter.Language, opts ...Option) *SyntaxOnlyExtractor {
	return &SyntaxOnlyExtractor{lang: lang, opts: buildOptions(opts)}
}

// Extract implements Extractor. A tree with any syntax error fails the whole
// file with a *ParseError.
func (x *SyntaxOnlyExtractor) Extract(ctx context.Context, path string, src []byte) ([]Descriptor, error) {
	if x.lang == nil {
		return nil, errors.Newf("syntax-only extractor: no grammar for %s", path)
	}
	tree, err := parse(ctx, x.lang, src)
	if err != nil {
		return nil, err
	}
	if perr := SyntaxError(path, tree); perr != nil {
		return nil, perr
	}

	var out []Descriptor
	walk(tree.RootNode(), func(n *sitter.Node, ancestors []*sitter.Node) {
		switch {
		case isFunctionDeclaration(n):
			out = append(out, x.function(n, parentOf(ancestors), src))
		case isVariableStatement(n) && x.opts.variables:
			name := unknownParamName
			if decls := declarators(n); len(decls) > 0 {
				name = plainName(decls[0].ChildByFieldName("name"), src)
			}
			out = append(out, Descriptor{
				Kind:    Variable,
				Name:    name,
				Line:    declLine(n, parentOf(ancestors)),
				Params:  []Param{},
				Returns: Unknown,
				Scope:   TopLevel,
			})
		}
	})
	return out, nil
}

func (x *SyntaxOnlyExtractor) function(fn, parent *sitter.Node, src []byte) Descriptor {
	d := Descriptor{
		Kind:    Function,
		Name:    functionName(fn, src),
		Line:    declLine(fn, parent),
		Params:  []Param{},
		Returns: Unknown,
		Scope:   TopLevel,
	}
	for _, p := range parameterNodes(fn) {
		d.Params = append(d.Params, Param{Name: syntaxParamName(p, src), Type: Unknown})
	}
	return d
}

// syntaxParamName destructures a parameter to its leftmost identifier. Only
// plain identifiers and defaults with an identifier target are named.
func syntaxParamName(p *sitter.Node, src []byte) string {
	switch p.Type() {
	case "identifier":
		return nodeText(p, src)
	case "assignment_pattern":
		return plainName(p.ChildByFieldName("left"), src)
	}
	return unknownParamName
}

func plainName(n *sitter.Node, src []byte) string {
	if n != nil && n.Type() == "identifier" {
		return nodeText(n, src)
	}
	return unknownParamName
}
