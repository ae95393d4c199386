package extract

import (
	"context"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
)

// TypedExtractor walks TypeScript trees and resolves parameter and return
// types through a TypeResolver built for each parsed file.
type TypedExtractor struct {
	lang        *sitter.Language
	newResolver ResolverFunc
	onSyntax    func(*ParseError)
	opts        options
}

var _ Extractor = (*TypedExtractor)(nil)

// NewTypedExtractor creates a TypedExtractor for lang. A nil newResolver
// selects NewInferer.
func NewTypedExtractor(lang *sitter.Language, newResolver ResolverFunc, opts ...Option) *TypedExtractor {
	if newResolver == nil {
		newResolver = NewInferer
	}
	return &TypedExtractor{
		lang:        lang,
		newResolver: newResolver,
		opts:        buildOptions(opts),
	}
}

// OnSyntaxError registers fn to receive the first syntax error of a file.
// The typed path keeps going past syntax errors; fn is informational only.
func (x *TypedExtractor) OnSyntaxError(fn func(*ParseError)) *TypedExtractor {
	x.onSyntax = fn
	return x
}

// Extract implements Extractor.
func (x *TypedExtractor) Extract(ctx context.Context, path string, src []byte) ([]Descriptor, error) {
	if x.lang == nil {
		return nil, errors.Newf("typed extractor: no grammar for %s", path)
	}
	tree, err := parse(ctx, x.lang, src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if x.onSyntax != nil {
		if perr := SyntaxError(path, tree); perr != nil {
			x.onSyntax(perr)
		}
	}

	resolver := x.newResolver(root, src)
	var out []Descriptor
	walk(root, func(n *sitter.Node, ancestors []*sitter.Node) {
		parent := parentOf(ancestors)
		switch {
		case isFunctionDeclaration(n) || isFunctionSignature(n) || isDefaultExportedFunction(n, parent):
			out = append(out, x.function(n, parent, ancestors, src, resolver))
		case isVariableStatement(n) && x.opts.variables:
			out = append(out, x.variables(n, parent, ancestors, src)...)
		}
	})
	return out, nil
}

func (x *TypedExtractor) function(fn, parent *sitter.Node, ancestors []*sitter.Node, src []byte, resolver TypeResolver) Descriptor {
	d := Descriptor{
		Kind:    Function,
		Name:    functionName(fn, src),
		Line:    declLine(fn, parent),
		Params:  []Param{},
		Returns: Unknown,
		Scope:   scopeOf(ancestors),
	}
	for _, p := range parameterNodes(fn) {
		d.Params = append(d.Params, Param{
			Name: typedParamName(p, src),
			Type: paramAnnotation(p, src, resolver),
		})
	}
	if ann := fn.ChildByFieldName("return_type"); ann != nil {
		d.Returns = annotationType(ann, src)
	} else {
		d.Returns = safeResolve(func() TypeDesc { return resolver.ReturnTypeOf(fn) })
	}
	return d
}

// variables emits one TopLevel descriptor per statement outside functions,
// and one FunctionLocal descriptor per declarator inside them.
func (x *TypedExtractor) variables(stmt, parent *sitter.Node, ancestors []*sitter.Node, src []byte) []Descriptor {
	decls := declarators(stmt)
	if len(decls) == 0 {
		return nil
	}
	if !insideFunction(ancestors) {
		if parent != nil && isLoopHead(parent) {
			return nil
		}
		return []Descriptor{{
			Kind:    Variable,
			Name:    declaratorName(decls[0], src),
			Line:    declLine(stmt, parent),
			Params:  []Param{},
			Returns: Unknown,
			Scope:   TopLevel,
		}}
	}
	out := make([]Descriptor, 0, len(decls))
	for _, d := range decls {
		out = append(out, Descriptor{
			Kind:    Variable,
			Name:    declaratorName(d, src),
			Line:    startLine(d),
			Params:  []Param{},
			Returns: Unknown,
			Scope:   FunctionLocal,
		})
	}
	return out
}

// paramAnnotation prefers the written annotation and falls back to the
// resolver.
func paramAnnotation(p *sitter.Node, src []byte, resolver TypeResolver) TypeDesc {
	if ann := p.ChildByFieldName("type"); ann != nil {
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			return annotationType(ann, src)
		}
	}
	return safeResolve(func() TypeDesc { return resolver.TypeOf(p) })
}

// safeResolve shields the walk from resolvers that panic.
func safeResolve(fn func() TypeDesc) (t TypeDesc) {
	defer func() {
		if recover() != nil {
			t = Unknown
		}
	}()
	return fn()
}

func scopeOf(ancestors []*sitter.Node) Scope {
	if insideFunction(ancestors) {
		return FunctionLocal
	}
	return TopLevel
}

// isLoopHead reports whether parent is a for loop, whose initializer is
// not a statement of its own at module level.
func isLoopHead(parent *sitter.Node) bool {
	switch parent.Type() {
	case "for_statement", "for_in_statement":
		return true
	}
	return false
}

func declaratorName(d *sitter.Node, src []byte) string {
	if name := d.ChildByFieldName("name"); name != nil {
		return collapseSpace(nodeText(name, src))
	}
	return unknownParamName
}
