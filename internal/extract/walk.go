package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitFunc is called for every node in depth-first order. ancestors holds
// the chain from the root down to the node's parent; it is reused between
// calls and must not be retained.
type visitFunc func(n *sitter.Node, ancestors []*sitter.Node)

// walk performs a depth-first, parent-tracking traversal rooted at n.
func walk(n *sitter.Node, visit visitFunc) {
	var ancestors []*sitter.Node
	var rec func(n *sitter.Node)
	rec = func(n *sitter.Node) {
		if n == nil {
			return
		}
		visit(n, ancestors)
		ancestors = append(ancestors, n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			rec(n.NamedChild(i))
		}
		ancestors = ancestors[:len(ancestors)-1]
	}
	rec(n)
}

// functionLike lists the ancestors that make a declaration function-local.
var functionLike = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// insideFunction walks the ancestor chain from the innermost parent outwards.
func insideFunction(ancestors []*sitter.Node) bool {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if functionLike[ancestors[i].Type()] {
			return true
		}
	}
	return false
}

func parentOf(ancestors []*sitter.Node) *sitter.Node {
	if len(ancestors) == 0 {
		return nil
	}
	return ancestors[len(ancestors)-1]
}

// declLine returns the line a comment should sit above. An exported
// declaration starts at its export keyword.
func declLine(n *sitter.Node, parent *sitter.Node) int {
	if parent != nil && parent.Type() == "export_statement" {
		return startLine(parent)
	}
	return startLine(n)
}

// isFunctionDeclaration reports whether n declares a function statement.
func isFunctionDeclaration(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		return true
	}
	return false
}

// isFunctionSignature matches TypeScript overload signatures and ambient
// `declare function` statements, which have no body.
func isFunctionSignature(n *sitter.Node) bool {
	return n.Type() == "function_signature"
}

// isDefaultExportedFunction matches `export default function () {}`, which
// the grammars parse as a function expression under an export statement.
func isDefaultExportedFunction(n *sitter.Node, parent *sitter.Node) bool {
	if parent == nil || parent.Type() != "export_statement" {
		return false
	}
	switch n.Type() {
	case "function_expression", "function", "generator_function":
		return true
	}
	return false
}

func isVariableStatement(n *sitter.Node) bool {
	switch n.Type() {
	case "lexical_declaration", "variable_declaration":
		return true
	}
	return false
}

// declarators returns the variable_declarator children of a declaration.
func declarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "variable_declarator" {
			out = append(out, c)
		}
	}
	return out
}

// parameterNodes returns the parameters of a function-like node, skipping
// comments.
func parameterNodes(fn *sitter.Node) []*sitter.Node {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		// Arrow functions may take a single bare identifier.
		if p := fn.ChildByFieldName("parameter"); p != nil {
			return []*sitter.Node{p}
		}
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func functionName(fn *sitter.Node, src []byte) string {
	if name := fn.ChildByFieldName("name"); name != nil {
		return nodeText(name, src)
	}
	return anonymousName
}

// collapseSpace joins all whitespace runs into single spaces so multi-line
// type text fits on one comment line.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
