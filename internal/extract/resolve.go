package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// TypeResolver answers type questions about positions in one parsed tree.
// Implementations return Unknown rather than failing.
type TypeResolver interface {
	// TypeOf infers the type of a parameter or expression node.
	TypeOf(n *sitter.Node) TypeDesc
	// ReturnTypeOf infers the return type of a function-like node.
	ReturnTypeOf(fn *sitter.Node) TypeDesc
}

// ResolverFunc builds a TypeResolver for a freshly parsed tree.
type ResolverFunc func(root *sitter.Node, src []byte) TypeResolver

// nodeKey identifies a node independent of the wrapper pointer.
type nodeKey struct {
	start, end uint32
	kind       string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

type env struct {
	vars   map[string]TypeDesc
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[string]TypeDesc), parent: parent}
}

func (e *env) lookup(name string) (TypeDesc, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return Unknown, false
}

// Inferer is a best-effort local type inference engine. It reads explicit
// annotations, literal initializers, operators and the return statements of
// functions declared in the same file.
type Inferer struct {
	root *sitter.Node
	src  []byte

	globals   *env
	functions map[string]*sitter.Node
	returns   map[nodeKey]TypeDesc
	visiting  map[nodeKey]bool
	signing   map[nodeKey]bool
}

// NewInferer is the default ResolverFunc.
func NewInferer(root *sitter.Node, src []byte) TypeResolver {
	return &Inferer{
		root:      root,
		src:       src,
		functions: make(map[string]*sitter.Node),
		returns:   make(map[nodeKey]TypeDesc),
		visiting:  make(map[nodeKey]bool),
		signing:   make(map[nodeKey]bool),
	}
}

var _ ResolverFunc = NewInferer

// TypeOf implements TypeResolver.
func (in *Inferer) TypeOf(n *sitter.Node) (t TypeDesc) {
	defer func() {
		if recover() != nil {
			t = Unknown
		}
	}()
	if n == nil {
		return Unknown
	}
	in.indexGlobals()

	switch n.Type() {
	case "required_parameter", "optional_parameter", "assignment_pattern":
		return in.paramType(n, in.envFor(n))
	case "identifier", "rest_pattern", "object_pattern", "array_pattern":
		// A bare parameter carries no information of its own.
		if p := n.Parent(); p != nil && p.Type() == "formal_parameters" {
			return Unknown
		}
	}
	return in.exprType(n, in.envFor(n))
}

// paramType resolves a parameter from its annotation or default value.
func (in *Inferer) paramType(p *sitter.Node, e *env) TypeDesc {
	switch p.Type() {
	case "required_parameter", "optional_parameter":
		if ann := p.ChildByFieldName("type"); ann != nil {
			return annotationType(ann, in.src)
		}
		if v := p.ChildByFieldName("value"); v != nil {
			return in.exprType(v, e)
		}
	case "assignment_pattern":
		return in.exprType(p.ChildByFieldName("right"), e)
	}
	return Unknown
}

// ReturnTypeOf implements TypeResolver.
func (in *Inferer) ReturnTypeOf(fn *sitter.Node) (t TypeDesc) {
	defer func() {
		if recover() != nil {
			t = Unknown
		}
	}()
	if fn == nil {
		return Unknown
	}
	in.indexGlobals()
	return in.returnType(fn)
}

// envFor builds the environment visible at n: globals plus the parameters
// and locals of every enclosing function.
func (in *Inferer) envFor(n *sitter.Node) *env {
	var fns []*sitter.Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		if isFunctionNode(p) {
			fns = append(fns, p)
		}
	}
	e := in.globals
	for i := len(fns) - 1; i >= 0; i-- {
		e = in.functionEnv(fns[i], e)
	}
	return e
}

// indexGlobals records top-level functions and variable types once.
func (in *Inferer) indexGlobals() {
	if in.globals != nil {
		return
	}
	in.globals = newEnv(nil)
	var stmts []*sitter.Node
	for i := 0; i < int(in.root.NamedChildCount()); i++ {
		stmt := in.root.NamedChild(i)
		if stmt.Type() == "export_statement" {
			if d := stmt.ChildByFieldName("declaration"); d != nil {
				stmt = d
			}
		}
		stmts = append(stmts, stmt)
	}
	// Functions are hoisted, so index them before any initializer runs.
	for _, stmt := range stmts {
		if isFunctionDeclaration(stmt) {
			if name := stmt.ChildByFieldName("name"); name != nil {
				in.functions[nodeText(name, in.src)] = stmt
			}
		}
	}
	for _, stmt := range stmts {
		if isVariableStatement(stmt) {
			in.declare(stmt, in.globals)
		}
	}
}

// declare adds the declarators of a variable statement to e, in order, so
// later declarators can see earlier ones.
func (in *Inferer) declare(stmt *sitter.Node, e *env) {
	for _, d := range declarators(stmt) {
		name := d.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			continue
		}
		var t TypeDesc
		if ann := d.ChildByFieldName("type"); ann != nil {
			t = annotationType(ann, in.src)
		} else if v := d.ChildByFieldName("value"); v != nil {
			t = in.exprType(v, e)
		}
		if !t.IsUnknown() {
			e.vars[nodeText(name, in.src)] = t
		}
	}
}

func (in *Inferer) functionEnv(fn *sitter.Node, parent *env) *env {
	e := newEnv(parent)
	for _, p := range parameterNodes(fn) {
		if t := in.paramType(p, parent); !t.IsUnknown() {
			e.vars[typedParamName(p, in.src)] = t
		}
	}
	if body := fn.ChildByFieldName("body"); body != nil && body.Type() == "statement_block" {
		forEachOwn(body, func(n *sitter.Node) {
			if isVariableStatement(n) {
				in.declare(n, e)
			}
		})
	}
	return e
}

func (in *Inferer) returnType(fn *sitter.Node) TypeDesc {
	if ann := fn.ChildByFieldName("return_type"); ann != nil {
		return annotationType(ann, in.src)
	}
	key := keyOf(fn)
	if t, ok := in.returns[key]; ok {
		return t
	}
	if in.visiting[key] {
		return Unknown
	}
	in.visiting[key] = true
	defer delete(in.visiting, key)

	t := in.inferReturn(fn)
	in.returns[key] = t
	return t
}

func (in *Inferer) inferReturn(fn *sitter.Node) TypeDesc {
	if fn.Type() == "generator_function_declaration" || fn.Type() == "generator_function" {
		return Unknown
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return Unknown
	}
	e := in.functionEnv(fn, in.envFor(fn))

	var result TypeDesc
	if body.Type() != "statement_block" {
		// Arrow function with an expression body.
		result = in.exprType(body, e)
	} else {
		var types []TypeDesc
		unresolved := false
		forEachOwn(body, func(n *sitter.Node) {
			if n.Type() != "return_statement" {
				return
			}
			if n.NamedChildCount() == 0 {
				types = append(types, Named("void"))
				return
			}
			t := in.exprType(n.NamedChild(0), e)
			if t.IsUnknown() {
				unresolved = true
			}
			types = append(types, t)
		})
		switch {
		case unresolved:
			result = Unknown
		case len(types) == 0:
			result = Named("void")
		default:
			result = union(types)
		}
	}
	if isAsync(fn) && !result.IsUnknown() {
		return Named("Promise<" + result.Name() + ">")
	}
	return result
}

func (in *Inferer) exprType(n *sitter.Node, e *env) TypeDesc {
	if n == nil {
		return Unknown
	}
	switch n.Type() {
	case "number":
		return Named("number")
	case "string", "template_string":
		return Named("string")
	case "true", "false":
		return Named("boolean")
	case "null":
		return Named("null")
	case "undefined":
		return Named("undefined")
	case "regex":
		return Named("RegExp")
	case "parenthesized_expression", "non_null_expression":
		if n.NamedChildCount() == 0 {
			return Unknown
		}
		return in.exprType(n.NamedChild(0), e)
	case "as_expression", "satisfies_expression":
		if n.NamedChildCount() < 2 {
			return Unknown
		}
		return Named(collapseSpace(nodeText(n.NamedChild(1), in.src)))
	case "identifier":
		return in.identifierType(nodeText(n, in.src), e)
	case "array":
		return in.arrayType(n, e)
	case "object":
		return in.objectType(n, e)
	case "unary_expression":
		return unaryType(n, in.src)
	case "update_expression":
		return Named("number")
	case "binary_expression":
		return in.binaryType(n, e)
	case "ternary_expression":
		return either(in.exprType(n.ChildByFieldName("consequence"), e),
			in.exprType(n.ChildByFieldName("alternative"), e))
	case "assignment_expression":
		return in.exprType(n.ChildByFieldName("right"), e)
	case "await_expression":
		if n.NamedChildCount() == 0 {
			return Unknown
		}
		t := in.exprType(n.NamedChild(0), e)
		if name := t.Name(); strings.HasPrefix(name, "Promise<") && strings.HasSuffix(name, ">") {
			return Named(name[len("Promise<") : len(name)-1])
		}
		return t
	case "new_expression":
		if c := n.ChildByFieldName("constructor"); c != nil {
			return Named(nodeText(c, in.src))
		}
	case "call_expression":
		return in.callType(n, e)
	case "member_expression":
		if p := n.ChildByFieldName("property"); p != nil && nodeText(p, in.src) == "length" {
			return Named("number")
		}
	case "arrow_function", "function_expression", "function":
		return in.signatureType(n, e)
	}
	return Unknown
}

func (in *Inferer) identifierType(name string, e *env) TypeDesc {
	switch name {
	case "undefined":
		return Named("undefined")
	case "NaN", "Infinity":
		return Named("number")
	}
	if t, ok := e.lookup(name); ok {
		return t
	}
	if fn, ok := in.functions[name]; ok {
		return in.signatureType(fn, in.globals)
	}
	return Unknown
}

// builtinCalls maps well-known global calls to their result types.
var builtinCalls = map[string]string{
	"String":         "string",
	"Number":         "number",
	"Boolean":        "boolean",
	"parseInt":       "number",
	"parseFloat":     "number",
	"isNaN":          "boolean",
	"JSON.stringify": "string",
	"Array.isArray":  "boolean",
	"Date.now":       "number",
}

func (in *Inferer) callType(n *sitter.Node, e *env) TypeDesc {
	callee := n.ChildByFieldName("function")
	if callee == nil {
		return Unknown
	}
	name := nodeText(callee, in.src)
	if t, ok := builtinCalls[name]; ok {
		return Named(t)
	}
	if strings.HasPrefix(name, "Math.") {
		return Named("number")
	}
	if callee.Type() == "identifier" {
		if fn, ok := in.functions[name]; ok {
			return in.returnType(fn)
		}
	}
	return Unknown
}

func (in *Inferer) arrayType(n *sitter.Node, e *env) TypeDesc {
	var elems []TypeDesc
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		t := in.exprType(c, e)
		if t.IsUnknown() {
			return Named("any[]")
		}
		elems = append(elems, t)
	}
	if len(elems) == 0 {
		return Named("any[]")
	}
	u := union(elems)
	if strings.Contains(u.Name(), " | ") {
		return Named("(" + u.Name() + ")[]")
	}
	return Named(u.Name() + "[]")
}

func (in *Inferer) objectType(n *sitter.Node, e *env) TypeDesc {
	var fields []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "pair":
			key := c.ChildByFieldName("key")
			if key == nil || key.Type() == "computed_property_name" {
				return Named("object")
			}
			t := in.exprType(c.ChildByFieldName("value"), e)
			if t.IsUnknown() {
				return Named("object")
			}
			fields = append(fields, nodeText(key, in.src)+": "+t.Name()+";")
		case "shorthand_property_identifier":
			name := nodeText(c, in.src)
			t := in.identifierType(name, e)
			if t.IsUnknown() {
				return Named("object")
			}
			fields = append(fields, name+": "+t.Name()+";")
		case "comment":
		default:
			return Named("object")
		}
	}
	if len(fields) == 0 {
		return Named("{}")
	}
	return Named("{ " + strings.Join(fields, " ") + " }")
}

func (in *Inferer) binaryType(n *sitter.Node, e *env) TypeDesc {
	op := nodeText(n.ChildByFieldName("operator"), in.src)
	switch op {
	case "==", "===", "!=", "!==", "<", ">", "<=", ">=", "instanceof", "in":
		return Named("boolean")
	case "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
		return Named("number")
	}
	left := in.exprType(n.ChildByFieldName("left"), e)
	right := in.exprType(n.ChildByFieldName("right"), e)
	switch op {
	case "+":
		if left.Name() == "string" || right.Name() == "string" {
			return Named("string")
		}
		if left.Name() == "number" && right.Name() == "number" {
			return Named("number")
		}
		return Unknown
	case "&&", "||", "??":
		return either(left, right)
	}
	return Unknown
}

// signatureType renders a function value as an arrow signature. A
// signature that refers back to itself through a default value is Unknown.
func (in *Inferer) signatureType(fn *sitter.Node, e *env) TypeDesc {
	key := keyOf(fn)
	if in.signing[key] {
		return Unknown
	}
	in.signing[key] = true
	defer delete(in.signing, key)

	var parts []string
	for _, p := range parameterNodes(fn) {
		t := in.paramType(p, e)
		parts = append(parts, typedParamName(p, in.src)+": "+t.String())
	}
	ret := in.returnType(fn)
	return Named("(" + strings.Join(parts, ", ") + ") => " + ret.String())
}

func unaryType(n *sitter.Node, src []byte) TypeDesc {
	switch nodeText(n.ChildByFieldName("operator"), src) {
	case "!":
		return Named("boolean")
	case "typeof":
		return Named("string")
	case "-", "+", "~":
		return Named("number")
	case "void":
		return Named("undefined")
	}
	return Unknown
}

// annotationType reads the type text out of a type annotation node.
func annotationType(ann *sitter.Node, src []byte) TypeDesc {
	switch ann.Type() {
	case "type_predicate_annotation":
		return Named("boolean")
	case "asserts_annotation":
		return Named("void")
	case "type_annotation":
		if ann.NamedChildCount() == 0 {
			return Unknown
		}
		return Named(collapseSpace(nodeText(ann.NamedChild(0), src)))
	}
	return Named(collapseSpace(nodeText(ann, src)))
}

// typedParamName names a TypeScript parameter by its pattern text. Rest
// parameters drop the spread token.
func typedParamName(p *sitter.Node, src []byte) string {
	target := p
	switch p.Type() {
	case "required_parameter", "optional_parameter":
		if pat := p.ChildByFieldName("pattern"); pat != nil {
			target = pat
		}
	case "assignment_pattern":
		if left := p.ChildByFieldName("left"); left != nil {
			target = left
		}
	}
	if target.Type() == "rest_pattern" && target.NamedChildCount() > 0 {
		target = target.NamedChild(0)
	}
	if name := collapseSpace(nodeText(target, src)); name != "" {
		return name
	}
	return unknownParamName
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

func isAsync(fn *sitter.Node) bool {
	for i := 0; i < int(fn.ChildCount()); i++ {
		c := fn.Child(i)
		if c.IsNamed() {
			continue
		}
		if c.Type() == "async" {
			return true
		}
	}
	return false
}

// forEachOwn visits the descendants of n without entering nested functions
// or classes.
func forEachOwn(n *sitter.Node, fn func(*sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		fn(c)
		if isFunctionNode(c) || c.Type() == "class_declaration" || c.Type() == "class" {
			continue
		}
		forEachOwn(c, fn)
	}
}

// union joins distinct types in first-seen order.
func union(types []TypeDesc) TypeDesc {
	seen := make(map[string]bool, len(types))
	var names []string
	for _, t := range types {
		if t.IsUnknown() {
			return Unknown
		}
		if !seen[t.Name()] {
			seen[t.Name()] = true
			names = append(names, t.Name())
		}
	}
	return Named(strings.Join(names, " | "))
}

func either(a, b TypeDesc) TypeDesc {
	if a.IsUnknown() || b.IsUnknown() {
		return Unknown
	}
	return union([]TypeDesc{a, b})
}
