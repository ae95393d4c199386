package extract

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractTS(t *testing.T, src string, opts ...Option) []Descriptor {
	t.Helper()
	x := NewTypedExtractor(ts.GetLanguage(), nil, opts...)
	descs, err := x.Extract(context.Background(), "test.ts", []byte(src))
	require.NoError(t, err)
	return descs
}

func extractJS(t *testing.T, src string, opts ...Option) []Descriptor {
	t.Helper()
	x := NewSyntaxOnlyExtractor(javascript.GetLanguage(), opts...)
	descs, err := x.Extract(context.Background(), "test.js", []byte(src))
	require.NoError(t, err)
	return descs
}

func functions(descs []Descriptor) []Descriptor {
	var out []Descriptor
	for _, d := range descs {
		if d.Kind == Function {
			out = append(out, d)
		}
	}
	return out
}

func variables(descs []Descriptor) []Descriptor {
	var out []Descriptor
	for _, d := range descs {
		if d.Kind == Variable {
			out = append(out, d)
		}
	}
	return out
}

// ---------- Typed ----------

func TestTyped_AnnotatedFunction(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "function multiply(x: number, y: number): number { return x * y; }")

	require.Len(t, descs, 1)
	fn := descs[0]
	assert.Equal(t, Function, fn.Kind)
	assert.Equal(t, "multiply", fn.Name)
	assert.Equal(t, 0, fn.Line)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, Param{Name: "x", Type: Named("number")}, fn.Params[0])
	assert.Equal(t, Param{Name: "y", Type: Named("number")}, fn.Params[1])
	assert.Equal(t, "number", fn.Returns.String())
}

func TestTyped_AnnotationTextIsKept(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, `function pick(items: Array<string>, opts?: { limit: number }): Map<string, number[]> {
  return new Map();
}
`)
	require.Len(t, descs, 1)
	fn := descs[0]
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "Array<string>", fn.Params[0].Type.String())
	assert.Equal(t, "opts", fn.Params[1].Name)
	assert.Equal(t, "{ limit: number }", fn.Params[1].Type.String())
	assert.Equal(t, "Map<string, number[]>", fn.Returns.String())
}

func TestTyped_UnannotatedParamFallsBackToUnknown(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "function echo(value) { return value; }")

	require.Len(t, descs, 1)
	require.Len(t, descs[0].Params, 1)
	assert.True(t, descs[0].Params[0].Type.IsUnknown())
	assert.Equal(t, "any", descs[0].Params[0].Type.String())
	assert.True(t, descs[0].Returns.IsUnknown())
}

func TestTyped_DefaultValueInference(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, `function repeat(text = "ab", times = 3, loud = false) {
  return text.length * times;
}
`)
	require.Len(t, descs, 1)
	fn := descs[0]
	require.Len(t, fn.Params, 3)
	assert.Equal(t, "string", fn.Params[0].Type.String())
	assert.Equal(t, "number", fn.Params[1].Type.String())
	assert.Equal(t, "boolean", fn.Params[2].Type.String())
	assert.Equal(t, "number", fn.Returns.String())
}

func TestTyped_ZeroParams(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "function noop() {}\n")

	require.Len(t, descs, 1)
	assert.NotNil(t, descs[0].Params)
	assert.Empty(t, descs[0].Params)
	assert.Equal(t, "void", descs[0].Returns.String())
}

func TestTyped_RestParameterName(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "function sum(...values: number[]): number { return 0; }\n")

	require.Len(t, descs, 1)
	require.Len(t, descs[0].Params, 1)
	assert.Equal(t, "values", descs[0].Params[0].Name)
	assert.Equal(t, "number[]", descs[0].Params[0].Type.String())
}

func TestTyped_AnonymousDefaultExport(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "export default function (a: string) {}\n")

	fns := functions(descs)
	require.Len(t, fns, 1)
	assert.Equal(t, "anonymous", fns[0].Name)
	assert.Equal(t, 0, fns[0].Line)
}

func TestTyped_ExportedFunctionLine(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, "\n\nexport function f(): void {}\n")

	fns := functions(descs)
	require.Len(t, fns, 1)
	assert.Equal(t, "f", fns[0].Name)
	assert.Equal(t, 2, fns[0].Line)
}

func TestTyped_OverloadsAndAmbientDeclarations(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, `declare function ext(x: number): string;
function f(a: string): string;
function f(a: number): number;
function f(a: any): any { return a; }
`)

	fns := functions(descs)
	require.Len(t, fns, 4)
	assert.Equal(t, "ext", fns[0].Name)
	assert.Equal(t, 0, fns[0].Line)
	assert.Equal(t, "number", fns[0].Params[0].Type.String())
	assert.Equal(t, "string", fns[0].Returns.String())

	for i, want := range []string{"string", "number", "any"} {
		fn := fns[i+1]
		assert.Equal(t, "f", fn.Name)
		assert.Equal(t, i+1, fn.Line)
		assert.Equal(t, want, fn.Params[0].Type.String())
		assert.Equal(t, want, fn.Returns.String())
	}
}

func TestTyped_ScopeFilter(t *testing.T) {
	t.Parallel()
	src := `const limit = 10;
function run(n: number): number {
  let total = 0, count = 1;
  const step = () => {
    const inner = 2;
    return inner;
  };
  return total + count;
}
`
	vars := variables(extractTS(t, src))
	require.Len(t, vars, 5)

	assert.Equal(t, "limit", vars[0].Name)
	assert.Equal(t, TopLevel, vars[0].Scope)
	assert.Equal(t, 0, vars[0].Line)

	assert.Equal(t, "total", vars[1].Name)
	assert.Equal(t, FunctionLocal, vars[1].Scope)
	assert.Equal(t, 2, vars[1].Line)
	assert.Equal(t, "count", vars[2].Name)
	assert.Equal(t, FunctionLocal, vars[2].Scope)

	assert.Equal(t, "step", vars[3].Name)
	assert.Equal(t, "inner", vars[4].Name)
	assert.Equal(t, FunctionLocal, vars[4].Scope)
	assert.Equal(t, 4, vars[4].Line)
}

func TestTyped_TopLevelStatementUsesFirstDeclarator(t *testing.T) {
	t.Parallel()
	vars := variables(extractTS(t, "let a = 1, b = 2;\n"))

	require.Len(t, vars, 1)
	assert.Equal(t, "a", vars[0].Name)
	assert.Equal(t, TopLevel, vars[0].Scope)
}

func TestTyped_TopLevelLoopHeadSkipped(t *testing.T) {
	t.Parallel()
	vars := variables(extractTS(t, "for (let i = 0; i < 3; i++) {}\n"))
	assert.Empty(t, vars)
}

func TestTyped_WithoutVariables(t *testing.T) {
	t.Parallel()
	src := `const limit = 10;
function run(): void {
  const local = 1;
}
`
	descs := extractTS(t, src, WithVariables(false))
	require.Len(t, descs, 1)
	assert.Equal(t, Function, descs[0].Kind)
}

func TestTyped_NestedFunctionScope(t *testing.T) {
	t.Parallel()
	descs := extractTS(t, `function outer(): void {
  function inner(): void {}
}
`)
	fns := functions(descs)
	require.Len(t, fns, 2)
	assert.Equal(t, TopLevel, fns[0].Scope)
	assert.Equal(t, "inner", fns[1].Name)
	assert.Equal(t, FunctionLocal, fns[1].Scope)
	assert.Equal(t, 1, fns[1].Line)
}

type fixedResolver struct{ t TypeDesc }

func (r fixedResolver) TypeOf(*sitter.Node) TypeDesc       { return r.t }
func (r fixedResolver) ReturnTypeOf(*sitter.Node) TypeDesc { return r.t }

type panicResolver struct{}

func (panicResolver) TypeOf(*sitter.Node) TypeDesc       { panic("boom") }
func (panicResolver) ReturnTypeOf(*sitter.Node) TypeDesc { panic("boom") }

func TestTyped_InjectedResolver(t *testing.T) {
	t.Parallel()
	newResolver := func(*sitter.Node, []byte) TypeResolver {
		return fixedResolver{t: Named("Custom")}
	}
	x := NewTypedExtractor(ts.GetLanguage(), newResolver)
	descs, err := x.Extract(context.Background(), "a.ts", []byte("function f(a, b: string) {}\n"))
	require.NoError(t, err)

	require.Len(t, descs, 1)
	assert.Equal(t, "Custom", descs[0].Params[0].Type.String())
	assert.Equal(t, "string", descs[0].Params[1].Type.String(), "annotation wins over the resolver")
	assert.Equal(t, "Custom", descs[0].Returns.String())
}

func TestTyped_PanickingResolverDegradesToUnknown(t *testing.T) {
	t.Parallel()
	newResolver := func(*sitter.Node, []byte) TypeResolver { return panicResolver{} }
	x := NewTypedExtractor(ts.GetLanguage(), newResolver)
	descs, err := x.Extract(context.Background(), "a.ts", []byte("function f(a) {}\n"))
	require.NoError(t, err)

	require.Len(t, descs, 1)
	assert.True(t, descs[0].Params[0].Type.IsUnknown())
	assert.True(t, descs[0].Returns.IsUnknown())
}

func TestTyped_SyntaxErrorIsReportedNotFatal(t *testing.T) {
	t.Parallel()
	var reported *ParseError
	x := NewTypedExtractor(ts.GetLanguage(), nil).OnSyntaxError(func(perr *ParseError) {
		reported = perr
	})
	descs, err := x.Extract(context.Background(), "a.ts", []byte("function ok(): void {}\nconst = ;\n"))
	require.NoError(t, err)
	require.NotNil(t, reported)
	assert.True(t, errors.Is(reported, ErrParse))
	assert.NotEmpty(t, functions(descs))
}

// ---------- Syntax-only ----------

func TestSyntaxOnly_FunctionParams(t *testing.T) {
	t.Parallel()
	descs := extractJS(t, "function f(a, b = 2, { c }, ...rest) {}\n")

	require.Len(t, descs, 1)
	fn := descs[0]
	assert.Equal(t, "f", fn.Name)
	require.Len(t, fn.Params, 4)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	assert.Equal(t, "unknown", fn.Params[2].Name)
	assert.Equal(t, "unknown", fn.Params[3].Name)
	for _, p := range fn.Params {
		assert.True(t, p.Type.IsUnknown())
	}
	assert.True(t, fn.Returns.IsUnknown())
}

func TestSyntaxOnly_VariablesAtAnyDepthAreTopLevel(t *testing.T) {
	t.Parallel()
	src := `var a = 1;
function g() {
  let b = 2;
  for (let i = 0; i < b; i++) {}
}
`
	vars := variables(extractJS(t, src))
	require.Len(t, vars, 3)
	assert.Equal(t, "a", vars[0].Name)
	assert.Equal(t, "b", vars[1].Name)
	assert.Equal(t, 2, vars[1].Line)
	assert.Equal(t, "i", vars[2].Name)
	for _, v := range vars {
		assert.Equal(t, TopLevel, v.Scope)
	}
}

func TestSyntaxOnly_DestructuredVariableIsUnknown(t *testing.T) {
	t.Parallel()
	vars := variables(extractJS(t, "const { a, b } = obj;\n"))
	require.Len(t, vars, 1)
	assert.Equal(t, "unknown", vars[0].Name)
}

func TestSyntaxOnly_WithoutVariables(t *testing.T) {
	t.Parallel()
	descs := extractJS(t, "var a = 1;\nfunction g() {}\n", WithVariables(false))
	require.Len(t, descs, 1)
	assert.Equal(t, "g", descs[0].Name)
}

func TestSyntaxOnly_JSX(t *testing.T) {
	t.Parallel()
	descs := extractJS(t, "function App() {\n  return <div>hi</div>;\n}\n")
	require.Len(t, descs, 1)
	assert.Equal(t, "App", descs[0].Name)
}

func TestSyntaxOnly_ParseFailure(t *testing.T) {
	t.Parallel()
	x := NewSyntaxOnlyExtractor(javascript.GetLanguage())
	descs, err := x.Extract(context.Background(), "bad.js", []byte("function ok() {}\nfunction (\n"))
	require.Error(t, err)
	assert.Nil(t, descs)
	assert.True(t, errors.Is(err, ErrParse))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.js", perr.Path)
	assert.GreaterOrEqual(t, perr.Line, 2)
}

func TestSyntaxOnly_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, extractJS(t, ""))
}
