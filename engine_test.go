package commentgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/commentgen/internal/extract"
	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/internal/runtime"
	"github.com/jward/commentgen/internal/synth"
)

const greetTS = `function greet(): string {
  return "hi";
}
`

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// fixedDescriber returns the same prose for every declaration.
type fixedDescriber struct {
	text synth.Text
}

func (f fixedDescriber) Describe(context.Context, Descriptor) synth.Text {
	return f.text
}

func TestNew_NoScriptHasNoDescriber(t *testing.T) {
	e := newTestEngine(t)
	assert.Nil(t, e.describer)
	assert.Equal(t, "jsdoc", e.Config().CommentStyle)
}

func TestNew_BadScriptHasHint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DescribeScript = filepath.Join(t.TempDir(), "missing.risor")
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "describeScript")
}

func TestNew_ScriptFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"describe/fixed.risor": {Data: []byte(`"Does the thing."`)},
	}
	cfg := DefaultConfig()
	cfg.DescribeScript = "describe/fixed.risor"
	e, err := New(cfg, WithScriptsFS(fsys))
	require.NoError(t, err)

	res, err := e.Comment(context.Background(), "a.ts", []byte(greetTS))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Contains(t, res.Records[0].Text, " * greet - Does the thing.\n")
}

func TestComment_Typed(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Comment(context.Background(), "greet.ts", []byte(greetTS))
	require.NoError(t, err)

	assert.Equal(t, runtime.Typed, res.Dialect)
	require.Len(t, res.Descriptors, 1)
	assert.Equal(t, "greet", res.Descriptors[0].Name)
	assert.Equal(t, "/**\n"+
		" * greet - Function to perform its intended operation.\n"+
		" * @returns {string} Result of the function.\n"+
		" */\n"+greetTS, res.Output)
}

func TestComment_TypedInfersReturn(t *testing.T) {
	e := newTestEngine(t)
	src := "function noop() {\n}\nfunction label() {\n  return `x`;\n}\n"
	res, err := e.Comment(context.Background(), "infer.ts", []byte(src))
	require.NoError(t, err)

	require.Len(t, res.Descriptors, 2)
	assert.Equal(t, "void", res.Descriptors[0].Returns.String())
	assert.Equal(t, "string", res.Descriptors[1].Returns.String())
}

func TestComment_SyntaxOnly(t *testing.T) {
	e := newTestEngine(t)
	src := "function add(a, b) {\n  return a + b;\n}\n"
	res, err := e.Comment(context.Background(), "add.js", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, runtime.SyntaxOnly, res.Dialect)
	assert.Equal(t, "/**\n"+
		" * add - Function to perform its intended operation.\n"+
		" * @param {any} a - Parameter a\n"+
		" * @param {any} b - Parameter b\n"+
		" * @returns {any} Result of the function.\n"+
		" */\n"+src, res.Output)
}

func TestComment_EmptyInput(t *testing.T) {
	e := newTestEngine(t)
	for _, path := range []string{"empty.ts", "empty.js"} {
		res, err := e.Comment(context.Background(), path, nil)
		require.NoError(t, err, path)
		assert.Empty(t, res.Records, path)
		assert.Equal(t, "", res.Output, path)
	}
}

func TestComment_InlineOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeInline = false
	e, err := New(cfg)
	require.NoError(t, err)

	src := "const limit = 3;\nfunction f() {\n  let x = 1;\n  return x;\n}\n"
	res, err := e.Comment(context.Background(), "f.ts", []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].Line)
	for _, d := range res.Descriptors {
		assert.Equal(t, extract.Function, d.Kind)
	}
}

func TestComment_SyntaxErrorOnlyFailsSyntaxOnly(t *testing.T) {
	e := newTestEngine(t)
	src := []byte("function ok() {}\nfunction (\n")

	_, err := e.Comment(context.Background(), "broken.js", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.js", perr.Path)

	res, err := e.Comment(context.Background(), "broken.ts", src)
	require.NoError(t, err)
	assert.Equal(t, runtime.Typed, res.Dialect)
}

func TestComment_WithDescriber(t *testing.T) {
	e := newTestEngine(t, WithDescriber(fixedDescriber{text: synth.Text{
		Summary: "Says hello.",
		Returns: "A greeting.",
	}}))
	res, err := e.Comment(context.Background(), "greet.ts", []byte(greetTS))
	require.NoError(t, err)
	assert.Contains(t, res.Output, " * greet - Says hello.\n")
	assert.Contains(t, res.Output, " * @returns {string} A greeting.\n")
}

func TestComment_WithResolver(t *testing.T) {
	called := false
	e := newTestEngine(t, WithResolver(func(root *sitter.Node, src []byte) extract.TypeResolver {
		called = true
		return extract.NewInferer(root, src)
	}))
	_, err := e.Comment(context.Background(), "greet.ts", []byte(greetTS))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestGenerateFile_WritesOutput(t *testing.T) {
	e := newTestEngine(t)
	path := writeSource(t, "greet.ts", greetTS)

	res, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, OutputPath(e.Config().OutputDir, path), res.OutputPath)
	assert.Equal(t, "commented_greet.ts", filepath.Base(res.OutputPath))
	assert.Equal(t, "typed", res.Dialect)
	assert.Equal(t, 1, res.Comments)

	got, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(got), "greet - Function to perform its intended operation.")
}

func TestGenerateFile_ParseErrorWritesNothing(t *testing.T) {
	e := newTestEngine(t)
	path := writeSource(t, "broken.js", "function (\n")

	res, err := e.GenerateFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageExtract)
	assert.Equal(t, StageExtract, res.Stage)
	assert.Contains(t, errors.FlattenHints(err), "plain JavaScript")
	assert.NoFileExists(t, res.OutputPath)
}

func TestGenerateFile_MissingInput(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.GenerateFile(context.Background(), filepath.Join(t.TempDir(), "nope.ts"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageRead)
	assert.Equal(t, StageRead, res.Stage)
}

func TestGenerateFile_StoreSkipsUnchanged(t *testing.T) {
	st := newTestStore(t)
	e := newTestEngine(t, WithStore(st))
	path := writeSource(t, "greet.ts", greetTS)

	first, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	f, err := st.FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	comments, err := st.CommentsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "greet", comments[0].Name)
	assert.Equal(t, "function", comments[0].Kind)

	second, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	// Changing the source invalidates the stored hash.
	require.NoError(t, os.WriteFile(path, []byte(greetTS+"const x = 1;\n"), 0o644))
	third, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, third.Skipped)
	assert.Equal(t, 2, third.Comments)
}

func TestGenerateFile_RegeneratesMissingOutput(t *testing.T) {
	st := newTestStore(t)
	e := newTestEngine(t, WithStore(st))
	path := writeSource(t, "greet.ts", greetTS)

	res, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(res.OutputPath))

	res, err = e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.FileExists(t, res.OutputPath)
}

func TestGenerateFile_Force(t *testing.T) {
	st := newTestStore(t)
	e := newTestEngine(t, WithStore(st), WithForce(true))
	path := writeSource(t, "greet.ts", greetTS)

	_, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	res, err := e.GenerateFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestGenerateFiles_OrderAndRun(t *testing.T) {
	st := newTestStore(t)
	e := newTestEngine(t, WithStore(st), WithJobs(2))
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	paths := []string{
		writeSource(t, "a.ts", greetTS),
		writeSource(t, "b.js", "function (\n"),
		writeSource(t, "c.js", "const a = 1;\nconst b = 2;\n"),
	}
	results, err := e.GenerateFiles(context.Background(), paths)
	require.Error(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Error(t, results[1].Err())
	assert.Equal(t, 2, results[2].Comments)

	runID := results[0].RunID
	require.NotEmpty(t, runID)
	runs, err := st.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Files)
	assert.Equal(t, 3, runs[0].Comments)
	assert.Equal(t, 1, runs[0].Failed)
	require.NotNil(t, runs[0].FinishedAt)

	files, err := st.FilesByRun(runID)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGenerateFiles_MultipleFailures(t *testing.T) {
	e := newTestEngine(t)
	paths := []string{
		writeSource(t, "a.js", "function (\n"),
		writeSource(t, "b.js", "function (\n"),
	}
	results, err := e.GenerateFiles(context.Background(), paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 files failed")
	assert.Len(t, results, 2)
}

func TestGenerateFiles_LogsFailingStage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	e := newTestEngine(t, WithLogger(zap.New(core).Sugar()))
	paths := []string{
		writeSource(t, "ok.ts", greetTS),
		writeSource(t, "broken.js", "function (\n"),
	}
	results, err := e.GenerateFiles(context.Background(), paths)
	require.Error(t, err)
	assert.Empty(t, results[0].Stage)
	assert.Equal(t, StageExtract, results[1].Stage)

	entries := logs.FilterMessage("generation failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, paths[1], fields[logger.FieldFile])
	assert.Equal(t, StageExtract, fields[logger.FieldStage])
	assert.Contains(t, fields[logger.FieldError], "extract")
}

func TestGenerateFiles_Empty(t *testing.T) {
	e := newTestEngine(t)
	results, err := e.GenerateFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("output", "commented_app.ts"), OutputPath("output", filepath.Join("src", "app.ts")))
	assert.Equal(t, filepath.Join("out", "commented_README.md"), OutputPath("out", "README.md"))
}
