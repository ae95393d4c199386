// Package runtime routes source files to a dialect and hosts the Risor VM
// that runs user description scripts.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/commentgen/internal/extract"
	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/internal/synth"
)

const defaultCacheSize = 1024

// Runtime embeds a Risor VM and runs a description script once per
// declaration. It implements synth.Describer.
type Runtime struct {
	label  string
	source string
	fsys   fs.FS
	cache  *lru.Cache[string, synth.Text]
	size   int
	log    *zap.SugaredLogger
}

var _ synth.Describer = (*Runtime)(nil)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts from fsys instead of from disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithCacheSize bounds the number of memoized descriptions.
func WithCacheSize(n int) RuntimeOption {
	return func(r *Runtime) {
		r.size = n
	}
}

// WithLogger routes script log calls and script failures to l.
func WithLogger(l *zap.SugaredLogger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// NewRuntime loads the script at scriptPath and returns a Runtime ready to
// describe declarations.
func NewRuntime(scriptPath string, opts ...RuntimeOption) (*Runtime, error) {
	r := newRuntime(scriptPath, opts)
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	r.source = src
	return r, r.initCache()
}

// Source returns the script text the Runtime executes.
func (r *Runtime) Source() string {
	return r.source
}

// NewRuntimeFromSource builds a Runtime around inline Risor source.
func NewRuntimeFromSource(source string, opts ...RuntimeOption) (*Runtime, error) {
	r := newRuntime("<inline>", opts)
	r.source = source
	return r, r.initCache()
}

func newRuntime(label string, opts []RuntimeOption) *Runtime {
	r := &Runtime{
		label: label,
		size:  defaultCacheSize,
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) initCache() error {
	size := r.size
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, synth.Text](size)
	if err != nil {
		return errors.Wrap(err, "runtime: create cache")
	}
	r.cache = cache
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", errors.Wrapf(err, "runtime: loading script %s from fs", fsPath)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "runtime: loading script %s", path)
	}
	return string(data), nil
}

// Describe implements synth.Describer. Script failures and empty results
// yield the zero Text so the default prose is used.
func (r *Runtime) Describe(ctx context.Context, d extract.Descriptor) synth.Text {
	key := cacheKey(d)
	if text, ok := r.cache.Get(key); ok {
		return text
	}
	result, err := r.RunSource(ctx, r.source, map[string]any{"decl": declObject(d)})
	if err != nil {
		r.log.Warnw("description script failed",
			logger.FieldScript, r.label,
			logger.FieldName, d.Name,
			logger.FieldError, err)
		return synth.Text{}
	}
	text := textFromObject(result)
	r.cache.Add(key, text)
	return text
}

// RunSource evaluates Risor source with the standard globals plus extra,
// returning the value of the final expression.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)
	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "runtime: script %s", r.label)
	}
	return result, nil
}

// buildGlobals constructs the full set of globals exposed to scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"humanize": makeHumanizeFn(),
		"log":      mustProxy(&logObject{log: r.log, script: r.label}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

// declObject exposes a descriptor to scripts as a map.
func declObject(d extract.Descriptor) *object.Map {
	params := make([]object.Object, 0, len(d.Params))
	for _, p := range d.Params {
		params = append(params, object.NewMap(map[string]object.Object{
			"name": object.NewString(p.Name),
			"type": object.NewString(p.Type.String()),
		}))
	}
	return object.NewMap(map[string]object.Object{
		"kind":    object.NewString(d.Kind.String()),
		"name":    object.NewString(d.Name),
		"line":    object.NewInt(int64(d.Line)),
		"scope":   object.NewString(d.Scope.String()),
		"params":  object.NewList(params),
		"returns": object.NewString(d.Returns.String()),
	})
}

// textFromObject accepts either a string (the summary) or a map with
// optional summary, returns and params keys.
func textFromObject(obj object.Object) synth.Text {
	switch v := obj.(type) {
	case *object.String:
		return synth.Text{Summary: v.Value()}
	case *object.Map:
		var text synth.Text
		items := v.Value()
		if s, ok := items["summary"].(*object.String); ok {
			text.Summary = s.Value()
		}
		if s, ok := items["returns"].(*object.String); ok {
			text.Returns = s.Value()
		}
		if m, ok := items["params"].(*object.Map); ok {
			text.Params = make(map[string]string)
			for name, val := range m.Value() {
				if s, ok := val.(*object.String); ok {
					text.Params[name] = s.Value()
				}
			}
		}
		return text
	}
	return synth.Text{}
}

func cacheKey(d extract.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s|%s", d.Kind, d.Name, d.Line, d.Scope, d.Returns)
	for _, p := range d.Params {
		fmt.Fprintf(&b, "|%s:%s", p.Name, p.Type)
	}
	return b.String()
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
