package commentgen

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jward/commentgen/internal/config"
	"github.com/jward/commentgen/internal/extract"
	"github.com/jward/commentgen/internal/insert"
	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/internal/runtime"
	"github.com/jward/commentgen/internal/store"
	"github.com/jward/commentgen/internal/synth"
)

// Engine runs the comment pipeline: route a file to its dialect, extract
// declarations, synthesize comment text, and splice it into the source.
type Engine struct {
	cfg         config.Config
	store       *store.Store
	describer   synth.Describer
	resolver    extract.ResolverFunc
	scriptsFS   fs.FS
	log         *zap.SugaredLogger
	force       bool
	jobs        int
	fingerprint string // settings and script source, folded into history hashes
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore records every generation in s and skips files whose content
// and settings are unchanged since the last recorded run.
func WithStore(s *Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithDescriber supplies comment prose. It takes precedence over the
// config's describeScript.
func WithDescriber(d synth.Describer) Option {
	return func(e *Engine) {
		e.describer = d
	}
}

// WithResolver replaces the type resolver used on the typed path.
func WithResolver(r extract.ResolverFunc) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithScriptsFS loads the config's describeScript from fsys instead of
// from disk. This enables scripts embedded via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithForce regenerates files even when the history store says they are
// unchanged.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// WithJobs bounds the number of files processed at once. Zero or less
// means one per CPU. Overrides the config's jobs setting.
func WithJobs(n int) Option {
	return func(e *Engine) {
		e.jobs = n
	}
}

// New creates an Engine for cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:  cfg,
		jobs: cfg.Jobs,
		log:  zap.NewNop().Sugar(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.fingerprint = cfg.Fingerprint()
	if e.describer == nil && cfg.DescribeScript != "" {
		rtOpts := []runtime.RuntimeOption{runtime.WithLogger(e.log)}
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
		}
		rt, err := runtime.NewRuntime(cfg.DescribeScript, rtOpts...)
		if err != nil {
			return nil, errors.WithHint(
				errors.Wrap(err, "commentgen: describe script"),
				"check describeScript in the config file")
		}
		e.describer = rt
		e.fingerprint = cfg.FingerprintWithScript(rt.Source())
	}
	return e, nil
}

// Config returns the engine's resolved configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Result is the outcome of commenting one source text.
type Result struct {
	Path        string
	Dialect     runtime.Dialect
	Descriptors []Descriptor
	Records     []insert.Record
	Output      string

	// sources[i] is the descriptor Records[i] was rendered from.
	sources []Descriptor
}

// ExtractorFor returns the extractor that handles path.
func (e *Engine) ExtractorFor(path string) extract.Extractor {
	lang := runtime.GrammarFor(path)
	vars := extract.WithVariables(e.cfg.IncludeInline)
	if runtime.Route(path) == runtime.SyntaxOnly {
		return extract.NewSyntaxOnlyExtractor(lang, vars)
	}
	return extract.NewTypedExtractor(lang, e.resolver, vars).
		OnSyntaxError(func(perr *extract.ParseError) {
			e.log.Warnw("syntax error tolerated on typed path",
				logger.FieldFile, perr.Path,
				logger.FieldLine, perr.Line,
				logger.FieldColumn, perr.Column)
		})
}

// Comment runs the pipeline on src. path only selects the dialect and
// labels errors; nothing is read or written.
func (e *Engine) Comment(ctx context.Context, path string, src []byte) (*Result, error) {
	descs, err := e.ExtractorFor(path).Extract(ctx, path, src)
	if err != nil {
		return nil, err
	}
	syn := synth.New(e.cfg.Style(), e.describer)
	var records []insert.Record
	var sources []Descriptor
	for _, d := range descs {
		if rec, ok := syn.Record(ctx, d); ok {
			records = append(records, rec)
			sources = append(sources, d)
		}
	}

	var insertOpts []insert.Option
	if e.cfg.MatchIndent {
		insertOpts = append(insertOpts, insert.MatchIndent())
	}
	return &Result{
		Path:        path,
		Dialect:     runtime.Route(path),
		Descriptors: descs,
		Records:     records,
		Output:      insert.Apply(string(src), records, insertOpts...),
		sources:     sources,
	}, nil
}

// FileResult reports what GenerateFile did for one path.
type FileResult struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
	Dialect    string `json:"dialect"`
	Comments   int    `json:"comments"`
	Skipped    bool   `json:"skipped,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`

	err error
}

// Err returns the error that stopped this file, if any.
func (r *FileResult) Err() error {
	return r.err
}

// GenerateFile comments the file at path and writes the result to
// OutputPath. A parse failure on the syntax-only path writes nothing.
func (e *Engine) GenerateFile(ctx context.Context, path string) (*FileResult, error) {
	return e.generateFile(ctx, path, "")
}

func (e *Engine) generateFile(ctx context.Context, path, runID string) (*FileResult, error) {
	start := e.now()
	out := OutputPath(e.cfg.OutputDir, path)
	res := &FileResult{Path: path, OutputPath: out, Dialect: runtime.Route(path).String(), RunID: runID}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Stage = StageRead
		return res, errors.Wrapf(err, "%s %s", StageRead, path)
	}

	hash := store.ContentHash(src, e.fingerprint)
	if e.unchanged(path, hash, out) {
		res.Skipped = true
		e.log.Debugw("unchanged, skipping", logger.FieldFile, path)
		return res, nil
	}

	result, err := e.Comment(ctx, path, src)
	if err != nil {
		res.Stage = StageExtract
		err = errors.Wrapf(err, "%s %s", StageExtract, path)
		if errors.Is(err, extract.ErrParse) && runtime.Route(path) == runtime.SyntaxOnly {
			err = errors.WithHint(err, "files without a .ts, .tsx, .mts or .cts suffix are parsed as plain JavaScript")
		}
		return res, err
	}
	res.Comments = len(result.Records)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		res.Stage = StageWrite
		return res, errors.Wrapf(err, "%s %s", StageWrite, out)
	}
	if err := os.WriteFile(out, []byte(result.Output), 0o644); err != nil {
		res.Stage = StageWrite
		return res, errors.Wrapf(err, "%s %s", StageWrite, out)
	}

	if err := e.record(result, hash, out, runID); err != nil {
		res.Stage = StageHistory
		return res, errors.Wrapf(err, "%s %s", StageHistory, path)
	}

	e.log.Infow("generated",
		logger.FieldFile, path,
		logger.FieldOutput, out,
		logger.FieldDialect, res.Dialect,
		logger.FieldCount, res.Comments,
		logger.FieldDurationMS, e.now().Sub(start).Milliseconds())
	return res, nil
}

// unchanged reports whether the store already holds output for this exact
// input and the output file still exists.
func (e *Engine) unchanged(path, hash, out string) bool {
	if e.store == nil || e.force {
		return false
	}
	existing, err := e.store.FileByPath(path)
	if err != nil || existing == nil {
		return false
	}
	if existing.Hash != hash || existing.OutputPath != out {
		return false
	}
	_, err = os.Stat(out)
	return err == nil
}

// record stores the file and its comments in the history store.
func (e *Engine) record(result *Result, hash, out, runID string) error {
	if e.store == nil {
		return nil
	}
	f := &store.File{
		Path:          result.Path,
		Dialect:       result.Dialect.String(),
		Hash:          hash,
		OutputPath:    out,
		RunID:         runID,
		LastGenerated: e.now(),
	}
	if _, err := e.store.UpsertFile(f); err != nil {
		return err
	}
	return e.store.ReplaceComments(f.ID, commentRows(result))
}

// commentRows converts a result's records into history rows.
func commentRows(result *Result) []store.Comment {
	rows := make([]store.Comment, 0, len(result.Records))
	for i, rec := range result.Records {
		d := result.sources[i]
		rows = append(rows, store.Comment{
			Line:  rec.Line,
			Kind:  d.Kind.String(),
			Name:  d.Name,
			Scope: d.Scope.String(),
			Text:  rec.Text,
		})
	}
	return rows
}
