package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jward/commentgen"
	"github.com/jward/commentgen/internal/config"
	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/scripts"
)

var (
	flagConfig  string
	flagFormat  string
	flagDB      string
	flagLogJSON bool
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		if !errorHandled {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printError writes "Error: <message>" followed by any hints attached to err.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
	if hints := errors.FlattenHints(err); hints != "" {
		for _, line := range strings.Split(hints, "\n") {
			fmt.Fprintf(w, "Hint: %s\n", line)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:           "commentgen [file...]",
	Short:         "Generate documentation comments for TypeScript and JavaScript",
	Long:          "Commentgen parses TypeScript and JavaScript sources with tree-sitter, synthesizes a comment for every function and variable declaration, and writes a commented copy of each file.",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return logger.Initialize(flagLogJSON, flagVerbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runGenerate(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "history database path (history is off when empty)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON on stderr")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	addGenerateFlags(rootCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

var (
	flagStdout bool
	flagForce  bool
	flagJobs   int
)

var generateCmd = &cobra.Command{
	Use:   "generate <file...>",
	Short: "Write a commented copy of each file",
	Long:  "Writes <outputDir>/commented_<name> for every input file. Files ending in .ts, .tsx, .mts or .cts are type-inferred; everything else is parsed as plain JavaScript.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	addGenerateFlags(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagStdout, "stdout", false, "print the commented source of a single file instead of writing it")
	cmd.Flags().BoolVar(&flagForce, "force", false, "regenerate files the history store reports as unchanged")
	cmd.Flags().IntVar(&flagJobs, "jobs", 0, "files processed in parallel (default: config jobs, then one per CPU)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := loadConfig()

	if flagStdout {
		if len(args) != 1 {
			return outputError(cmd, "generate", errors.New("--stdout takes exactly one file"))
		}
		return printCommented(ctx, cmd, cfg, args[0])
	}

	engine, closeFn, err := newEngine(cfg)
	if err != nil {
		return outputError(cmd, "generate", err)
	}
	defer closeFn()

	results, genErr := engine.GenerateFiles(ctx, args)
	out := make([]CLIGenerated, 0, len(results))
	runID := ""
	for _, r := range results {
		out = append(out, toCLIGenerated(r))
		if r.RunID != "" {
			runID = r.RunID
		}
	}
	if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "generate", Results: out, RunID: runID}); err != nil {
		return err
	}
	return genErr
}

// printCommented writes the commented source of path to stdout.
func printCommented(ctx context.Context, cmd *cobra.Command, cfg commentgen.Config, path string) error {
	engine, err := commentgen.New(cfg, engineOptions(cfg)...)
	if err != nil {
		return outputError(cmd, "generate", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return outputError(cmd, "generate", errors.Wrapf(err, "%s %s", commentgen.StageRead, path))
	}
	res, err := engine.Comment(ctx, path, src)
	if err != nil {
		return outputError(cmd, "generate", errors.Wrapf(err, "%s %s", commentgen.StageExtract, path))
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return err
}

func toCLIGenerated(r *commentgen.FileResult) CLIGenerated {
	status := "generated"
	switch {
	case r.Error != "":
		status = "failed"
	case r.Skipped:
		status = "unchanged"
	}
	return CLIGenerated{
		Path:       r.Path,
		OutputPath: r.OutputPath,
		Dialect:    r.Dialect,
		Comments:   r.Comments,
		Status:     status,
		Error:      r.Error,
	}
}

// loadConfig reads --config, logging (not failing) when defaults are used.
func loadConfig() commentgen.Config {
	cfg, err := commentgen.LoadConfig(flagConfig)
	if err != nil {
		logger.Debugw("using default config",
			logger.FieldFile, flagConfig,
			logger.FieldError, err)
	}
	return cfg
}

// engineOptions builds the options shared by every command that runs the
// pipeline.
func engineOptions(cfg commentgen.Config) []commentgen.Option {
	opts := []commentgen.Option{
		commentgen.WithLogger(logger.Named("engine")),
		commentgen.WithForce(flagForce),
	}
	if flagJobs > 0 {
		opts = append(opts, commentgen.WithJobs(flagJobs))
	}
	if useEmbeddedScript(cfg.DescribeScript) {
		opts = append(opts, commentgen.WithScriptsFS(scripts.FS))
	}
	return opts
}

// useEmbeddedScript reports whether path names a bundled script rather
// than a file on disk.
func useEmbeddedScript(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return false
	}
	_, err := fs.Stat(scripts.FS, filepath.ToSlash(path))
	return err == nil
}

// newEngine creates an Engine, attaching the history store when --db is set.
// The returned func releases the store.
func newEngine(cfg commentgen.Config) (*commentgen.Engine, func(), error) {
	opts := engineOptions(cfg)
	closeFn := func() {}
	if flagDB != "" {
		st, err := openStore()
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { st.Close() }
		opts = append(opts, commentgen.WithStore(st))
	}
	engine, err := commentgen.New(cfg, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return engine, closeFn, nil
}

func openStore() (*commentgen.Store, error) {
	if dir := filepath.Dir(flagDB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating %s", dir)
		}
	}
	st, err := commentgen.OpenStore(flagDB)
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database %s", flagDB)
	}
	return st, nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		printError(cmd.ErrOrStderr(), err)
		return err
	}
	_ = outputResult(cmd.OutOrStdout(), CLIResult{Command: command, Error: err.Error()})
	return err
}
