package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file...>",
	Short: "Regenerate commented copies whenever the inputs change",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating a changed file")
	watchCmd.Flags().BoolVar(&flagForce, "force", false, "regenerate files the history store reports as unchanged")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return outputError(cmd, "watch", errors.Wrapf(err, "resolve %s", a))
		}
		paths = append(paths, abs)
	}

	engine, closeFn, err := newEngine(loadConfig())
	if err != nil {
		return outputError(cmd, "watch", err)
	}
	defer closeFn()

	results, err := engine.GenerateFiles(ctx, paths)
	if err != nil {
		logger.Errorw("initial generation failed", logger.FieldError, err)
	}
	out := make([]CLIGenerated, 0, len(results))
	for _, r := range results {
		out = append(out, toCLIGenerated(r))
	}
	if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "watch", Results: out}); err != nil {
		return err
	}

	w, err := watch.New(paths, func(ctx context.Context, path string) error {
		_, err := engine.GenerateFiles(ctx, []string{path})
		return err
	}, watch.WithDebounce(flagDebounce), watch.WithLogger(logger.Named("watch")))
	if err != nil {
		return outputError(cmd, "watch", err)
	}
	logger.Infow("watching for changes", logger.FieldCount, len(paths))
	return w.Run(ctx)
}
