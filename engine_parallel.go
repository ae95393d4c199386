package commentgen

import (
	"context"
	goruntime "runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jward/commentgen/internal/logger"
	"github.com/jward/commentgen/internal/store"
)

// GenerateFiles runs GenerateFile for every path with a bounded worker pool.
// Results come back in the order of paths. A failing file does not stop the
// others; its error is kept on its FileResult and the first failure is
// returned once all files are done. With a store attached, the batch is
// recorded as one run.
func (e *Engine) GenerateFiles(ctx context.Context, paths []string) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	var run *store.Run
	if e.store != nil {
		var err error
		if run, err = e.store.StartRun(e.now()); err != nil {
			return nil, errors.Wrap(err, StageHistory)
		}
	}
	runID := ""
	if run != nil {
		runID = run.ID
	}

	numWorkers := e.jobs
	if numWorkers <= 0 {
		numWorkers = goruntime.NumCPU()
	}
	numWorkers = min(numWorkers, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.generateFile(gctx, path, runID)
			if err != nil {
				res.err = err
				res.Error = err.Error()
				e.log.Errorw("generation failed",
					logger.FieldFile, path,
					logger.FieldStage, res.Stage,
					logger.FieldError, err)
			}
			results[i] = res
			return nil
		})
	}
	waitErr := g.Wait()

	var firstErr error
	failed := 0
	for i, res := range results {
		if res == nil {
			results[i] = &FileResult{Path: paths[i], Error: "not processed"}
			failed++
			continue
		}
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
		}
	}

	if run != nil {
		for _, res := range results {
			switch {
			case res.Skipped:
				run.Skipped++
			case res.err == nil && res.Error == "":
				run.Files++
				run.Comments += res.Comments
			}
		}
		run.Failed = failed
		if err := e.store.FinishRun(run, e.now()); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, StageHistory)
		}
		e.log.Infow("run finished",
			logger.FieldRunID, run.ID,
			logger.FieldCount, run.Files)
	}

	if waitErr != nil {
		return results, waitErr
	}
	if firstErr != nil {
		if failed > 1 {
			return results, errors.Wrapf(firstErr, "%d of %d files failed", failed, len(paths))
		}
		return results, firstErr
	}
	return results, nil
}
