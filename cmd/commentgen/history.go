package main

import (
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jward/commentgen"
	"github.com/jward/commentgen/internal/logger"
)

var (
	flagLimit  int
	flagForget bool
)

var historyCmd = &cobra.Command{
	Use:   "history [file...]",
	Short: "Show recorded runs, or the comments last generated for files",
	Long:  "Without arguments, lists recorded runs newest first. With files, shows the comments last generated for each. With --forget, drops the recorded history of the given files so the next generate rewrites them.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&flagForget, "forget", false, "delete the recorded history of the given files")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if flagDB == "" {
		return outputError(cmd, "history", errors.WithHint(
			errors.New("no history database"),
			"pass --db with the path used for generate"))
	}
	if flagForget && len(args) == 0 {
		return outputError(cmd, "history", errors.New("--forget needs at least one file"))
	}
	st, err := openStore()
	if err != nil {
		return outputError(cmd, "history", err)
	}
	defer st.Close()

	if len(args) == 0 {
		runs, err := st.Runs(flagLimit)
		if err != nil {
			return outputError(cmd, "history", err)
		}
		out := make([]CLIRun, 0, len(runs))
		for _, r := range runs {
			out = append(out, toCLIRun(r))
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "history", Results: out})
	}

	files, err := lookupFiles(st, args)
	if err != nil {
		return outputError(cmd, "history", err)
	}
	out := make([]CLIFileHistory, 0, len(files))
	for _, f := range files {
		h, err := fileHistory(st, f)
		if err != nil {
			return outputError(cmd, "history", err)
		}
		if flagForget {
			if err := st.DeleteFileData(f.ID); err != nil {
				return outputError(cmd, "history", errors.Wrapf(err, "forget %s", f.Path))
			}
			logger.Infow("forgot file history", logger.FieldFile, f.Path)
		}
		out = append(out, h)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "history", Results: out})
}

// lookupFiles finds the recorded file for each path, in argument order. A
// path is tried as given and then in absolute form, since watch records
// absolute paths.
func lookupFiles(st *commentgen.Store, paths []string) ([]*commentgen.File, error) {
	candidates := make([]string, 0, 2*len(paths))
	for _, p := range paths {
		candidates = append(candidates, p)
		if abs, err := filepath.Abs(p); err == nil && abs != p {
			candidates = append(candidates, abs)
		}
	}
	found, err := st.FilesByPaths(candidates)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]*commentgen.File, len(found))
	for _, f := range found {
		byPath[f.Path] = f
	}

	out := make([]*commentgen.File, 0, len(paths))
	for _, p := range paths {
		f := byPath[p]
		if f == nil {
			if abs, err := filepath.Abs(p); err == nil {
				f = byPath[abs]
			}
		}
		if f == nil {
			return nil, errors.Newf("no history for %s", p)
		}
		out = append(out, f)
	}
	return out, nil
}

func fileHistory(st *commentgen.Store, f *commentgen.File) (CLIFileHistory, error) {
	comments, err := st.CommentsByFile(f.ID)
	if err != nil {
		return CLIFileHistory{}, err
	}
	h := CLIFileHistory{
		Path:          f.Path,
		Dialect:       f.Dialect,
		OutputPath:    f.OutputPath,
		RunID:         f.RunID,
		LastGenerated: f.LastGenerated.Format(time.RFC3339),
		Comments:      make([]CLIComment, 0, len(comments)),
	}
	for _, c := range comments {
		h.Comments = append(h.Comments, CLIComment{
			Line:  c.Line,
			Kind:  c.Kind,
			Name:  c.Name,
			Scope: c.Scope,
			Text:  c.Text,
		})
	}
	return h, nil
}

func toCLIRun(r *commentgen.Run) CLIRun {
	out := CLIRun{
		ID:        r.ID,
		StartedAt: r.StartedAt.Format(time.RFC3339),
		Files:     r.Files,
		Comments:  r.Comments,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
	}
	if r.FinishedAt != nil {
		out.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return out
}
