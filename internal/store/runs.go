package store

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// StartRun records the start of a run and returns it with a fresh id.
func (s *Store) StartRun(startedAt time.Time) (*Run, error) {
	r := &Run{ID: uuid.NewString(), StartedAt: startedAt}
	if _, err := s.db.Exec("INSERT INTO runs (id, started_at) VALUES (?, ?)", r.ID, r.StartedAt); err != nil {
		return nil, errors.Wrap(err, "start run")
	}
	return r, nil
}

// FinishRun stores the final counts of r and stamps its finish time.
func (s *Store) FinishRun(r *Run, finishedAt time.Time) error {
	r.FinishedAt = &finishedAt
	res, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, files = ?, comments = ?, skipped = ?, failed = ? WHERE id = ?",
		nullTime(r.FinishedAt), r.Files, r.Comments, r.Skipped, r.Failed, r.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", r.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("finish run %s: no such run", r.ID)
	}
	return nil
}

// Runs returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := "SELECT id, started_at, finished_at, files, comments, skipped, failed FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "runs")
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Files, &r.Comments, &r.Skipped, &r.Failed); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.FinishedAt = timePtr(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
