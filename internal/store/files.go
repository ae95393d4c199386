package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

const fileColumns = "id, path, dialect, COALESCE(hash, ''), COALESCE(output_path, ''), COALESCE(run_id, ''), last_generated"

func scanFile(row interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var last sql.NullTime
	if err := row.Scan(&f.ID, &f.Path, &f.Dialect, &f.Hash, &f.OutputPath, &f.RunID, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		f.LastGenerated = last.Time
	}
	return f, nil
}

// UpsertFile inserts f or updates the row with the same path, and sets
// f.ID to the row's id.
func (s *Store) UpsertFile(f *File) (int64, error) {
	var runID any
	if f.RunID != "" {
		runID = f.RunID
	}
	_, err := s.db.Exec(
		`INSERT INTO files (path, dialect, hash, output_path, run_id, last_generated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   dialect = excluded.dialect,
		   hash = excluded.hash,
		   output_path = excluded.output_path,
		   run_id = excluded.run_id,
		   last_generated = excluded.last_generated`,
		f.Path, f.Dialect, f.Hash, f.OutputPath, runID, f.LastGenerated,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "upsert file %s", f.Path)
	}
	var id int64
	if err := s.db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "file id %s", f.Path)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file recorded for path, or nil if there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "file by path")
	}
	return f, nil
}

// FilesByPaths returns the recorded files among paths, ordered by path.
func (s *Store) FilesByPaths(paths []string) ([]*File, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	return s.queryFiles(
		"SELECT "+fileColumns+" FROM files WHERE path IN ("+placeholderList(len(paths))+") ORDER BY path",
		stringsToArgs(paths)...,
	)
}

// FilesByRun returns the files generated during a run.
func (s *Store) FilesByRun(runID string) ([]*File, error) {
	return s.queryFiles("SELECT "+fileColumns+" FROM files WHERE run_id = ? ORDER BY path", runID)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query files")
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan file")
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
