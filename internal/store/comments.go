package store

import (
	"github.com/cockroachdb/errors"
)

// ReplaceComments swaps the recorded comments of a file for comments in a
// single transaction.
func (s *Store) ReplaceComments(fileID int64, comments []Comment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "replace comments: begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM comments WHERE file_id = ?", fileID); err != nil {
		return errors.Wrap(err, "replace comments: delete")
	}

	stmt, err := tx.Prepare("INSERT INTO comments (file_id, line, kind, name, scope, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "replace comments: prepare")
	}
	defer stmt.Close()

	for i := range comments {
		c := &comments[i]
		c.FileID = fileID
		res, err := stmt.Exec(fileID, c.Line, c.Kind, c.Name, c.Scope, c.Text)
		if err != nil {
			return errors.Wrapf(err, "replace comments: insert %q", c.Name)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "last insert id")
		}
	}
	return tx.Commit()
}

// CommentsByFile returns a file's recorded comments in line order.
func (s *Store) CommentsByFile(fileID int64) ([]Comment, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, line, kind, name, COALESCE(scope, ''), text FROM comments WHERE file_id = ? ORDER BY line, id",
		fileID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "comments by file")
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.FileID, &c.Line, &c.Kind, &c.Name, &c.Scope, &c.Text); err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
