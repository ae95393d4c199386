package store

import "time"

// Run is one invocation of the generator.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      int
	Comments   int
	Skipped    int
	Failed     int
}

// File is the last generation recorded for one input path.
type File struct {
	ID            int64
	Path          string
	Dialect       string
	Hash          string
	OutputPath    string
	RunID         string
	LastGenerated time.Time
}

// Comment is one inserted comment block.
type Comment struct {
	ID     int64
	FileID int64
	Line   int
	Kind   string
	Name   string
	Scope  string
	Text   string
}
