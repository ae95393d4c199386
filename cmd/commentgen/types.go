package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	RunID   string `json:"run_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CLIGenerated is a JSON-friendly per-file generation result.
type CLIGenerated struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
	Dialect    string `json:"dialect"`
	Comments   int    `json:"comments"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// CLIRun is a JSON-friendly history run.
type CLIRun struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Files      int    `json:"files"`
	Comments   int    `json:"comments"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// CLIComment is a JSON-friendly recorded comment.
type CLIComment struct {
	Line  int    `json:"line"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Scope string `json:"scope,omitempty"`
	Text  string `json:"text"`
}

// CLIFileHistory is the last recorded generation of one file.
type CLIFileHistory struct {
	Path          string       `json:"path"`
	Dialect       string       `json:"dialect"`
	OutputPath    string       `json:"output_path"`
	RunID         string       `json:"run_id,omitempty"`
	LastGenerated string       `json:"last_generated"`
	Comments      []CLIComment `json:"comments"`
}
