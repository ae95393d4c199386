package commentgen

import "path/filepath"

// OutputPrefix is prepended to the base name of every generated file.
const OutputPrefix = "commented_"

// Pipeline stages named in wrapped errors.
const (
	StageRead    = "read"
	StageExtract = "extract"
	StageWrite   = "write"
	StageHistory = "history"
)

// OutputPath returns where the commented copy of path is written.
func OutputPath(outputDir, path string) string {
	return filepath.Join(outputDir, OutputPrefix+filepath.Base(path))
}
