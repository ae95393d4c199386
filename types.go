package commentgen

import (
	"github.com/jward/commentgen/internal/config"
	"github.com/jward/commentgen/internal/extract"
	"github.com/jward/commentgen/internal/store"
)

// Public type aliases for internal types used in the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time.

type Config = config.Config
type Descriptor = extract.Descriptor
type ParseError = extract.ParseError
type Store = store.Store
type Run = store.Run
type File = store.File
type Comment = store.Comment

// ErrParse matches any parse failure via errors.Is.
var ErrParse = extract.ErrParse

// LoadConfig reads a config file, falling back to defaults on any failure.
// The returned error is informational.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// OpenStore opens and migrates the history database at path.
func OpenStore(path string) (*Store, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
