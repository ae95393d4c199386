// Package config loads commentgen settings. Every setting has a default,
// and a config file that cannot be read or decoded yields the defaults.
package config

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/jward/commentgen/internal/synth"
)

// DefaultPath is the config file consulted when none is given.
const DefaultPath = "./code-comment-config.json"

// Config is the fully resolved configuration.
type Config struct {
	CommentStyle   string `json:"commentStyle"`
	IncludeInline  bool   `json:"includeInline"`
	OutputDir      string `json:"outputDir"`
	MatchIndent    bool   `json:"matchIndent"`
	DescribeScript string `json:"describeScript,omitempty"`
	Jobs           int    `json:"jobs"`
}

// Partial mirrors Config with optional fields, as decoded from a file.
// A nil field means "use the default".
type Partial struct {
	CommentStyle   *string `mapstructure:"commentStyle"`
	IncludeInline  *bool   `mapstructure:"includeInline"`
	OutputDir      *string `mapstructure:"outputDir"`
	MatchIndent    *bool   `mapstructure:"matchIndent"`
	DescribeScript *string `mapstructure:"describeScript"`
	Jobs           *int    `mapstructure:"jobs"`
}

// ResolveConfig fills every unset field of p with its default. Comment
// styles other than jsdoc resolve to line.
func ResolveConfig(p Partial) Config {
	c := Config{
		CommentStyle:  synth.StyleJSDoc,
		IncludeInline: true,
		OutputDir:     "output",
	}
	if p.CommentStyle != nil {
		c.CommentStyle = synth.StyleLine
		if *p.CommentStyle == synth.StyleJSDoc {
			c.CommentStyle = synth.StyleJSDoc
		}
	}
	if p.IncludeInline != nil {
		c.IncludeInline = *p.IncludeInline
	}
	if p.OutputDir != nil && *p.OutputDir != "" {
		c.OutputDir = *p.OutputDir
	}
	if p.MatchIndent != nil {
		c.MatchIndent = *p.MatchIndent
	}
	if p.DescribeScript != nil {
		c.DescribeScript = *p.DescribeScript
	}
	if p.Jobs != nil && *p.Jobs > 0 {
		c.Jobs = *p.Jobs
	}
	return c
}

// Default returns the configuration used when no file is available.
func Default() Config {
	return ResolveConfig(Partial{})
}

// Load reads the config file at path. Any failure returns the defaults
// together with the error, which callers may log but need not act on.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return Default(), errors.Wrapf(err, "read config %s", path)
	}
	var p Partial
	if err := v.Unmarshal(&p); err != nil {
		return Default(), errors.Wrapf(err, "decode config %s", path)
	}
	return ResolveConfig(p), nil
}

// Style returns the synthesizer settings carried by c.
func (c Config) Style() synth.StyleConfig {
	return synth.StyleConfig{CommentStyle: c.CommentStyle, IncludeInline: c.IncludeInline}
}

// Fingerprint identifies the settings that change generated output. Output
// directory and job count are excluded.
func (c Config) Fingerprint() string {
	return c.FingerprintWithScript("")
}

// FingerprintWithScript is Fingerprint with the describe script's source
// folded in, so editing the script in place changes the result.
func (c Config) FingerprintWithScript(source string) string {
	h := sha256.New()
	fmt.Fprintf(h, "style:%s\n", c.CommentStyle)
	fmt.Fprintf(h, "inline:%v\n", c.IncludeInline)
	fmt.Fprintf(h, "indent:%v\n", c.MatchIndent)
	fmt.Fprintf(h, "script:%s\n", strings.TrimSpace(c.DescribeScript))
	if source != "" {
		fmt.Fprintf(h, "source:%x\n", sha256.Sum256([]byte(source)))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
