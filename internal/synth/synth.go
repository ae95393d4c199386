// Package synth renders declaration descriptors into comment text.
package synth

import (
	"context"
	"strings"

	"github.com/jward/commentgen/internal/extract"
	"github.com/jward/commentgen/internal/insert"
)

// Comment styles.
const (
	StyleJSDoc = "jsdoc"
	StyleLine  = "line"
)

// StyleConfig selects the comment shape.
type StyleConfig struct {
	CommentStyle  string
	IncludeInline bool
}

// IsJSDoc reports whether block comments are rendered. Every style other
// than "jsdoc" renders line comments.
func (s StyleConfig) IsJSDoc() bool {
	return s.CommentStyle == StyleJSDoc
}

// Text holds the prose parts of a comment. Empty fields take the defaults.
type Text struct {
	Summary string
	Returns string
	Params  map[string]string
}

// Describer supplies prose for a declaration.
type Describer interface {
	Describe(ctx context.Context, d extract.Descriptor) Text
}

const (
	defaultFunctionSummary = "Function to perform its intended operation."
	defaultVariableSummary = "Stores relevant data for the operation."
	defaultReturns         = "Result of the function."
)

func (t Text) summary(d extract.Descriptor) string {
	if s := strings.TrimSpace(t.Summary); s != "" {
		return oneLine(s)
	}
	if d.Kind == extract.Variable {
		return defaultVariableSummary
	}
	return defaultFunctionSummary
}

func (t Text) param(name string) string {
	if s := strings.TrimSpace(t.Params[name]); s != "" {
		return oneLine(s)
	}
	return "Parameter " + name
}

func (t Text) returns() string {
	if s := strings.TrimSpace(t.Returns); s != "" {
		return oneLine(s)
	}
	return defaultReturns
}

// Synthesize renders the comment for d. It is a pure function of its
// arguments.
func Synthesize(d extract.Descriptor, style StyleConfig, text Text) string {
	if d.Kind == extract.Variable {
		return "// " + d.Name + ": " + text.summary(d)
	}

	var b strings.Builder
	if style.IsJSDoc() {
		b.WriteString("/**\n")
		b.WriteString(" * " + d.Name + " - " + text.summary(d) + "\n")
		for _, p := range d.Params {
			b.WriteString(" * @param {" + p.Type.String() + "} " + p.Name + " - " + text.param(p.Name) + "\n")
		}
		b.WriteString(" * @returns {" + d.Returns.String() + "} " + text.returns() + "\n")
		b.WriteString(" */")
		return b.String()
	}

	b.WriteString("// " + d.Name + ": " + text.summary(d))
	for _, p := range d.Params {
		b.WriteString("\n// Param: " + p.Name + " (" + p.Type.String() + ")")
	}
	return b.String()
}

// Synthesizer turns descriptors into insertion records.
type Synthesizer struct {
	style     StyleConfig
	describer Describer
}

// New creates a Synthesizer. A nil describer uses the default prose.
func New(style StyleConfig, describer Describer) *Synthesizer {
	return &Synthesizer{style: style, describer: describer}
}

// Record renders d. ok is false for variables when inline comments are off.
func (s *Synthesizer) Record(ctx context.Context, d extract.Descriptor) (rec insert.Record, ok bool) {
	if d.Kind == extract.Variable && !s.style.IncludeInline {
		return insert.Record{}, false
	}
	var text Text
	if s.describer != nil {
		text = s.describer.Describe(ctx, d)
	}
	return insert.Record{Line: d.Line, Text: Synthesize(d, s.style, text)}, true
}

// Records renders every descriptor in order.
func (s *Synthesizer) Records(ctx context.Context, descs []extract.Descriptor) []insert.Record {
	out := make([]insert.Record, 0, len(descs))
	for _, d := range descs {
		if rec, ok := s.Record(ctx, d); ok {
			out = append(out, rec)
		}
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
