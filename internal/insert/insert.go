// Package insert splices comment blocks into source text above their
// target lines.
package insert

import (
	"sort"
	"strings"
)

// Record is one comment block destined for the line above Line (0-indexed).
type Record struct {
	Line int
	Text string
}

// Option configures Apply.
type Option func(*config)

type config struct {
	matchIndent bool
}

// MatchIndent prefixes each inserted line with the leading whitespace of
// its target line.
func MatchIndent() Option {
	return func(c *config) { c.matchIndent = true }
}

// Apply returns text with every record inserted immediately above its
// target line. Records are processed from the highest line to the lowest,
// records sharing a line keep the order they were given in, and no
// original line changes position relative to the others. Records past the
// last line are appended at the end.
func Apply(text string, records []Record, opts ...Option) string {
	if len(records) == 0 {
		return text
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	lines := strings.Split(text, "\n")

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Line > sorted[j].Line
	})

	// Each original line i is preceded by the blocks whose target is i, in
	// sorted order. Inserting a later block at the same index lands it above
	// the earlier one, so blocks sharing a line are emitted in reverse.
	blocks := make(map[int][][]string, len(sorted))
	total := 0
	for _, r := range sorted {
		target := clamp(r.Line, len(lines))
		block := strings.Split(r.Text, "\n")
		if cfg.matchIndent && target < len(lines) {
			block = indent(block, leadingSpace(lines[target]))
		}
		blocks[target] = append(blocks[target], block)
		total += len(block)
	}

	out := make([]string, 0, len(lines)+total)
	for i := 0; i <= len(lines); i++ {
		group := blocks[i]
		for j := len(group) - 1; j >= 0; j-- {
			out = append(out, group[j]...)
		}
		if i < len(lines) {
			out = append(out, lines[i])
		}
	}
	return strings.Join(out, "\n")
}

func clamp(line, n int) int {
	if line < 0 {
		return 0
	}
	if line > n {
		return n
	}
	return line
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func indent(block []string, prefix string) []string {
	if prefix == "" {
		return block
	}
	out := make([]string, len(block))
	for i, l := range block {
		out[i] = prefix + l
	}
	return out
}
