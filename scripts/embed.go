// Package scripts embeds the bundled Risor description scripts.
package scripts

import "embed"

// FS holds describe/*.risor. Paths are relative to this directory, for
// example "describe/humanize.risor".
//
//go:embed describe/*.risor
var FS embed.FS

// Humanize is the path of the bundled identifier-words describer.
const Humanize = "describe/humanize.risor"
