// Package commentgen generates documentation comments for TypeScript and
// JavaScript source files and writes a commented copy next to the input.
//
// # Pipeline
//
// Each file passes through four stages:
//
//  1. Route: the file suffix picks a dialect. .ts, .tsx, .mts and .cts take
//     the typed path; everything else is parsed as plain JavaScript.
//
//  2. Extract: tree-sitter parses the source and an extractor emits one
//     descriptor per function and variable declaration. The typed path
//     reads annotations and infers the rest, falling back to "any". The
//     syntax-only path records parameter names only and fails on any
//     syntax error.
//
//  3. Synthesize: each descriptor becomes a JSDoc block or a run of line
//     comments. Prose comes from fixed defaults or from an optional Risor
//     description script.
//
//  4. Insert: comment blocks are spliced above their declaration lines in
//     one pass, leaving the original lines untouched and in order.
//
// # Usage
//
//	cfg, _ := commentgen.LoadConfig("code-comment-config.json")
//	e, err := commentgen.New(cfg)
//	if err != nil { ... }
//
//	res, err := e.GenerateFile(ctx, "src/math.ts")
//	// res.OutputPath == "output/commented_math.ts"
//
// [Engine.Comment] runs the same pipeline on an in-memory source without
// touching the filesystem. [Engine.GenerateFiles] processes many files in
// parallel.
//
// # History
//
// With [WithStore], every generation is recorded in SQLite along with the
// inserted comments, and files whose content and settings are unchanged
// since the last run are skipped. [WithForce] disables the skip.
package commentgen
