// Package diag defines the diagnostic model shared by the lexer, parser,
// semantic analyzer, and workspace index.
//
// Diagnostic is the central record: severity, a stable numeric Code, a
// message, a primary source.Span, and optional notes. Producers emit through
// the Reporter interface; Bag collects diagnostics with a cap and stable
// ordering. Rendering lives in internal/diagfmt, version tagging of
// published sets lives in internal/workspace.
package diag
