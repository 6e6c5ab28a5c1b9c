// Package logging assembles the slog loggers used by romsift commands.
//
// It owns the console and JSON handlers, level parsing and output routing,
// and the context helpers that stamp every line of a command with its run
// identifier and component. Tests and library wiring that must not fail use
// NewNop.
package logging
