// Package logging assembles structured slog loggers and formatting helpers used
// across modindex.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes field helpers so the builder, the snapshot bootstrap
// and the CLI emit the same keys. Interactive output goes to stderr so that
// command results on stdout stay machine readable; when a log directory is
// configured every record is also appended to a JSON log file.
//
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
