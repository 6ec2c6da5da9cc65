// Package failure defines the error markers shared by the build and query
// paths and maps them to a coarse kind used for logging and exit handling.
//
// Packages re-export the markers under their own names (index.ErrIO,
// snapshot.ErrVersionMismatch, ...) so callers can test with errors.Is
// against whichever package they already import.
package failure
