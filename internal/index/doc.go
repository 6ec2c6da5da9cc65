// Package index owns the persistent duplicate index: a SQLite database holding
// one row per module file and one row per sample slot.
//
// Builds run many extraction workers in parallel and funnel their records
// through a single Writer that owns the only write transaction. Lookup
// indices are created after the bulk insert, and the finished database is
// renamed over the previous index so a failed build never leaves the index
// unusable. Queries open the committed file read-only.
package index
