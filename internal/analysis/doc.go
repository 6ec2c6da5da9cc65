// Package analysis defines the contract with the module-format analyzer that
// derives a pattern digest, sample payloads and instrument names from a
// module's bytes.
//
// Format parsing is deliberately not implemented here. The Command analyzer
// delegates to an external helper binary that speaks a small JSON protocol;
// Unsupported declines every file so an index can be built on whole-file
// digests alone; Static serves canned results for tests.
//
// Callers own the returned Result and must call Release once they have
// digested the payloads.
package analysis
