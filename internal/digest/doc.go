// Package digest computes the 256-bit content digests that identify whole
// files and individual sample payloads.
//
// Two algorithms are supported: SHA-256 (the default, and the format shipped
// in published snapshots) and BLAKE3. An index records which algorithm built
// it; digests from different algorithms are never comparable.
package digest
