// Package snapshot packs, publishes and installs prebuilt indexes.
//
// A snapshot is a 4-byte big-endian version tag followed by the index
// database, either raw or wrapped in a zstd or LZ4 frame. The version tag is
// the index schema version; the payload is trusted only when the tag
// matches. Bootstrapper keeps a local copy of the published snapshot current
// and unpacks it into the index path before queries open the index.
package snapshot
