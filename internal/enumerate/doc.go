// Package enumerate lists the module files under a collection root.
//
// Results carry both the absolute path used for reading and the
// root-relative, slash-separated, NFC-normalized path stored in the index.
// Auxiliary sidecar files named in the skip list and the index's own files
// are never returned.
package enumerate
