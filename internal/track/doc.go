// Package track defines the identity records stored in the index: one Record
// per module file and one Sample per sample slot inside it, plus the tier
// labels used when matching and clustering them.
package track
