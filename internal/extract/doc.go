// Package extract turns one module file into a track.Record: the whole-file
// digest, plus whatever the analyzer reports about patterns, samples and
// instruments. Analyzer failures never drop a file; it stays matchable on the
// whole-file tier.
package extract
