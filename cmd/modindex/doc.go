// Package main hosts the modindex CLI entrypoint and command graph.
//
// The Cobra command tree builds indexes from a directory of music modules,
// matches query files against a committed index, enumerates duplicate
// clusters, and publishes or installs index snapshots. It centralizes
// configuration resolution, logger construction and output rendering so
// subcommands only translate flags into calls on the internal packages.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it here through a command or flag.
package main
