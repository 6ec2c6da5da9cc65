// Package config loads, normalizes, and validates modindex configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MODINDEX_SNAPSHOT_URL. The Config type centralizes every knob the CLI needs:
// where the index and snapshot live, how builds enumerate and analyze files,
// default filter settings, and where published snapshots are fetched from.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extension lists, and clear validation errors.
package config
