package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"modindex/internal/digest"
)

// index_meta keys.
const (
	MetaSchemaVersion   = "schema_version"
	MetaDigestAlgorithm = "digest_algorithm"
	MetaBuildID         = "build_id"
	MetaBuiltAt         = "built_at"
	MetaRoot            = "root"
	MetaTrackCount      = "track_count"
)

// Meta describes a committed build.
type Meta struct {
	SchemaVersion int              `json:"schema_version" yaml:"schema_version"`
	Algorithm     digest.Algorithm `json:"digest_algorithm" yaml:"digest_algorithm"`
	BuildID       string           `json:"build_id" yaml:"build_id"`
	BuiltAt       time.Time        `json:"built_at" yaml:"built_at"`
	Root          string           `json:"root" yaml:"root"`
	TrackCount    int              `json:"track_count" yaml:"track_count"`
}

func (m Meta) pairs() [][2]string {
	return [][2]string{
		{MetaDigestAlgorithm, m.Algorithm.String()},
		{MetaBuildID, m.BuildID},
		{MetaBuiltAt, m.BuiltAt.UTC().Format(time.RFC3339Nano)},
		{MetaRoot, m.Root},
		{MetaTrackCount, strconv.Itoa(m.TrackCount)},
	}
}

// Meta reads the build metadata.
func (s *Store) Meta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return Meta{}, fmt.Errorf("read index meta: %w", err)
	}
	defer rows.Close()

	var meta Meta
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Meta{}, fmt.Errorf("scan index meta: %w", err)
		}
		switch key {
		case MetaSchemaVersion:
			meta.SchemaVersion, _ = strconv.Atoi(value)
		case MetaDigestAlgorithm:
			meta.Algorithm = digest.Algorithm(value)
		case MetaBuildID:
			meta.BuildID = value
		case MetaBuiltAt:
			if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
				meta.BuiltAt = ts
			}
		case MetaRoot:
			meta.Root = value
		case MetaTrackCount:
			meta.TrackCount, _ = strconv.Atoi(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Meta{}, fmt.Errorf("iterate index meta: %w", err)
	}
	return meta, nil
}

// Algorithm returns the digest algorithm the index was built with. Indexes
// without the key predate configurable digests and use SHA-256.
func (s *Store) Algorithm(ctx context.Context) (digest.Algorithm, error) {
	raw, err := s.metaValue(ctx, MetaDigestAlgorithm)
	if errors.Is(err, sql.ErrNoRows) {
		return digest.Default, nil
	}
	if err != nil {
		return "", err
	}
	return digest.ParseAlgorithm(raw)
}

// Count returns the number of indexed tracks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM tracks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

func (s *Store) metaValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}
