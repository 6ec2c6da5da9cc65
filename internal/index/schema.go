package index

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
)

//go:embed schema.sql
var schemaSQL string

//go:embed indexes.sql
var indexesSQL string

// SchemaVersion is the current schema version. Snapshots carry it as their
// version tag. Bump it when the schema changes; older indexes must be rebuilt.
const SchemaVersion = 1

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?)",
		MetaSchemaVersion, strconv.Itoa(SchemaVersion),
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Store) checkSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='index_meta'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check index_meta table: %w", err)
	}
	if tableExists == 0 {
		return fmt.Errorf("%w: %s is not a modindex database", ErrSchemaMismatch, s.path)
	}

	raw, err := s.metaValue(ctx, MetaSchemaVersion)
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: unreadable schema version %q", ErrSchemaMismatch, raw)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'modindex build' or 'modindex snapshot fetch')",
			ErrSchemaMismatch, version, SchemaVersion)
	}
	return nil
}

// createIndices builds the lookup indices. It runs once, after the bulk insert.
func (s *Store) createIndices(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, indexesSQL); err != nil {
		return fmt.Errorf("create indices: %w", err)
	}
	return nil
}
