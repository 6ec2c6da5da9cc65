package index

import (
	"fmt"

	"modindex/internal/failure"
)

var (
	// ErrIO marks unreadable files and unwritable stores.
	ErrIO = failure.ErrIO
	// ErrTransaction marks writer-side failures that abort a build.
	ErrTransaction = failure.ErrTransaction
	// ErrLocked is returned when another build or bootstrap holds the index lock.
	ErrLocked = failure.ErrLocked
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = fmt.Errorf("schema version mismatch: %w", failure.ErrVersion)
)
