package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"modindex/internal/failure"
	"modindex/internal/logging"
	"modindex/internal/track"
)

// Command is a message to the Writer.
type Command interface {
	isCommand()
}

// Insert appends one record to the open transaction.
type Insert struct {
	Record track.Record
}

// Done asks the writer to commit. Closing the channel has the same effect.
type Done struct{}

func (Insert) isCommand() {}
func (Done) isCommand() {}

// Writer is the only mutator of a store under construction. It owns one
// transaction for the whole build.
type Writer struct {
	store  *Store
	meta   Meta
	logger *slog.Logger
}

// NewWriter prepares a writer for a store returned by Create. meta is
// recorded at commit time; TrackCount is filled in by the writer.
func NewWriter(store *Store, meta Meta, logger *slog.Logger) *Writer {
	return &Writer{store: store, meta: meta, logger: logging.NewComponentLogger(logger, "index-writer")}
}

// Run applies commands in order until Done arrives or cmds is closed, then
// commits and creates the lookup indices. It returns the number of tracks
// written. Any insert failure rolls the transaction back and returns an
// error marked ErrTransaction; the caller must stop sending.
func (w *Writer) Run(ctx context.Context, cmds <-chan Command) (int, error) {
	if w.store.readOnly {
		return 0, failure.Wrap(failure.ErrTransaction, "index", "begin", fmt.Errorf("store %s is read-only", w.store.path))
	}
	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, failure.Wrap(failure.ErrTransaction, "index", "begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmts, err := prepareInsert(ctx, tx)
	if err != nil {
		return 0, failure.Wrap(failure.ErrTransaction, "index", "prepare", err)
	}
	defer stmts.close()

	count := 0
loop:
	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case cmd, ok := <-cmds:
			if !ok {
				break loop
			}
			switch c := cmd.(type) {
			case Insert:
				if err := stmts.insert(ctx, c.Record); err != nil {
					return count, failure.Wrap(failure.ErrTransaction, "index", "insert "+c.Record.Path, err)
				}
				count++
			case Done:
				break loop
			default:
				return count, failure.Wrap(failure.ErrTransaction, "index", "apply", fmt.Errorf("unknown command %T", cmd))
			}
		}
	}

	meta := w.meta
	meta.TrackCount = count
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now().UTC()
	}
	for _, pair := range meta.pairs() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			pair[0], pair[1],
		); err != nil {
			return count, failure.Wrap(failure.ErrTransaction, "index", "record meta "+pair[0], err)
		}
	}
	stmts.close()
	if err := tx.Commit(); err != nil {
		return count, failure.Wrap(failure.ErrTransaction, "index", "commit", err)
	}
	committed = true

	started := time.Now()
	if err := w.store.createIndices(ctx); err != nil {
		return count, failure.Wrap(failure.ErrTransaction, "index", "create indices", err)
	}
	w.logger.Debug("lookup indices created",
		logging.Int("tracks", count),
		logging.Duration("duration", time.Since(started)),
	)
	return count, nil
}

type insertStatements struct {
	track  *sql.Stmt
	sample *sql.Stmt
}

func prepareInsert(ctx context.Context, tx *sql.Tx) (*insertStatements, error) {
	trackStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracks (whole_digest, pattern_digest, path, size_bytes, mtime_ns, channel_count, instruments)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare track insert: %w", err)
	}
	sampleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (track_id, ordinal, content_digest, text, byte_length, decoded_length)
         VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = trackStmt.Close()
		return nil, fmt.Errorf("prepare sample insert: %w", err)
	}
	return &insertStatements{track: trackStmt, sample: sampleStmt}, nil
}

func (s *insertStatements) insert(ctx context.Context, record track.Record) error {
	res, err := s.track.ExecContext(ctx,
		record.WholeDigest.Bytes(),
		patternColumn(record.PatternDigest),
		record.Path,
		record.Size,
		mtimeColumn(record.ModTime),
		record.ChannelCount,
		nullableString(joinLines(record.Instruments)),
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	for _, sample := range record.Samples {
		if _, err := s.sample.ExecContext(ctx,
			id,
			sample.Ordinal,
			digestColumn(sample.ContentDigest),
			sample.Text,
			sample.ByteLength,
			sample.DecodedLength,
		); err != nil {
			return fmt.Errorf("insert sample %d: %w", sample.Ordinal, err)
		}
	}
	return nil
}

func (s *insertStatements) close() {
	if s.track != nil {
		_ = s.track.Close()
		s.track = nil
	}
	if s.sample != nil {
		_ = s.sample.Close()
		s.sample = nil
	}
}
