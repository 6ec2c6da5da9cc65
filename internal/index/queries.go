package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modindex/internal/digest"
	"modindex/internal/track"
)

// SampleRef is one sample slot together with the track that owns it.
type SampleRef struct {
	Track  track.Record `json:"track" yaml:"track"`
	Sample track.Sample `json:"sample" yaml:"sample"`
}

// sampleBatch bounds the number of bound parameters per IN clause.
const sampleBatch = 500

// TracksByWholeDigest returns the tracks whose file bytes hash to d, ordered
// by path, with samples attached.
func (s *Store) TracksByWholeDigest(ctx context.Context, d digest.Digest) ([]track.Record, error) {
	return s.queryTracks(ctx, "tracks by whole digest",
		`SELECT `+trackColumns+` FROM tracks WHERE whole_digest = ? ORDER BY path`, d.Bytes())
}

// TracksByPatternDigest returns the tracks sharing a pattern digest. The
// unavailable sentinel never matches anything.
func (s *Store) TracksByPatternDigest(ctx context.Context, pattern uint64) ([]track.Record, error) {
	if pattern == track.NoPattern {
		return nil, nil
	}
	return s.queryTracks(ctx, "tracks by pattern digest",
		`SELECT `+trackColumns+` FROM tracks WHERE pattern_digest = ? ORDER BY path`, int64(pattern))
}

// AllTracks returns every indexed track ordered by path, with samples attached.
func (s *Store) AllTracks(ctx context.Context) ([]track.Record, error) {
	return s.queryTracks(ctx, "all tracks", `SELECT `+trackColumns+` FROM tracks ORDER BY path`)
}

// TrackByPath returns the track stored under path, or nil when there is none.
func (s *Store) TrackByPath(ctx context.Context, path string) (*track.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path)
	record, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("track by path: %w", err)
	}
	samples, err := s.SamplesByTrack(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Samples = samples
	return &record, nil
}

// SamplesByTrack returns a track's sample slots in ordinal order.
func (s *Store) SamplesByTrack(ctx context.Context, trackID int64) ([]track.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sampleColumns+` FROM samples WHERE track_id = ? ORDER BY ordinal`, trackID)
	if err != nil {
		return nil, fmt.Errorf("samples by track: %w", err)
	}
	defer rows.Close()

	var samples []track.Sample
	for rows.Next() {
		_, sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// SampleRefsByDigest returns every sample slot whose payload hashes to d,
// ordered by track path then ordinal. Tracks are returned without samples.
func (s *Store) SampleRefsByDigest(ctx context.Context, d digest.Digest) ([]SampleRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.whole_digest, t.pattern_digest, t.path, t.size_bytes, t.mtime_ns, t.channel_count, t.instruments,
                s.track_id, s.ordinal, s.content_digest, s.text, s.byte_length, s.decoded_length
         FROM samples s JOIN tracks t ON t.id = s.track_id
         WHERE s.content_digest = ?
         ORDER BY t.path, s.ordinal`, d.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sample refs by digest: %w", err)
	}
	defer rows.Close()

	var refs []SampleRef
	for rows.Next() {
		ref, err := scanSampleRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample refs: %w", err)
	}
	return refs, nil
}

// SharedSampleDigests returns the sample digests that occur in at least
// minTracks distinct tracks, in ascending byte order.
func (s *Store) SharedSampleDigests(ctx context.Context, minTracks int) ([]digest.Digest, error) {
	if minTracks < 1 {
		minTracks = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_digest FROM samples
         WHERE content_digest IS NOT NULL
         GROUP BY content_digest
         HAVING COUNT(DISTINCT track_id) >= ?
         ORDER BY content_digest`, minTracks)
	if err != nil {
		return nil, fmt.Errorf("shared sample digests: %w", err)
	}
	defer rows.Close()

	var out []digest.Digest
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan sample digest: %w", err)
		}
		d, err := digest.FromBytes(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample digests: %w", err)
	}
	return out, nil
}

func scanSampleRef(scanner interface{ Scan(dest ...any) error }) (SampleRef, error) {
	var trackDest trackRow
	var sampleDest sampleRow
	if err := scanner.Scan(append(trackDest.dest(), sampleDest.dest()...)...); err != nil {
		return SampleRef{}, fmt.Errorf("scan sample ref: %w", err)
	}
	record, err := trackDest.record()
	if err != nil {
		return SampleRef{}, err
	}
	sample, err := sampleDest.sample()
	if err != nil {
		return SampleRef{}, err
	}
	return SampleRef{Track: record, Sample: sample}, nil
}

func (s *Store) queryTracks(ctx context.Context, what, query string, args ...any) ([]track.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	var records []track.Record
	for rows.Next() {
		record, err := scanTrack(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan track: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	rows.Close()

	if err := s.attachSamples(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// attachSamples loads the samples of records in batches.
func (s *Store) attachSamples(ctx context.Context, records []track.Record) error {
	if len(records) == 0 {
		return nil
	}
	positions := make(map[int64]int, len(records))
	for i, record := range records {
		positions[record.ID] = i
	}
	for start := 0; start < len(records); start += sampleBatch {
		end := min(start+sampleBatch, len(records))
		args := make([]any, 0, end-start)
		for _, record := range records[start:end] {
			args = append(args, record.ID)
		}
		query := `SELECT ` + sampleColumns + ` FROM samples WHERE track_id IN (` +
			makePlaceholders(len(args)) + `) ORDER BY track_id, ordinal`
		if err := s.collectSamples(ctx, query, args, records, positions); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) collectSamples(ctx context.Context, query string, args []any, records []track.Record, positions map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		trackID, sample, err := scanSample(rows)
		if err != nil {
			return fmt.Errorf("scan sample: %w", err)
		}
		if idx, ok := positions[trackID]; ok {
			records[idx].Samples = append(records[idx].Samples, sample)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate samples: %w", err)
	}
	return nil
}
