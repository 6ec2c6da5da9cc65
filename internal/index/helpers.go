package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"modindex/internal/digest"
	"modindex/internal/track"
)

const trackColumns = "id, whole_digest, pattern_digest, path, size_bytes, mtime_ns, channel_count, instruments"

const sampleColumns = "track_id, ordinal, content_digest, text, byte_length, decoded_length"

type trackRow struct {
	id           int64
	whole        []byte
	pattern      sql.NullInt64
	path         string
	size         int64
	mtimeNS      int64
	channelCount int64
	instruments  sql.NullString
}

func (r *trackRow) dest() []any {
	return []any{&r.id, &r.whole, &r.pattern, &r.path, &r.size, &r.mtimeNS, &r.channelCount, &r.instruments}
}

func (r *trackRow) record() (track.Record, error) {
	wholeDigest, err := digest.FromBytes(r.whole)
	if err != nil {
		return track.Record{}, fmt.Errorf("track %d: %w", r.id, err)
	}
	record := track.Record{
		ID:            r.id,
		Path:          r.path,
		WholeDigest:   wholeDigest,
		PatternDigest: patternFromColumn(r.pattern),
		Size:          r.size,
		ChannelCount:  int(r.channelCount),
		Instruments:   splitLines(r.instruments),
	}
	if r.mtimeNS != 0 {
		record.ModTime = time.Unix(0, r.mtimeNS)
	}
	return record, nil
}

type sampleRow struct {
	trackID       int64
	ordinal       int64
	content       []byte
	text          string
	byteLength    int64
	decodedLength int64
}

func (r *sampleRow) dest() []any {
	return []any{&r.trackID, &r.ordinal, &r.content, &r.text, &r.byteLength, &r.decodedLength}
}

func (r *sampleRow) sample() (track.Sample, error) {
	sample := track.Sample{
		Ordinal:       int(r.ordinal),
		Text:          r.text,
		ByteLength:    r.byteLength,
		DecodedLength: r.decodedLength,
	}
	if r.content != nil {
		d, err := digest.FromBytes(r.content)
		if err != nil {
			return track.Sample{}, fmt.Errorf("sample %d/%d: %w", r.trackID, r.ordinal, err)
		}
		sample.ContentDigest = &d
	}
	return sample, nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (track.Record, error) {
	var row trackRow
	if err := scanner.Scan(row.dest()...); err != nil {
		return track.Record{}, err
	}
	return row.record()
}

func scanSample(scanner interface{ Scan(dest ...any) error }) (int64, track.Sample, error) {
	var row sampleRow
	if err := scanner.Scan(row.dest()...); err != nil {
		return 0, track.Sample{}, err
	}
	sample, err := row.sample()
	return row.trackID, sample, err
}

// patternColumn stores the unsigned pattern digest bit-for-bit in SQLite's
// signed INTEGER and maps the unavailable sentinel to NULL.
func patternColumn(value uint64) any {
	if value == track.NoPattern {
		return nil
	}
	return int64(value)
}

func patternFromColumn(value sql.NullInt64) uint64 {
	if !value.Valid {
		return track.NoPattern
	}
	return uint64(value.Int64)
}

func digestColumn(d *digest.Digest) any {
	if d == nil {
		return nil
	}
	return d.Bytes()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func joinLines(values []string) string {
	return strings.Join(values, "\n")
}

func splitLines(value sql.NullString) []string {
	if !value.Valid || value.String == "" {
		return nil
	}
	return strings.Split(value.String, "\n")
}

func mtimeColumn(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixNano()
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
