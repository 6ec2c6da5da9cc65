package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"modindex/internal/analysis"
	"modindex/internal/digest"
	"modindex/internal/enumerate"
	"modindex/internal/failure"
	"modindex/internal/logging"
	"modindex/internal/track"
)

// ErrIO marks files that could not be read.
var ErrIO = failure.ErrIO

// Extractor computes records for enumerated files. The zero value hashes with
// SHA-256 and treats every file as unsupported by the analyzer.
type Extractor struct {
	Analyzer  analysis.Analyzer
	Algorithm digest.Algorithm
	Logger    *slog.Logger
}

// New constructs an extractor. A nil analyzer disables pattern analysis.
func New(analyzer analysis.Analyzer, algorithm digest.Algorithm, logger *slog.Logger) *Extractor {
	return &Extractor{
		Analyzer:  analyzer,
		Algorithm: algorithm,
		Logger:    logging.NewComponentLogger(logger, "extract"),
	}
}

// Extract reads entry fully and returns its record. The only error is an
// unreadable file (ErrIO) or a cancelled context.
func (e *Extractor) Extract(ctx context.Context, entry enumerate.Entry) (track.Record, error) {
	if err := ctx.Err(); err != nil {
		return track.Record{}, err
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return track.Record{}, failure.Wrap(failure.ErrIO, "extract", "read "+entry.Rel, err)
	}
	record := e.Digest(ctx, entry.Rel, data)
	record.Size = int64(len(data))
	record.ModTime = entry.ModTime
	if ctx.Err() != nil {
		return track.Record{}, ctx.Err()
	}
	return record, nil
}

// Digest builds a record from in-memory bytes. Size and ModTime are left for
// the caller.
func (e *Extractor) Digest(ctx context.Context, rel string, data []byte) track.Record {
	algorithm := e.Algorithm
	if algorithm == "" {
		algorithm = digest.Default
	}
	record := track.Record{
		Path:        rel,
		WholeDigest: algorithm.Sum(data),
	}

	result, err := e.analyze(ctx, data)
	if err != nil {
		if !errors.Is(err, analysis.ErrUnsupported) && ctx.Err() == nil {
			logging.WarnWithContext(e.logger(), "module analysis failed", "analysis_failed",
				logging.String(logging.FieldPath, rel),
				logging.String("error_kind", analysis.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file indexed on the whole-file tier only"),
				logging.String(logging.FieldErrorHint, "check the analyzer command configured in [analysis]"),
			)
		}
		return record
	}
	defer result.Release()

	record.PatternDigest = result.PatternDigest
	record.ChannelCount = result.ChannelCount
	if len(result.Instruments) > 0 {
		record.Instruments = append([]string(nil), result.Instruments...)
	}
	if len(result.Samples) > 0 {
		record.Samples = make([]track.Sample, 0, len(result.Samples))
		for _, payload := range result.Samples {
			record.Samples = append(record.Samples, track.Sample{
				Ordinal:       payload.Ordinal,
				ContentDigest: payloadDigest(algorithm, payload.Payload),
				Text:          payload.Text,
				ByteLength:    payload.ByteLength,
				DecodedLength: payload.DecodedLength,
			})
		}
	}
	return record
}

func (e *Extractor) analyze(ctx context.Context, data []byte) (*analysis.Result, error) {
	if e.Analyzer == nil {
		return nil, analysis.ErrUnsupported
	}
	result, err := e.Analyzer.Analyze(ctx, data)
	if err != nil {
		result.Release()
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("analyzer returned no result: %w", analysis.ErrUnsupported)
	}
	return result, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

// payloadDigest returns nil for absent or silent payloads.
func payloadDigest(algorithm digest.Algorithm, payload []byte) *digest.Digest {
	if isSilent(payload) {
		return nil
	}
	sum := algorithm.Sum(payload)
	return &sum
}

func isSilent(payload []byte) bool {
	for _, b := range payload {
		if b != 0 {
			return false
		}
	}
	return true
}
