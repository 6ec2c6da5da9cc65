package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"modindex/internal/digest"
	"modindex/internal/enumerate"
	"modindex/internal/extract"
	"modindex/internal/failure"
	"modindex/internal/fileutil"
	"modindex/internal/logging"
)

// BuildOptions configures one build.
type BuildOptions struct {
	Root           string
	IndexPath      string
	Recursive      bool
	SkipExtensions []string
	// Incremental reuses records of the current index for files whose size
	// and modification time are unchanged.
	Incremental bool
	// Workers bounds concurrent extraction; zero means one per CPU.
	Workers int
}

// Stats summarizes a build.
type Stats struct {
	BuildID   string        `json:"build_id" yaml:"build_id"`
	Files     int           `json:"files" yaml:"files"`
	Extracted int           `json:"extracted" yaml:"extracted"`
	Reused    int           `json:"reused" yaml:"reused"`
	Failed    int           `json:"failed" yaml:"failed"`
	Tracks    int           `json:"tracks" yaml:"tracks"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Builder runs parallel extraction into a single writer.
type Builder struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewBuilder constructs a builder around extractor.
func NewBuilder(extractor *extract.Extractor, logger *slog.Logger) *Builder {
	if extractor == nil {
		extractor = extract.New(nil, digest.Default, logger)
	}
	return &Builder{extractor: extractor, logger: logging.NewComponentLogger(logger, "index")}
}

// Build indexes opts.Root into opts.IndexPath. The new index is written to a
// temporary sibling and renamed into place only after it is committed, so a
// failed or cancelled build leaves the previous index untouched.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (Stats, error) {
	started := time.Now()
	stats := Stats{BuildID: uuid.NewString()}
	ctx = logging.WithBuildID(ctx, stats.BuildID)
	logger := logging.WithContext(ctx, b.logger)

	if opts.IndexPath == "" {
		return stats, errors.New("build: index path is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return stats, fmt.Errorf("resolve root: %w", err)
	}
	// A missing root fails the build; an existing empty tree does not.
	if _, err := os.Stat(root); err != nil {
		return stats, failure.Wrap(failure.ErrIO, "index", "stat root "+root, err)
	}

	unlock, err := Lock(opts.IndexPath)
	if err != nil {
		return stats, err
	}
	defer unlock()

	entries, err := enumerate.Enumerate(root, enumerate.Options{
		Recursive:      opts.Recursive,
		SkipExtensions: opts.SkipExtensions,
		IndexPath:      opts.IndexPath,
	})
	if err != nil {
		return stats, failure.Wrap(failure.ErrIO, "index", "enumerate "+root, err)
	}
	stats.Files = len(entries)

	algorithm := b.extractor.Algorithm
	if algorithm == "" {
		algorithm = digest.Default
	}

	var previous *cache
	if opts.Incremental {
		previous, err = loadCache(ctx, opts.IndexPath, algorithm)
		if err != nil {
			return stats, err
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("index build started",
		logging.String(logging.FieldEventType, "build_started"),
		logging.String(logging.FieldRoot, root),
		logging.Int("files", len(entries)),
		logging.Int("workers", workers),
		logging.Int("cached", previous.size()),
	)

	tmpPath := fileutil.TempSibling(opts.IndexPath, "building")
	store, err := Create(ctx, tmpPath)
	if err != nil {
		_ = fileutil.RemoveDatabase(tmpPath)
		return stats, failure.Wrap(failure.ErrIO, "index", "create "+tmpPath, err)
	}
	installed := false
	defer func() {
		_ = store.Close()
		if !installed {
			_ = fileutil.RemoveDatabase(tmpPath)
		}
	}()

	writer := NewWriter(store, Meta{
		SchemaVersion: SchemaVersion,
		Algorithm:     algorithm,
		BuildID:       stats.BuildID,
		Root:          root,
	}, b.logger)

	run := &buildRun{
		extractor: b.extractor,
		cache:     previous,
		logger:    logger,
		total:     len(entries),
		sampler:   logging.NewProgressSampler(10),
	}

	cmds := make(chan Command, 2*workers)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := writer.Run(gctx, cmds)
		stats.Tracks = n
		return err
	})
	g.Go(func() error {
		return run.produce(gctx, entries, workers, cmds)
	})
	if err := g.Wait(); err != nil {
		stats.Duration = time.Since(started)
		run.fill(&stats)
		logging.ErrorWithContext(logger, "index build failed", "build_failed",
			logging.String("error_kind", failure.Kind(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the previous index was left in place; rerun the build"),
		)
		return stats, err
	}
	run.fill(&stats)

	if err := store.finalize(ctx); err != nil {
		return stats, failure.Wrap(failure.ErrTransaction, "index", "finalize", err)
	}
	if err := store.Close(); err != nil {
		return stats, failure.Wrap(failure.ErrIO, "index", "close", err)
	}
	if err := fileutil.ReplaceDatabase(tmpPath, opts.IndexPath); err != nil {
		return stats, failure.Wrap(failure.ErrIO, "index", "install", err)
	}
	installed = true
	stats.Duration = time.Since(started)

	logger.Info("index build complete",
		logging.String(logging.FieldEventType, "build_complete"),
		logging.Int("files", stats.Files),
		logging.Int("extracted", stats.Extracted),
		logging.Int("reused", stats.Reused),
		logging.Int("failed", stats.Failed),
		logging.Duration("duration", stats.Duration),
		logging.String(logging.FieldBuildID, stats.BuildID),
	)
	return stats, nil
}

// buildRun carries per-build producer state.
type buildRun struct {
	extractor *extract.Extractor
	cache     *cache
	logger    *slog.Logger
	total     int

	extracted atomic.Int64
	reused    atomic.Int64
	failed    atomic.Int64

	mu        sync.Mutex
	processed int
	sampler   *logging.ProgressSampler
}

// produce fans entries out to at most workers goroutines and sends one Insert
// per indexed file, followed by Done. On error it returns without Done so the
// writer rolls back.
func (r *buildRun) produce(ctx context.Context, entries []enumerate.Entry, workers int, cmds chan<- Command) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.process(gctx, entry, cmds)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case cmds <- Done{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *buildRun) process(ctx context.Context, entry enumerate.Entry, cmds chan<- Command) error {
	record, ok := r.cache.lookup(entry)
	if ok {
		r.reused.Add(1)
	} else {
		var err error
		record, err = r.extractor.Extract(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, failure.ErrIO) {
				return err
			}
			r.failed.Add(1)
			logging.WarnWithContext(r.logger, "file skipped", "extract_failed",
				logging.String(logging.FieldPath, entry.Rel),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is missing from the index"),
				logging.String(logging.FieldErrorHint, "check file permissions and rerun the build"),
			)
			r.advance()
			return nil
		}
		r.extracted.Add(1)
	}

	select {
	case cmds <- Insert{Record: record}:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.advance()
	return nil
}

func (r *buildRun) advance() {
	r.mu.Lock()
	r.processed++
	percent := logging.Percent(r.processed, r.total)
	emit := r.sampler.ShouldLog(percent, "extract")
	processed := r.processed
	r.mu.Unlock()
	if emit {
		r.logger.Info("build progress",
			logging.String(logging.FieldPhase, "extract"),
			logging.Any(logging.FieldProgressPercent, percent),
			logging.Int("files", processed),
		)
	}
}

func (r *buildRun) fill(stats *Stats) {
	stats.Extracted = int(r.extracted.Load())
	stats.Reused = int(r.reused.Load())
	stats.Failed = int(r.failed.Load())
}
