package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"modindex/internal/config"
	"modindex/internal/failure"
	"modindex/internal/fileutil"
	"modindex/internal/index"
	"modindex/internal/logging"
)

// ErrVersionMismatch is returned when the snapshot's version tag does not
// match the index schema even after a refresh.
var ErrVersionMismatch = fmt.Errorf("snapshot version mismatch: %w", failure.ErrVersion)

// Bootstrapper keeps the local snapshot and the index it unpacks into
// current. All steps run sequentially under the index lock.
type Bootstrapper struct {
	Source       Source
	SnapshotPath string
	IndexPath    string
	// Version is the expected version tag; zero means CurrentVersion.
	Version uint32
	// RateLimit caps download throughput in bytes per second; zero disables it.
	RateLimit int
	Logger    *slog.Logger
}

// Result reports what Ensure or Refresh did.
type Result struct {
	Fetched   bool          `json:"fetched" yaml:"fetched"`
	Installed bool          `json:"installed" yaml:"installed"`
	Version   uint32        `json:"version" yaml:"version"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// NewBootstrapper wires a bootstrapper from configuration. source may be nil
// when no remote snapshot is configured.
func NewBootstrapper(cfg *config.Config, source Source, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		Source:       source,
		SnapshotPath: cfg.Paths.SnapshotPath,
		IndexPath:    cfg.Paths.IndexPath,
		RateLimit:    cfg.Snapshot.RateLimitKiB * 1024,
		Logger:       logging.NewComponentLogger(logger, "snapshot"),
	}
}

// Ensure fetches the snapshot when the local copy is missing or carries the
// wrong version, then installs it when the index is missing, unreadable or
// older than the snapshot.
func (b *Bootstrapper) Ensure(ctx context.Context) (Result, error) {
	return b.run(ctx, false)
}

// Refresh always downloads the snapshot and reinstalls the index.
func (b *Bootstrapper) Refresh(ctx context.Context) (Result, error) {
	return b.run(ctx, true)
}

func (b *Bootstrapper) run(ctx context.Context, force bool) (Result, error) {
	started := time.Now()
	var result Result
	logger := b.logger()
	want := b.Version
	if want == 0 {
		want = CurrentVersion()
	}

	unlock, err := index.Lock(b.IndexPath)
	if err != nil {
		return result, err
	}
	defer unlock()

	version, err := ReadVersion(b.SnapshotPath)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		logging.WarnWithContext(logger, "local snapshot unreadable", "snapshot_unreadable",
			logging.String(logging.FieldPath, b.SnapshotPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "snapshot will be downloaded again"),
			logging.String(logging.FieldErrorHint, "remove the file if the download keeps failing"),
		)
	}
	current := err == nil && version == want

	if force || !current {
		if b.Source == nil {
			if missing {
				logger.Debug("no snapshot configured", logging.String(logging.FieldPath, b.SnapshotPath))
				return result, nil
			}
			return result, fmt.Errorf("%w: %s has version %d, expected %d and no snapshot url is configured",
				ErrVersionMismatch, b.SnapshotPath, version, want)
		}
		n, err := b.fetch(ctx)
		if err != nil {
			return result, err
		}
		result.Fetched = true
		result.Bytes = n

		version, err = ReadVersion(b.SnapshotPath)
		if err != nil {
			return result, failure.Wrap(failure.ErrIO, "snapshot", "read version", err)
		}
		if version != want {
			return result, fmt.Errorf("%w: %s published version %d, expected %d",
				ErrVersionMismatch, b.Source, version, want)
		}
	}
	result.Version = version

	if force || result.Fetched || b.indexStale(ctx) {
		if err := b.install(ctx); err != nil {
			return result, err
		}
		result.Installed = true
	}
	result.Duration = time.Since(started)

	logger.Info("snapshot ready",
		logging.String(logging.FieldEventType, "snapshot_ready"),
		logging.Bool("fetched", result.Fetched),
		logging.Bool("installed", result.Installed),
		logging.Int64("download_bytes", result.Bytes),
		logging.Int("version", int(result.Version)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// fetch downloads the snapshot into SnapshotPath atomically.
func (b *Bootstrapper) fetch(ctx context.Context) (int64, error) {
	logger := b.logger()
	logger.Info("downloading snapshot",
		logging.String(logging.FieldEventType, "snapshot_fetch"),
		logging.String(logging.FieldSource, b.Source.String()),
	)
	body, err := b.Source.Fetch(ctx)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "snapshot", "fetch "+b.Source.String(), err)
	}
	body = Throttle(ctx, body, b.RateLimit)
	defer body.Close()

	var written int64
	err = fileutil.WriteAtomic(b.SnapshotPath, 0o644, func(w io.Writer) error {
		n, copyErr := io.Copy(w, &contextReader{ctx: ctx, r: body})
		written = n
		return copyErr
	})
	if err != nil {
		return written, failure.Wrap(failure.ErrIO, "snapshot", "download "+b.Source.String(), err)
	}
	return written, nil
}

// indexStale reports whether the index must be (re)installed from the local
// snapshot.
func (b *Bootstrapper) indexStale(ctx context.Context) bool {
	indexInfo, err := os.Stat(b.IndexPath)
	if err != nil {
		return true
	}
	snapInfo, err := os.Stat(b.SnapshotPath)
	if err != nil {
		return false
	}
	if indexInfo.ModTime().Before(snapInfo.ModTime()) {
		return true
	}
	store, err := index.Open(ctx, b.IndexPath)
	if err != nil {
		return true
	}
	_ = store.Close()
	return false
}

// install unpacks the local snapshot next to the index, validates it and
// renames it into place.
func (b *Bootstrapper) install(ctx context.Context) error {
	src, err := os.Open(b.SnapshotPath)
	if err != nil {
		return failure.Wrap(failure.ErrIO, "snapshot", "open "+b.SnapshotPath, err)
	}
	defer src.Close()

	tmp := fileutil.TempSibling(b.IndexPath, "unpack")
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return failure.Wrap(failure.ErrIO, "snapshot", "create "+tmp, err)
	}
	installed := false
	defer func() {
		if !installed {
			_ = fileutil.RemoveDatabase(tmp)
		}
	}()

	if _, err := Unpack(&contextReader{ctx: ctx, r: src}, out); err != nil {
		_ = out.Close()
		return failure.Wrap(failure.ErrIO, "snapshot", "unpack", err)
	}
	if err := out.Close(); err != nil {
		return failure.Wrap(failure.ErrIO, "snapshot", "close "+tmp, err)
	}

	store, err := index.Open(ctx, tmp)
	if err != nil {
		return fmt.Errorf("validate unpacked index: %w", err)
	}
	_ = store.Close()

	if err := fileutil.ReplaceDatabase(tmp, b.IndexPath); err != nil {
		return failure.Wrap(failure.ErrIO, "snapshot", "install", err)
	}
	installed = true
	b.logger().Info("index installed from snapshot",
		logging.String(logging.FieldEventType, "snapshot_installed"),
		logging.String(logging.FieldPath, b.IndexPath),
	)
	return nil
}

func (b *Bootstrapper) logger() *slog.Logger {
	if b.Logger == nil {
		return logging.NewNop()
	}
	return b.Logger
}
