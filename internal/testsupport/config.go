package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"modindex/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Log files are disabled; the index and snapshot live under the temp dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IndexPath = filepath.Join(base, "data", "index.db")
	cfgVal.Paths.SnapshotPath = filepath.Join(base, "data", "snapshot.bin")
	cfgVal.Paths.LogDir = ""
	cfgVal.Index.Workers = 2
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithIncremental enables incremental builds.
func WithIncremental() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Index.Incremental = true
	}
}

// WithSnapshotURL points the snapshot bootstrap at url.
func WithSnapshotURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Snapshot.URL = url
	}
}

// WithStubAnalyzer writes an analyzer helper that prints output and exits
// with status, and configures it as the analysis command.
func WithStubAnalyzer(output string, status int) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "analyzer")
		script := "#!/bin/sh\ncat >/dev/null\ncat <<'JSON'\n" + output + "\nJSON\nexit " + strconv.Itoa(status) + "\n"
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub analyzer: %v", err)
		}
		b.cfg.Analysis.Command = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.IndexPath))
}
