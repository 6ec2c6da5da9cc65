package config

const (
	defaultConfigPath         = "~/.config/modindex/config.toml"
	defaultIndexPath          = "~/.local/share/modindex/index.db"
	defaultSnapshotPath       = "~/.local/share/modindex/snapshot.bin"
	defaultLogDir             = "~/.local/share/modindex/logs"
	defaultDigest             = "sha256"
	defaultAnalysisTimeout    = 30
	defaultSnapshotTimeout    = 600
	defaultSnapshotCodec      = "zstd"
	defaultSnapshotRegion     = "us-east-1"
	defaultFilterMinimumCount = 1
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	snapshotURLEnv            = "MODINDEX_SNAPSHOT_URL"
	snapshotAccessKeyEnv      = "MODINDEX_S3_ACCESS_KEY"
	snapshotSecretKeyEnv      = "MODINDEX_S3_SECRET_KEY"
	analysisCommandEnv        = "MODINDEX_ANALYZER"
)

// defaultSkipExtensions lists sidecar files found next to modules in large
// archives: directory listings and companion sample libraries.
var defaultSkipExtensions = []string{".listing", ".nt", ".as", ".ins", ".smp", ".set"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IndexPath:    defaultIndexPath,
			SnapshotPath: defaultSnapshotPath,
			LogDir:       defaultLogDir,
		},
		Index: Index{
			Digest:         defaultDigest,
			Recursive:      true,
			SkipExtensions: append([]string(nil), defaultSkipExtensions...),
		},
		Analysis: Analysis{
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Filter: Filter{
			MinimumCount: defaultFilterMinimumCount,
		},
		Snapshot: Snapshot{
			Region:         defaultSnapshotRegion,
			UseSSL:         true,
			TimeoutSeconds: defaultSnapshotTimeout,
			Codec:          defaultSnapshotCodec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
