package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"modindex/internal/analysis"
	"modindex/internal/config"
	"modindex/internal/digest"
	"modindex/internal/extract"
	"modindex/internal/index"
	"modindex/internal/logging"
	"modindex/internal/snapshot"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// extractor builds the content extractor configured by [index] and [analysis].
func (c *commandContext) extractor(cfg *config.Config, algorithm digest.Algorithm, logger *slog.Logger) *extract.Extractor {
	var analyzer analysis.Analyzer = analysis.Unsupported{}
	if cmd := analysis.NewCommand(cfg.Analysis.Command, cfg.Analysis.Args, cfg.AnalysisTimeout()); cmd != nil {
		analyzer = cmd
	}
	return extract.New(analyzer, algorithm, logger)
}

// openIndex runs the snapshot bootstrap when auto_fetch is enabled, then
// opens the committed index read-only.
func (c *commandContext) openIndex(ctx context.Context) (*index.Store, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Snapshot.AutoFetch {
		if _, err := c.ensureSnapshot(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
	}
	store, err := index.Open(ctx, cfg.Paths.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run 'modindex build <dir>' or 'modindex snapshot fetch' first)", err)
	}
	return store, logger, nil
}

func (c *commandContext) ensureSnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (snapshot.Result, error) {
	source, err := snapshot.NewSource(ctx, cfg.Snapshot)
	if err != nil {
		return snapshot.Result{}, err
	}
	return snapshot.NewBootstrapper(cfg, source, logger).Ensure(ctx)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
