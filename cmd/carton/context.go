package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"carton/internal/config"
	"carton/internal/history"
	"carton/internal/ingest"
	"carton/internal/logging"
	"carton/internal/manifest"
	"carton/internal/opex"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the CLI logger. Logs go to stderr so command output on
// stdout stays machine-readable.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

// openStore opens the run ledger under the configured log directory. A
// ledger that cannot be opened is reported and skipped rather than allowed
// to block the pass.
func (c *commandContext) openStore(logger *slog.Logger) *history.Store {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	store, err := history.Open(filepath.Join(cfg.Paths.LogDir, history.DefaultFileName))
	if err != nil {
		logger.Warn("run ledger unavailable", logging.Error(err))
		return nil
	}
	return store
}

// newContainer assembles an ingest.Container from config plus per-command
// flags. replace and sidecars override their config defaults when set.
func (c *commandContext) newContainer(manifestPath, outputRoot string, logger *slog.Logger, store *history.Store, replace, sidecars bool) (*ingest.Container, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	opts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithColumns(columnsFromConfig(cfg)),
		ingest.WithReplace(replace),
	}
	if store != nil {
		opts = append(opts, ingest.WithHistory(store))
	}
	if sidecars {
		opts = append(opts, ingest.WithSidecars(opex.NewWriter(cfg.Build.OpexSecurity, logger)))
	}
	return ingest.New(manifestPath, outputRoot, opts...)
}

func columnsFromConfig(cfg *config.Config) manifest.Columns {
	return manifest.Columns{
		ID:          cfg.Manifest.IDColumn,
		ParentID:    cfg.Manifest.ParentColumn,
		Kind:        cfg.Manifest.KindColumn,
		Name:        cfg.Manifest.NameColumn,
		SourcePath:  cfg.Manifest.SourceColumn,
		Title:       cfg.Manifest.TitleColumn,
		Description: cfg.Manifest.DescriptionColumn,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// expandArg resolves tilde shortcuts and relative paths in positional
// arguments.
func expandArg(arg string) (string, error) {
	return config.ExpandPath(strings.TrimSpace(arg))
}
