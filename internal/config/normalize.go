package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeManifest()
	c.normalizeBuild()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeManifest() {
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Manifest.IDColumn, defaultIDColumn)
	fill(&c.Manifest.ParentColumn, defaultParentColumn)
	fill(&c.Manifest.KindColumn, defaultKindColumn)
	fill(&c.Manifest.NameColumn, defaultNameColumn)
	fill(&c.Manifest.SourceColumn, defaultSourceColumn)
	fill(&c.Manifest.TitleColumn, defaultTitleColumn)
	fill(&c.Manifest.DescriptionColumn, defaultDescriptionColumn)
}

func (c *Config) normalizeBuild() {
	c.Build.OnConflict = strings.ToLower(strings.TrimSpace(c.Build.OnConflict))
	if c.Build.OnConflict == "" {
		c.Build.OnConflict = OnConflictError
	}
	c.Build.OpexSecurity = strings.TrimSpace(c.Build.OpexSecurity)
	if c.Build.OpexSecurity == "" {
		c.Build.OpexSecurity = defaultOpexSecurity
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
