package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateManifest(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateManifest() error {
	columns := map[string]string{
		"manifest.id_column":          c.Manifest.IDColumn,
		"manifest.parent_column":      c.Manifest.ParentColumn,
		"manifest.kind_column":        c.Manifest.KindColumn,
		"manifest.name_column":        c.Manifest.NameColumn,
		"manifest.source_column":      c.Manifest.SourceColumn,
		"manifest.title_column":       c.Manifest.TitleColumn,
		"manifest.description_column": c.Manifest.DescriptionColumn,
	}
	for key, value := range columns {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}

	// Header matching is case-insensitive, so bindings must differ by more
	// than case.
	seen := make(map[string]string, len(columns))
	for key, value := range columns {
		folded := strings.ToLower(strings.TrimSpace(value))
		if other, dup := seen[folded]; dup {
			return fmt.Errorf("%s and %s are both bound to column %q", other, key, value)
		}
		seen[folded] = key
	}
	return nil
}

func (c *Config) validateBuild() error {
	switch c.Build.OnConflict {
	case OnConflictError, OnConflictReplace:
	default:
		return fmt.Errorf("build.on_conflict must be %q or %q", OnConflictError, OnConflictReplace)
	}
	if c.Build.Sidecars && strings.TrimSpace(c.Build.OpexSecurity) == "" {
		return errors.New("build.opex_security must be set when build.sidecars is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
