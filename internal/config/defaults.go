package config

const (
	defaultLogDir       = "~/.local/share/carton/logs"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultOpexSecurity = "open"

	defaultIDColumn          = "id"
	defaultParentColumn      = "parent_id"
	defaultKindColumn        = "kind"
	defaultNameColumn        = "name"
	defaultSourceColumn      = "source_path"
	defaultTitleColumn       = "title"
	defaultDescriptionColumn = "description"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Manifest: Manifest{
			IDColumn:          defaultIDColumn,
			ParentColumn:      defaultParentColumn,
			KindColumn:        defaultKindColumn,
			NameColumn:        defaultNameColumn,
			SourceColumn:      defaultSourceColumn,
			TitleColumn:       defaultTitleColumn,
			DescriptionColumn: defaultDescriptionColumn,
		},
		Build: Build{
			OnConflict:   OnConflictError,
			Sidecars:     false,
			OpexSecurity: defaultOpexSecurity,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
