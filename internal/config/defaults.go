package config

const (
	defaultStateDir         = "~/.local/share/dupefinder"
	defaultLogDir           = "~/.local/share/dupefinder/logs"
	defaultEngineMode       = ModeDevelopment
	defaultEngineName       = "dupefinder-engine"
	defaultSourceDir        = "."
	defaultBuildTool        = "go"
	defaultBuildPackage     = "./cmd/dupefinder-engine"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Engine: Engine{
			Mode:         defaultEngineMode,
			Name:         defaultEngineName,
			SourceDir:    defaultSourceDir,
			BuildTool:    defaultBuildTool,
			BuildPackage: defaultBuildPackage,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
