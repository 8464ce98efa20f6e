package config

const (
	defaultGameDataDir       = "~/.local/share/modforge/game"
	defaultOutputDir         = "~/.local/share/modforge/output"
	defaultLogDir            = "~/.local/share/modforge/logs"
	defaultCatalogDir        = "~/.cache/modforge"
	defaultPrimaryContainer  = "resources.assets"
	defaultGlobalIndex       = "globalgamemanagers"
	defaultOutputBundle      = "modforge_patch.bundle"
	defaultInternalName      = "CAB-modforge-patch"
	defaultStructuralVersion = 17
	defaultEngineVersion     = "2021.3.16f1"
	defaultPlayerVersion     = "5.x.x"
	defaultIdentityWindow    = 256
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			GameDataDir: defaultGameDataDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogDir:  defaultCatalogDir,
		},
		Containers: Containers{
			Primary:      defaultPrimaryContainer,
			GlobalIndex:  defaultGlobalIndex,
			OutputBundle: defaultOutputBundle,
			InternalName: defaultInternalName,
		},
		Engine: Engine{
			StructuralVersion: defaultStructuralVersion,
			EngineVersion:     defaultEngineVersion,
			PlayerVersion:     defaultPlayerVersion,
		},
		Compile: Compile{
			IdentityWindow:   defaultIdentityWindow,
			KeepRawContainer: true,
		},
		Catalog: Catalog{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
