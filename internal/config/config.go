// Package config handles engine configuration loading and management.
package config

import "time"

// Config holds all engine settings.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Assets  AssetsConfig  `yaml:"assets"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds composition and LOD settings.
type EngineConfig struct {
	// LODZoom scales every computed LOD distance. Values above 1 make
	// lower detail levels kick in closer to the camera.
	LODZoom float32 `yaml:"lod_zoom"`
	// HotReload watches asset roots and reloads changed documents.
	HotReload bool `yaml:"hot_reload"`
	// ReloadChildren also reloads models whose parent was reloaded.
	ReloadChildren bool `yaml:"reload_children"`
	// ReloadDebounce collapses bursts of file events for one asset.
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

// AssetsConfig holds asset document locations.
type AssetsConfig struct {
	Roots     []string `yaml:"roots"`     // Directories searched for asset documents, last wins
	Extension string   `yaml:"extension"` // Asset document file extension
	Cache     bool     `yaml:"cache"`     // Cache raw document bytes between loads
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			LODZoom:        1.0,
			HotReload:      false,
			ReloadChildren: true,
			ReloadDebounce: 100 * time.Millisecond,
		},
		Assets: AssetsConfig{
			Roots:     []string{"res"},
			Extension: ".model",
			Cache:     true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
