package config

import (
	"flag"
	"path/filepath"
	"strings"
)

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagAssets    = flag.String("assets", "", "Comma separated asset root directories")
	flagLODZoom   = flag.Float64("lodzoom", 0, "LOD zoom factor")
	flagHotReload = flag.Bool("hotreload", false, "Watch asset roots and reload changed assets")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAssets != "" {
		var roots []string
		for _, root := range strings.Split(*flagAssets, ",") {
			if root = strings.TrimSpace(root); root != "" {
				roots = append(roots, filepath.Clean(root))
			}
		}
		cfg.Assets.Roots = roots
	}
	if *flagLODZoom > 0 {
		cfg.Engine.LODZoom = float32(*flagLODZoom)
	}
	if *flagHotReload {
		cfg.Engine.HotReload = true
	}
}
