package configs

import (
	"flag"
	"os"

	"eventtrail/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from --config, the
// EVENTTRAIL_CONFIG env var, or a set of conventional locations. An empty
// result means no file: Load falls back to defaults plus env overrides.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("EVENTTRAIL_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/eventtrail/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
