package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Payload formats for the MQTT sink
const (
	FormatJSON   = "json"
	FormatBinary = "binary"
)

// Load loads configuration with precedence: defaults → YAML file → environment variables → command line flags.
// fs may be nil when there are no flags. It performs validation and runtime transformations before returning the configuration.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// Step 1: Start with defaults
	cfg := defaultConfig()

	// Step 2: Apply the YAML file, if any
	if path := configPath(fs); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Step 3: Apply environment variables
	loadLogFromEnv(&cfg.Log)
	loadSonarFromEnv(&cfg.Sonar)
	loadMQTTFromEnv(&cfg.MQTT)
	loadRedisFromEnv(&cfg.Redis)
	loadStoreFromEnv(&cfg.Store)
	loadPipelineFromEnv(&cfg.Pipeline)
	loadMetricsFromEnv(&cfg.Metrics)

	// Step 4: Apply command line flags (highest precedence)
	if fs != nil {
		applyFlags(fs, cfg)
	}

	// Step 5: Apply runtime validations and transformations
	if err := applyRuntimeValidation(cfg); err != nil {
		return nil, err
	}

	// Step 6: Validate the final configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// configPath picks the file named by --config, falling back to SONAR_CONFIG
func configPath(fs *pflag.FlagSet) string {
	if fs != nil && fs.Changed(FlagConfig) {
		if v, err := fs.GetString(FlagConfig); err == nil {
			return v
		}
	}
	return os.Getenv("SONAR_CONFIG")
}
