package config

import (
	"fmt"
	"net/url"

	"github.com/ibs-source/sonar-consumer/internal/log"
)

// Validate checks configuration constraints
func Validate(cfg *Config) error {
	if _, ok := log.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	if err := validateSonar(&cfg.Sonar); err != nil {
		return err
	}
	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}
	if err := validateRedis(&cfg.Redis); err != nil {
		return err
	}
	if err := validateStore(&cfg.Store); err != nil {
		return err
	}
	return validatePipeline(&cfg.Pipeline)
}

// validateSonar validates the server configuration
func validateSonar(cfg *SonarConfig) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("sonar endpoint cannot be empty")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("sonar endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("sonar endpoint must use http or https, got %q", u.Scheme)
	}
	if cfg.Collection == "" {
		return fmt.Errorf("sonar collection cannot be empty")
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("sonar request timeout cannot be negative")
	}
	return nil
}

// validateMQTT validates MQTT configuration; a disabled sink is not checked
func validateMQTT(cfg *MQTTConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Broker == "" {
		return fmt.Errorf("mqtt broker cannot be empty")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("mqtt client ID cannot be empty")
	}
	if cfg.PoolSize < 1 {
		return fmt.Errorf("mqtt pool size must be positive")
	}
	if cfg.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	if cfg.Format != FormatJSON && cfg.Format != FormatBinary {
		return fmt.Errorf("mqtt format must be %q or %q, got %q", FormatJSON, FormatBinary, cfg.Format)
	}
	return nil
}

// validateRedis validates Redis configuration; a disabled sink is not checked
func validateRedis(cfg *RedisConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Address == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if cfg.Stream == "" {
		return fmt.Errorf("redis stream cannot be empty")
	}
	if cfg.MaxLen < 0 {
		return fmt.Errorf("redis max len cannot be negative")
	}
	return nil
}

// validateStore validates the local store configuration
func validateStore(cfg *StoreConfig) error {
	if cfg.Enabled && cfg.Path == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	return nil
}

// validatePipeline validates Pipeline configuration
func validatePipeline(cfg *PipelineConfig) error {
	if cfg.ErrorBackoff <= 0 {
		return fmt.Errorf("pipeline error backoff must be positive")
	}
	if cfg.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("pipeline max consecutive errors cannot be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("pipeline shutdown timeout must be positive")
	}
	return nil
}
