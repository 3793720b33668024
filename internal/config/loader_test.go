package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

var testEnvKeys = []string{
	"SONAR_CONFIG", "LOG_LEVEL",
	"SONAR_ENDPOINT", "SONAR_COLLECTION", "SONAR_SUBSCRIPTION", "SONAR_REQUEST_TIMEOUT",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX", "MQTT_FORMAT",
	"MQTT_QOS", "MQTT_RETAINED", "MQTT_POOL_SIZE", "MQTT_DISCONNECT_TIMEOUT",
	"MQTT_CONNECT_TIMEOUT", "MQTT_WRITE_TIMEOUT", "MQTT_MAX_RECONNECT_INTERVAL",
	"MQTT_CA_CERT", "MQTT_CLIENT_CERT", "MQTT_CLIENT_KEY",
	"MQTT_TLS_ENABLED", "MQTT_TLS_INSECURE_SKIP", "MQTT_USE_CERT_CN_PREFIX",
	"REDIS_ENABLED", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_STREAM", "REDIS_MAX_LEN",
	"REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT", "REDIS_PING_TIMEOUT",
	"STORE_ENABLED", "STORE_PATH", "STORE_SYNC",
	"PIPELINE_SHUTDOWN_TIMEOUT", "PIPELINE_ERROR_BACKOFF", "PIPELINE_MAX_CONSECUTIVE_ERRORS",
	"PIPELINE_DELIVERY_TIMEOUT", "PIPELINE_LOG_RECORDS",
	"METRICS_ADDRESS", "METRICS_PATH",
}

// clearTestEnv blanks every variable the loader reads; empty values are ignored
func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range testEnvKeys {
		t.Setenv(key, "")
	}
}

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return fs
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sonar.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearTestEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Sonar.Endpoint != "http://localhost:9191/api" {
		t.Errorf("Sonar.Endpoint = %s; want http://localhost:9191/api", cfg.Sonar.Endpoint)
	}
	if cfg.Sonar.Collection != "default" {
		t.Errorf("Sonar.Collection = %s; want default", cfg.Sonar.Collection)
	}
	if cfg.MQTT.Enabled || cfg.Redis.Enabled || cfg.Store.Enabled {
		t.Error("sinks must be disabled by default")
	}
	if cfg.MQTT.Format != FormatJSON {
		t.Errorf("MQTT.Format = %s; want json", cfg.MQTT.Format)
	}
	if cfg.Pipeline.ErrorBackoff != time.Second {
		t.Errorf("Pipeline.ErrorBackoff = %v; want 1s", cfg.Pipeline.ErrorBackoff)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %s; want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearTestEnv(t)

	path := writeConfigFile(t, `
sonar:
  collection: from-file
  subscription: file-sub
  endpoint: http://file:9191/api
mqtt:
  broker: tcp://file:1883
  pool_size: 2
pipeline:
  error_backoff: 3s
`)
	t.Setenv("SONAR_CONFIG", path)
	t.Setenv("SONAR_SUBSCRIPTION", "env-sub")
	t.Setenv("MQTT_BROKER", "tcp://env:1883")

	fs := newTestFlags(t, "--mqtt-broker=tcp://flag:1883", "--pipeline-error-backoff=5s")

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Sonar.Collection != "from-file" {
		t.Errorf("Sonar.Collection = %s; want from-file", cfg.Sonar.Collection)
	}
	if cfg.Sonar.Subscription != "env-sub" {
		t.Errorf("Sonar.Subscription = %s; env must override file", cfg.Sonar.Subscription)
	}
	if cfg.MQTT.Broker != "tcp://flag:1883" {
		t.Errorf("MQTT.Broker = %s; flag must override env", cfg.MQTT.Broker)
	}
	if cfg.MQTT.PoolSize != 2 {
		t.Errorf("MQTT.PoolSize = %d; want 2 from file", cfg.MQTT.PoolSize)
	}
	if cfg.Pipeline.ErrorBackoff != 5*time.Second {
		t.Errorf("Pipeline.ErrorBackoff = %v; want 5s", cfg.Pipeline.ErrorBackoff)
	}
	if cfg.MQTT.ClientID != "sonar-consumer" {
		t.Errorf("MQTT.ClientID = %s; keys missing from the file keep defaults", cfg.MQTT.ClientID)
	}
}

func TestLoad_ConfigFlagOverridesEnvPath(t *testing.T) {
	clearTestEnv(t)

	envPath := writeConfigFile(t, "sonar:\n  collection: env-file\n")
	flagPath := writeConfigFile(t, "sonar:\n  collection: flag-file\n")
	t.Setenv("SONAR_CONFIG", envPath)

	cfg, err := Load(newTestFlags(t, "--config", flagPath))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sonar.Collection != "flag-file" {
		t.Errorf("Sonar.Collection = %s; want flag-file", cfg.Sonar.Collection)
	}
}

func TestLoad_UnsetFlagsKeepLowerLayers(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("SONAR_COLLECTION", "env-coll")

	cfg, err := Load(newTestFlags(t))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sonar.Collection != "env-coll" {
		t.Errorf("Sonar.Collection = %s; flag defaults must not override env", cfg.Sonar.Collection)
	}
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("SONAR_ENDPOINT", "ftp://nowhere")

	if _, err := Load(nil); err == nil {
		t.Error("Load() error = nil; want error for non-http endpoint")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("SONAR_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(nil); err == nil {
		t.Error("Load() error = nil; want error for missing file")
	}
}
