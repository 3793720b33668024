package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FlagConfig names the flag that points at the YAML config file
const FlagConfig = "config"

// RegisterFlags declares every configuration flag on fs. Flags only take
// effect when set explicitly, so their defaults serve as help text.
func RegisterFlags(fs *pflag.FlagSet) {
	d := defaultConfig()

	fs.String(FlagConfig, "", "Path to a YAML config file (env SONAR_CONFIG)")
	fs.String("log-level", d.Log.Level, "Log level (trace, debug, info, warn, error)")

	// Sonar flags
	fs.String("endpoint", d.Sonar.Endpoint, "Sonar API endpoint")
	fs.String("collection", d.Sonar.Collection, "Collection name")
	fs.String("subscription", d.Sonar.Subscription, "Subscription name")
	fs.Duration("request-timeout", d.Sonar.RequestTimeout, "Timeout for query, pull and ack requests")

	// MQTT flags
	fs.Bool("mqtt-enabled", d.MQTT.Enabled, "Publish records to MQTT")
	fs.String("mqtt-broker", d.MQTT.Broker, "MQTT broker URL")
	fs.String("mqtt-client-id", d.MQTT.ClientID, "MQTT client ID")
	fs.String("mqtt-topic-prefix", d.MQTT.TopicPrefix, "MQTT topic prefix")
	fs.String("mqtt-format", d.MQTT.Format, "MQTT payload format (json or binary)")
	fs.Int("mqtt-qos", int(d.MQTT.QoS), "MQTT QoS (0, 1, or 2)")
	fs.Bool("mqtt-retained", d.MQTT.Retained, "Publish retained MQTT messages")
	fs.Duration("mqtt-connect-timeout", d.MQTT.ConnectTimeout, "MQTT connect timeout")
	fs.Duration("mqtt-write-timeout", d.MQTT.WriteTimeout, "MQTT write timeout")
	fs.Int("mqtt-pool-size", d.MQTT.PoolSize, "MQTT connection pool size")
	fs.Duration("mqtt-max-reconnect-interval", d.MQTT.MaxReconnectInterval, "MQTT max reconnect interval")
	fs.Uint("mqtt-disconnect-timeout", d.MQTT.DisconnectTimeout, "MQTT disconnect timeout (ms)")
	fs.Bool("mqtt-tls-enabled", d.MQTT.TLSEnabled, "Enable MQTT TLS")
	fs.String("mqtt-ca-cert", d.MQTT.CACert, "MQTT CA certificate path")
	fs.String("mqtt-client-cert", d.MQTT.ClientCert, "MQTT client certificate path")
	fs.String("mqtt-client-key", d.MQTT.ClientKey, "MQTT client key path")
	fs.Bool("mqtt-tls-insecure-skip", d.MQTT.InsecureSkip, "Skip MQTT TLS verification")
	// Prefix topics with client cert CN (for ACL constraints)
	fs.Bool("mqtt-use-cert-cn-prefix", d.MQTT.UseCertCNPrefix, "Prefix topics with client cert CN")

	// Redis flags
	fs.Bool("redis-enabled", d.Redis.Enabled, "Mirror records to a Redis stream")
	fs.String("redis-address", d.Redis.Address, "Redis address")
	fs.String("redis-password", d.Redis.Password, "Redis password")
	fs.Int("redis-db", d.Redis.DB, "Redis database")
	fs.String("redis-stream", d.Redis.Stream, "Redis mirror stream name")
	fs.Int64("redis-max-len", d.Redis.MaxLen, "Approximate mirror stream length cap (0 for unbounded)")
	fs.Duration("redis-dial-timeout", d.Redis.DialTimeout, "Redis dial timeout")
	fs.Duration("redis-read-timeout", d.Redis.ReadTimeout, "Redis read timeout")
	fs.Duration("redis-write-timeout", d.Redis.WriteTimeout, "Redis write timeout")
	fs.Duration("redis-ping-timeout", d.Redis.PingTimeout, "Redis ping timeout")

	// Store flags
	fs.Bool("store-enabled", d.Store.Enabled, "Keep the latest version of each record locally")
	fs.String("store-path", d.Store.Path, "Local store directory")
	fs.Bool("store-sync", d.Store.Sync, "Sync every store write to disk")

	// Pipeline flags
	fs.Duration("pipeline-shutdown-timeout", d.Pipeline.ShutdownTimeout, "Pipeline shutdown timeout")
	fs.Duration("pipeline-error-backoff", d.Pipeline.ErrorBackoff, "Pause between retries after an error")
	fs.Int("pipeline-max-consecutive-errors", d.Pipeline.MaxConsecutiveErrors, "Give up after this many errors in a row (0 for never)")
	fs.Duration("pipeline-delivery-timeout", d.Pipeline.DeliveryTimeout, "Per-record sink delivery timeout")
	fs.Bool("pipeline-log-records", d.Pipeline.LogRecords, "Log every received record")

	// Metrics flags
	fs.String("metrics-address", d.Metrics.Address, "Prometheus listen address (empty disables)")
	fs.String("metrics-path", d.Metrics.Path, "Prometheus metrics path")
}

// applyFlags applies explicitly set command line flags to cfg
func applyFlags(fs *pflag.FlagSet, cfg *Config) {
	flagString(fs, "log-level", &cfg.Log.Level)
	applySonarFlags(fs, &cfg.Sonar)
	applyMQTTFlags(fs, &cfg.MQTT)
	applyRedisFlags(fs, &cfg.Redis)
	applyStoreFlags(fs, &cfg.Store)
	applyPipelineFlags(fs, &cfg.Pipeline)
	flagString(fs, "metrics-address", &cfg.Metrics.Address)
	flagString(fs, "metrics-path", &cfg.Metrics.Path)
}

func applySonarFlags(fs *pflag.FlagSet, cfg *SonarConfig) {
	flagString(fs, "endpoint", &cfg.Endpoint)
	flagString(fs, "collection", &cfg.Collection)
	flagString(fs, "subscription", &cfg.Subscription)
	flagDuration(fs, "request-timeout", &cfg.RequestTimeout)
}

func applyMQTTFlags(fs *pflag.FlagSet, cfg *MQTTConfig) {
	flagBool(fs, "mqtt-enabled", &cfg.Enabled)
	flagString(fs, "mqtt-broker", &cfg.Broker)
	flagString(fs, "mqtt-client-id", &cfg.ClientID)
	flagString(fs, "mqtt-topic-prefix", &cfg.TopicPrefix)
	flagString(fs, "mqtt-format", &cfg.Format)
	if fs.Changed("mqtt-qos") {
		if v, err := fs.GetInt("mqtt-qos"); err == nil && v >= 0 && v <= 2 {
			cfg.QoS = byte(v) // #nosec G115 - validated range 0-2
		}
	}
	flagBool(fs, "mqtt-retained", &cfg.Retained)
	flagDuration(fs, "mqtt-connect-timeout", &cfg.ConnectTimeout)
	flagDuration(fs, "mqtt-write-timeout", &cfg.WriteTimeout)
	flagInt(fs, "mqtt-pool-size", &cfg.PoolSize)
	flagDuration(fs, "mqtt-max-reconnect-interval", &cfg.MaxReconnectInterval)
	if fs.Changed("mqtt-disconnect-timeout") {
		if v, err := fs.GetUint("mqtt-disconnect-timeout"); err == nil {
			cfg.DisconnectTimeout = v
		}
	}
	flagBool(fs, "mqtt-tls-enabled", &cfg.TLSEnabled)
	flagString(fs, "mqtt-ca-cert", &cfg.CACert)
	flagString(fs, "mqtt-client-cert", &cfg.ClientCert)
	flagString(fs, "mqtt-client-key", &cfg.ClientKey)
	flagBool(fs, "mqtt-tls-insecure-skip", &cfg.InsecureSkip)
	flagBool(fs, "mqtt-use-cert-cn-prefix", &cfg.UseCertCNPrefix)
}

func applyRedisFlags(fs *pflag.FlagSet, cfg *RedisConfig) {
	flagBool(fs, "redis-enabled", &cfg.Enabled)
	flagString(fs, "redis-address", &cfg.Address)
	flagString(fs, "redis-password", &cfg.Password)
	flagInt(fs, "redis-db", &cfg.DB)
	flagString(fs, "redis-stream", &cfg.Stream)
	if fs.Changed("redis-max-len") {
		if v, err := fs.GetInt64("redis-max-len"); err == nil {
			cfg.MaxLen = v
		}
	}
	flagDuration(fs, "redis-dial-timeout", &cfg.DialTimeout)
	flagDuration(fs, "redis-read-timeout", &cfg.ReadTimeout)
	flagDuration(fs, "redis-write-timeout", &cfg.WriteTimeout)
	flagDuration(fs, "redis-ping-timeout", &cfg.PingTimeout)
}

func applyStoreFlags(fs *pflag.FlagSet, cfg *StoreConfig) {
	flagBool(fs, "store-enabled", &cfg.Enabled)
	flagString(fs, "store-path", &cfg.Path)
	flagBool(fs, "store-sync", &cfg.Sync)
}

func applyPipelineFlags(fs *pflag.FlagSet, cfg *PipelineConfig) {
	flagDuration(fs, "pipeline-shutdown-timeout", &cfg.ShutdownTimeout)
	flagDuration(fs, "pipeline-error-backoff", &cfg.ErrorBackoff)
	flagInt(fs, "pipeline-max-consecutive-errors", &cfg.MaxConsecutiveErrors)
	flagDuration(fs, "pipeline-delivery-timeout", &cfg.DeliveryTimeout)
	flagBool(fs, "pipeline-log-records", &cfg.LogRecords)
}

// Helpers that copy a flag only when it was set on the command line.
// Unregistered names are skipped.

func flagString(fs *pflag.FlagSet, name string, dst *string) {
	if !fs.Changed(name) {
		return
	}
	if v, err := fs.GetString(name); err == nil {
		*dst = v
	}
}

func flagInt(fs *pflag.FlagSet, name string, dst *int) {
	if !fs.Changed(name) {
		return
	}
	if v, err := fs.GetInt(name); err == nil {
		*dst = v
	}
}

func flagBool(fs *pflag.FlagSet, name string, dst *bool) {
	if !fs.Changed(name) {
		return
	}
	if v, err := fs.GetBool(name); err == nil {
		*dst = v
	}
}

func flagDuration(fs *pflag.FlagSet, name string, dst *time.Duration) {
	if !fs.Changed(name) {
		return
	}
	if v, err := fs.GetDuration(name); err == nil {
		*dst = v
	}
}
