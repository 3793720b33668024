// Package config provides configuration loading and validation from a YAML file, environment variables and command line flags.
package config

import "time"

// Config holds the complete configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Sonar    SonarConfig    `yaml:"sonar"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Redis    RedisConfig    `yaml:"redis"`
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// SonarConfig holds the server endpoint and what to read from it
type SonarConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Collection     string        `yaml:"collection"`
	Subscription   string        `yaml:"subscription"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MQTTConfig holds MQTT sink configuration
type MQTTConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Broker               string        `yaml:"broker"`
	ClientID             string        `yaml:"client_id"`
	TopicPrefix          string        `yaml:"topic_prefix"`
	Format               string        `yaml:"format"` // json or binary
	QoS                  byte          `yaml:"qos"`
	Retained             bool          `yaml:"retained"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	PoolSize             int           `yaml:"pool_size"` // Number of connections for high throughput
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	DisconnectTimeout    uint          `yaml:"disconnect_timeout"` // Milliseconds for graceful disconnect
	// TLS Configuration
	TLSEnabled      bool   `yaml:"tls_enabled"`
	CACert          string `yaml:"ca_cert"`
	ClientCert      string `yaml:"client_cert"`
	ClientKey       string `yaml:"client_key"`
	InsecureSkip    bool   `yaml:"tls_insecure_skip"`
	UseCertCNPrefix bool   `yaml:"use_cert_cn_prefix"` // If true, prefix topics with cert CN for ACL constraints
}

// RedisConfig holds the Redis mirror stream configuration
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Stream       string        `yaml:"stream"`
	MaxLen       int64         `yaml:"max_len"` // Approximate stream cap, 0 for unbounded
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
}

// StoreConfig holds the local record store configuration
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Sync    bool   `yaml:"sync"`
}

// PipelineConfig holds consumer loop settings
type PipelineConfig struct {
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	ErrorBackoff         time.Duration `yaml:"error_backoff"`          // Pause between retries after a failed step
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"` // 0 retries forever
	DeliveryTimeout      time.Duration `yaml:"delivery_timeout"`       // Per-record bound on each sink
	LogRecords           bool          `yaml:"log_records"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Address string `yaml:"address"` // Empty disables the endpoint
	Path    string `yaml:"path"`
}
