package config

import (
	"os"
	"strconv"
	"time"
)

func loadLogFromEnv(cfg *LogConfig) {
	if v := getEnvString("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
}

// loadSonarFromEnv loads server configuration from environment variables
func loadSonarFromEnv(cfg *SonarConfig) {
	if v := getEnvString("SONAR_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := getEnvString("SONAR_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v := getEnvString("SONAR_SUBSCRIPTION"); v != "" {
		cfg.Subscription = v
	}
	if v := getEnvDuration("SONAR_REQUEST_TIMEOUT"); v != 0 {
		cfg.RequestTimeout = v
	}
}

// loadMQTTFromEnv loads MQTT configuration from environment variables
func loadMQTTFromEnv(cfg *MQTTConfig) {
	loadMQTTStrings(cfg)
	loadMQTTInts(cfg)
	loadMQTTTimeouts(cfg)
	loadMQTTTLS(cfg)
	loadMQTTBools(cfg)
}

func loadMQTTStrings(cfg *MQTTConfig) {
	if v := getEnvString("MQTT_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := getEnvString("MQTT_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := getEnvString("MQTT_TOPIC_PREFIX"); v != "" {
		cfg.TopicPrefix = v
	}
	if v := getEnvString("MQTT_FORMAT"); v != "" {
		cfg.Format = v
	}
}

func loadMQTTInts(cfg *MQTTConfig) {
	if v, ok := lookupEnvInt("MQTT_QOS"); ok && v >= 0 && v <= 2 {
		cfg.QoS = byte(v) // #nosec G115 - validated range 0-2
	}
	if v := getEnvInt("MQTT_POOL_SIZE"); v != 0 {
		cfg.PoolSize = v
	}
	if v := getEnvInt("MQTT_DISCONNECT_TIMEOUT"); v > 0 {
		cfg.DisconnectTimeout = uint(v) // #nosec G115 - checked positive
	}
}

func loadMQTTTimeouts(cfg *MQTTConfig) {
	if v := getEnvDuration("MQTT_CONNECT_TIMEOUT"); v != 0 {
		cfg.ConnectTimeout = v
	}
	if v := getEnvDuration("MQTT_WRITE_TIMEOUT"); v != 0 {
		cfg.WriteTimeout = v
	}
	if v := getEnvDuration("MQTT_MAX_RECONNECT_INTERVAL"); v != 0 {
		cfg.MaxReconnectInterval = v
	}
}

func loadMQTTTLS(cfg *MQTTConfig) {
	if v := getEnvString("MQTT_CA_CERT"); v != "" {
		cfg.CACert = v
	}
	if v := getEnvString("MQTT_CLIENT_CERT"); v != "" {
		cfg.ClientCert = v
	}
	if v := getEnvString("MQTT_CLIENT_KEY"); v != "" {
		cfg.ClientKey = v
	}
}

func loadMQTTBools(cfg *MQTTConfig) {
	lookupEnvBool("MQTT_ENABLED", &cfg.Enabled)
	lookupEnvBool("MQTT_RETAINED", &cfg.Retained)
	lookupEnvBool("MQTT_TLS_ENABLED", &cfg.TLSEnabled)
	lookupEnvBool("MQTT_TLS_INSECURE_SKIP", &cfg.InsecureSkip)
	lookupEnvBool("MQTT_USE_CERT_CN_PREFIX", &cfg.UseCertCNPrefix)
}

// loadRedisFromEnv loads Redis configuration from environment variables
func loadRedisFromEnv(cfg *RedisConfig) {
	lookupEnvBool("REDIS_ENABLED", &cfg.Enabled)
	if v := getEnvString("REDIS_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := getEnvString("REDIS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v, ok := lookupEnvInt("REDIS_DB"); ok {
		cfg.DB = v
	}
	if v := getEnvString("REDIS_STREAM"); v != "" {
		cfg.Stream = v
	}
	if v, ok := lookupEnvInt("REDIS_MAX_LEN"); ok {
		cfg.MaxLen = int64(v)
	}
	loadRedisTimeouts(cfg)
}

func loadRedisTimeouts(cfg *RedisConfig) {
	if v := getEnvDuration("REDIS_DIAL_TIMEOUT"); v != 0 {
		cfg.DialTimeout = v
	}
	if v := getEnvDuration("REDIS_READ_TIMEOUT"); v != 0 {
		cfg.ReadTimeout = v
	}
	if v := getEnvDuration("REDIS_WRITE_TIMEOUT"); v != 0 {
		cfg.WriteTimeout = v
	}
	if v := getEnvDuration("REDIS_PING_TIMEOUT"); v != 0 {
		cfg.PingTimeout = v
	}
}

// loadStoreFromEnv loads local store configuration from environment variables
func loadStoreFromEnv(cfg *StoreConfig) {
	lookupEnvBool("STORE_ENABLED", &cfg.Enabled)
	lookupEnvBool("STORE_SYNC", &cfg.Sync)
	if v := getEnvString("STORE_PATH"); v != "" {
		cfg.Path = v
	}
}

// loadPipelineFromEnv loads Pipeline configuration from environment variables
func loadPipelineFromEnv(cfg *PipelineConfig) {
	if v := getEnvDuration("PIPELINE_SHUTDOWN_TIMEOUT"); v != 0 {
		cfg.ShutdownTimeout = v
	}
	if v := getEnvDuration("PIPELINE_ERROR_BACKOFF"); v != 0 {
		cfg.ErrorBackoff = v
	}
	if v, ok := lookupEnvInt("PIPELINE_MAX_CONSECUTIVE_ERRORS"); ok {
		cfg.MaxConsecutiveErrors = v
	}
	if v := getEnvDuration("PIPELINE_DELIVERY_TIMEOUT"); v != 0 {
		cfg.DeliveryTimeout = v
	}
	lookupEnvBool("PIPELINE_LOG_RECORDS", &cfg.LogRecords)
}

// loadMetricsFromEnv loads metrics configuration from environment variables
func loadMetricsFromEnv(cfg *MetricsConfig) {
	if v := getEnvString("METRICS_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := getEnvString("METRICS_PATH"); v != "" {
		cfg.Path = v
	}
}

// Helper functions for reading environment variables

func getEnvString(key string) string {
	return os.Getenv(key)
}

func getEnvInt(key string) int {
	v, _ := lookupEnvInt(key)
	return v
}

// lookupEnvInt reports whether key holds a valid integer, so explicit zeros apply
func lookupEnvInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return intValue, true
}

func getEnvDuration(key string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return duration
}

// lookupEnvBool sets dst only when key holds a valid boolean, so "false" can
// override a value from the config file
func lookupEnvBool(key string, dst *bool) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if b, err := strconv.ParseBool(value); err == nil {
		*dst = b
	}
}
