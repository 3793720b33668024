package config

import "time"

// defaultSonarConfig returns the default server configuration
func defaultSonarConfig() SonarConfig {
	return SonarConfig{
		Endpoint:       "http://localhost:9191/api",
		Collection:     "default",
		Subscription:   "",
		RequestTimeout: 30 * time.Second,
	}
}

// defaultMQTTConfig returns the default MQTT configuration
func defaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:              false,
		Broker:               "tcp://localhost:1883",
		ClientID:             "sonar-consumer",
		TopicPrefix:          "sonar",
		Format:               FormatJSON,
		QoS:                  0,
		Retained:             false,
		ConnectTimeout:       10 * time.Second,
		WriteTimeout:         30 * time.Second,
		PoolSize:             4,
		MaxReconnectInterval: 10 * time.Second,
		DisconnectTimeout:    1000,
		TLSEnabled:           false,
		CACert:               "",
		ClientCert:           "",
		ClientKey:            "",
		InsecureSkip:         false,
		UseCertCNPrefix:      false,
	}
}

// defaultRedisConfig returns the default Redis configuration
func defaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Address:      "localhost:6379",
		Stream:       "sonar-records",
		MaxLen:       100000,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

// defaultStoreConfig returns the default local store configuration
func defaultStoreConfig() StoreConfig {
	return StoreConfig{
		Enabled: false,
		Path:    "./data/records",
		Sync:    false,
	}
}

// defaultPipelineConfig returns the default pipeline configuration
func defaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ShutdownTimeout:      30 * time.Second,
		ErrorBackoff:         1 * time.Second,
		MaxConsecutiveErrors: 0,
		DeliveryTimeout:      10 * time.Second,
		LogRecords:           true,
	}
}

// defaultMetricsConfig returns the default metrics configuration
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Address: "",
		Path:    "/metrics",
	}
}

// defaultConfig returns a complete configuration with all default values
func defaultConfig() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Sonar:    defaultSonarConfig(),
		MQTT:     defaultMQTTConfig(),
		Redis:    defaultRedisConfig(),
		Store:    defaultStoreConfig(),
		Pipeline: defaultPipelineConfig(),
		Metrics:  defaultMetricsConfig(),
	}
}
