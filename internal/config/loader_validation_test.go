package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "empty endpoint", mutate: func(c *Config) { c.Sonar.Endpoint = "" }, wantErr: "endpoint cannot be empty"},
		{name: "non http endpoint", mutate: func(c *Config) { c.Sonar.Endpoint = "ws://h/api" }, wantErr: "http or https"},
		{name: "bad endpoint url", mutate: func(c *Config) { c.Sonar.Endpoint = "http://[::1" }, wantErr: "valid URL"},
		{name: "empty collection", mutate: func(c *Config) { c.Sonar.Collection = "" }, wantErr: "collection"},
		{name: "negative request timeout", mutate: func(c *Config) { c.Sonar.RequestTimeout = -1 }, wantErr: "request timeout"},
		{name: "disabled mqtt is not checked", mutate: func(c *Config) { c.MQTT.Broker = "" }},
		{name: "mqtt broker", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = ""
		}, wantErr: "mqtt broker"},
		{name: "mqtt client id", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.ClientID = ""
		}, wantErr: "client ID"},
		{name: "mqtt pool size", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.PoolSize = 0
		}, wantErr: "pool size"},
		{name: "mqtt qos", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.QoS = 3
		}, wantErr: "qos"},
		{name: "mqtt format", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Format = "xml"
		}, wantErr: "format"},
		{name: "redis stream", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Stream = ""
		}, wantErr: "redis stream"},
		{name: "redis address", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}, wantErr: "redis address"},
		{name: "redis max len", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.MaxLen = -1
		}, wantErr: "max len"},
		{name: "store path", mutate: func(c *Config) {
			c.Store.Enabled = true
			c.Store.Path = ""
		}, wantErr: "store path"},
		{name: "error backoff", mutate: func(c *Config) { c.Pipeline.ErrorBackoff = 0 }, wantErr: "error backoff"},
		{name: "max errors", mutate: func(c *Config) { c.Pipeline.MaxConsecutiveErrors = -2 }, wantErr: "consecutive"},
		{name: "shutdown timeout", mutate: func(c *Config) { c.Pipeline.ShutdownTimeout = 0 }, wantErr: "shutdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v; want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil; want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v; want error containing %q", err, tt.wantErr)
			}
		})
	}
}
