package mqtt

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
)

// Pool manages multiple MQTT client connections for high throughput
type Pool struct {
	clients []*Client
	next    atomic.Uint64
	log     *log.Logger
}

// NewPool creates a pool of cfg.PoolSize connected clients
func NewPool(cfg *config.MQTTConfig, logger *log.Logger) (*Pool, error) {
	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = 1
	}

	// Unique per process, so several consumers can share one config
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	baseClientID := fmt.Sprintf("%s-%s-%d", cfg.ClientID, hostname, os.Getpid())

	clients := make([]*Client, poolSize)
	for i := 0; i < poolSize; i++ {
		clientCfg := *cfg
		clientCfg.ClientID = fmt.Sprintf("%s-%d", baseClientID, i)

		client, err := NewClient(&clientCfg, logger)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = clients[j].Close()
			}
			return nil, fmt.Errorf("failed to create client %d: %w", i, err)
		}
		clients[i] = client
	}

	return newPool(clients, logger), nil
}

func newPool(clients []*Client, logger *log.Logger) *Pool {
	return &Pool{clients: clients, log: logger}
}

// Size returns the number of connections
func (p *Pool) Size() int {
	return len(p.clients)
}

// Publish publishes a message using round-robin across connections
func (p *Pool) Publish(ctx context.Context, topic string, payload message.Payload) error {
	idx := p.next.Add(1) % uint64(len(p.clients)) // #nosec G115
	return p.clients[idx].Publish(ctx, topic, payload)
}

// Close closes all connections in the pool
func (p *Pool) Close() error {
	var lastErr error
	for i, client := range p.clients {
		if err := client.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close client %d: %w", i, err)
		}
	}
	return lastErr
}
