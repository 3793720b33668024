package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/consumer"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/metrics"
	"github.com/ibs-source/sonar-consumer/internal/mqtt"
	"github.com/ibs-source/sonar-consumer/internal/redis"
	"github.com/ibs-source/sonar-consumer/internal/store"
	"github.com/ibs-source/sonar-consumer/pkg/sonar"
	"github.com/spf13/cobra"
)

// app holds what every command needs
type app struct {
	cfg     *config.Config
	log     *log.Logger
	client  *sonar.Client
	metrics *metrics.Metrics
}

// newApp loads the configuration from the command's flags and builds the client
func newApp(cmd *cobra.Command) (*app, error) {
	logger := log.New()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)

	logger.Info("Configuration loaded successfully")
	logger.Info("Sonar: %s, Collection: %s", cfg.Sonar.Endpoint, cfg.Sonar.Collection)

	client := sonar.NewClient(cfg.Sonar.Endpoint,
		sonar.WithLogger(logger.FieldLogger()),
		sonar.WithRequestTimeout(cfg.Sonar.RequestTimeout),
	)

	return &app{
		cfg:     cfg,
		log:     logger,
		client:  client,
		metrics: metrics.New(),
	}, nil
}

// serveMetrics starts the Prometheus endpoint when an address is configured
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Address == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Address, a.cfg.Metrics.Path, a.log); err != nil {
			a.log.Error("Metrics server failed: %v", err)
		}
	}()
}

// dispatcher opens every enabled sink. On failure the sinks opened so far are closed.
func (a *app) dispatcher() (*consumer.Dispatcher, error) {
	sinks, err := a.openSinks()
	if err != nil {
		for _, sink := range sinks {
			_ = sink.Close()
		}
		return nil, err
	}
	if len(sinks) == 0 {
		a.log.Warn("No sinks enabled, records will be acknowledged without being handled")
	}
	return consumer.NewDispatcher(a.cfg.Sonar.Collection, sinks, a.cfg.Pipeline.DeliveryTimeout, a.metrics, a.log), nil
}

func (a *app) openSinks() ([]consumer.Sink, error) {
	var sinks []consumer.Sink

	if a.cfg.Pipeline.LogRecords {
		sinks = append(sinks, consumer.NewLogSink(a.log))
	}

	if a.cfg.MQTT.Enabled {
		pool, err := mqtt.NewPool(&a.cfg.MQTT, a.log)
		if err != nil {
			return sinks, fmt.Errorf("failed to create MQTT pool: %w", err)
		}
		a.log.Info("Connected to MQTT broker with %d connections", pool.Size())
		sinks = append(sinks, mqtt.NewSink(pool, &a.cfg.MQTT))
	}

	if a.cfg.Redis.Enabled {
		client, err := redis.NewClient(&a.cfg.Redis, a.log)
		if err != nil {
			return sinks, fmt.Errorf("failed to create Redis client: %w", err)
		}
		sinks = append(sinks, client)
	}

	if a.cfg.Store.Enabled {
		s, err := store.Open(&a.cfg.Store, a.log)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// collection returns the configured collection, instrumented for metrics
func (a *app) collection() (*sonar.Collection, *metrics.Endpoint) {
	coll := a.client.Collection(a.cfg.Sonar.Collection)
	return coll, a.metrics.Instrument(coll, coll.Name())
}

// ignoreCanceled maps a context cancellation to a clean exit
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
