// Package consumer drives a subscription and hands each pulled batch to the sinks.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/metrics"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"golang.org/x/time/rate"
)

// Source yields batches of a subscription; *sonar.Subscription implements it
type Source interface {
	Name() string
	Next(ctx context.Context) (*schema.PullResponse, error)
}

// ErrTooManyErrors is returned by Run once MaxConsecutiveErrors is reached
var ErrTooManyErrors = errors.New("too many consecutive errors")

// Consumer pulls batches from one subscription until its event stream ends
type Consumer struct {
	source     Source
	dispatcher *Dispatcher
	collection string
	limiter    *rate.Limiter
	maxErrors  int
	metrics    *metrics.Metrics
	log        *log.Logger
}

// New creates a consumer. m may be nil.
func New(source Source, dispatcher *Dispatcher, cfg *config.PipelineConfig, m *metrics.Metrics, logger *log.Logger) *Consumer {
	return &Consumer{
		source:     source,
		dispatcher: dispatcher,
		collection: dispatcher.collection,
		limiter:    rate.NewLimiter(rate.Every(cfg.ErrorBackoff), 1),
		maxErrors:  cfg.MaxConsecutiveErrors,
		metrics:    m,
		log:        logger,
	}
}

// Run consumes until the event stream ends (nil), ctx is done (ctx.Err()) or
// MaxConsecutiveErrors failures happen in a row. Failed steps are retried,
// at most one per ErrorBackoff. A batch is fully dispatched before the next
// call to Next acknowledges it.
func (c *Consumer) Run(ctx context.Context) error {
	name := c.source.Name()
	c.log.Info("Consuming subscription '%s' of collection '%s'", name, c.collection)

	consecutive := 0
	for {
		resp, err := c.source.Next(ctx)
		switch {
		case err == nil:
			consecutive = 0
			c.handle(ctx, name, resp)
			continue
		case errors.Is(err, io.EOF):
			c.log.Info("Event stream of collection '%s' ended", c.collection)
			return nil
		case ctx.Err() != nil:
			c.log.Info("Stopping subscription '%s'", name)
			return ctx.Err()
		}

		consecutive++
		if c.metrics != nil {
			c.metrics.ConsumerErrors.WithLabelValues(c.collection, name).Inc()
		}
		c.log.Error("Subscription '%s' step failed (%d in a row): %v", name, consecutive, err)
		if c.maxErrors > 0 && consecutive >= c.maxErrors {
			return fmt.Errorf("%w: %w", ErrTooManyErrors, err)
		}
		if err := c.backoff(ctx); err != nil {
			return err
		}
	}
}

// backoff waits for the limiter to allow the next retry
func (c *Consumer) backoff(ctx context.Context) error {
	r := c.limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *Consumer) handle(ctx context.Context, name string, resp *schema.PullResponse) {
	c.log.Debug("Batch of %d records at cursor %d", len(resp.Messages), resp.Cursor)
	if c.metrics != nil {
		c.metrics.Batches.WithLabelValues(c.collection, name).Inc()
		c.metrics.Records.WithLabelValues(c.collection, name).Add(float64(len(resp.Messages)))
		c.metrics.Cursor.WithLabelValues(c.collection, name).Set(float64(resp.Cursor))
	}
	c.dispatcher.Dispatch(ctx, name, resp.Cursor, resp.Messages)
}
