package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
	"github.com/ibs-source/sonar-consumer/internal/metrics"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
)

// Sink receives every record handed out by a Dispatcher
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env message.Envelope) error
	Close() error
}

// Dispatcher wraps records in envelopes and fans them out to sinks
type Dispatcher struct {
	collection string
	sinks      []Sink
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *log.Logger
	now        func() time.Time
}

// NewDispatcher creates a dispatcher for records of collection. timeout bounds
// each delivery, 0 for none. m may be nil.
func NewDispatcher(collection string, sinks []Sink, timeout time.Duration, m *metrics.Metrics, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		collection: collection,
		sinks:      sinks,
		timeout:    timeout,
		metrics:    m,
		log:        logger,
		now:        time.Now,
	}
}

// Dispatch delivers records to every sink and returns once all sinks are done.
// Each sink runs in its own goroutine and sees the records in order.
// Failed deliveries are logged and counted, not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, subscription string, cursor uint64, records []schema.Record) {
	if len(records) == 0 || len(d.sinks) == 0 {
		return
	}

	received := d.now()
	envelopes := make([]message.Envelope, len(records))
	for i := range records {
		envelopes[i] = message.Envelope{
			Delivery:     uuid.NewString(),
			Collection:   d.collection,
			Subscription: subscription,
			Cursor:       cursor,
			ReceivedAt:   received,
			Record:       records[i],
		}
	}

	var wg sync.WaitGroup
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()
			for i := range envelopes {
				d.deliver(ctx, sink, envelopes[i])
			}
		}(sink)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, env message.Envelope) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := sink.Deliver(ctx, env)
	if d.metrics != nil {
		d.metrics.ObserveDelivery(sink.Name(), err)
	}
	if err != nil {
		d.log.Error("Sink %s failed for record %s (delivery %s): %v", sink.Name(), env.Record.ID, env.Delivery, err)
	}
}

// Close closes every sink and returns the last error
func (d *Dispatcher) Close() error {
	var lastErr error
	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil {
			d.log.Error("Failed to close sink %s: %v", sink.Name(), err)
			lastErr = err
		}
	}
	return lastErr
}
