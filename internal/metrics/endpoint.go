package metrics

import (
	"context"
	"time"

	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/ibs-source/sonar-consumer/pkg/sonar"
	"github.com/ibs-source/sonar-consumer/pkg/sse"
)

// Endpoint counts every request made through the wrapped endpoint
type Endpoint struct {
	next       sonar.Endpoint
	collection string
	metrics    *Metrics
}

var _ sonar.Endpoint = (*Endpoint)(nil)

// Instrument wraps ep so that pulls, acks and events are recorded
func (m *Metrics) Instrument(ep sonar.Endpoint, collection string) *Endpoint {
	return &Endpoint{next: ep, collection: collection, metrics: m}
}

// Pull forwards to the wrapped endpoint and updates the cursor gauge
func (e *Endpoint) Pull(ctx context.Context, sub string) (*schema.PullResponse, error) {
	started := time.Now()
	resp, err := e.next.Pull(ctx, sub)
	e.metrics.ObserveRequest(e.collection, "pull", started, err)
	if err == nil {
		e.metrics.Cursor.WithLabelValues(e.collection, sub).Set(float64(resp.Cursor))
	}
	return resp, err
}

// Ack forwards to the wrapped endpoint
func (e *Endpoint) Ack(ctx context.Context, sub string, cursor uint64) error {
	started := time.Now()
	err := e.next.Ack(ctx, sub, cursor)
	e.metrics.ObserveRequest(e.collection, "ack", started, err)
	return err
}

// Events opens the wrapped stream and counts the events read from it
func (e *Endpoint) Events(ctx context.Context) (sonar.EventStream, error) {
	started := time.Now()
	stream, err := e.next.Events(ctx)
	e.metrics.ObserveRequest(e.collection, "events", started, err)
	if err != nil {
		return nil, err
	}
	return &eventStream{EventStream: stream, counter: e.metrics.Events.WithLabelValues(e.collection)}, nil
}

type counter interface{ Inc() }

type eventStream struct {
	sonar.EventStream
	counter counter
}

func (s *eventStream) Next(ctx context.Context) (sse.Event, error) {
	ev, err := s.EventStream.Next(ctx)
	if err == nil {
		s.counter.Inc()
	}
	return ev, err
}
