package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/ibs-source/sonar-consumer/pkg/sonar"
)

// Querier runs named queries; *sonar.Collection implements it
type Querier interface {
	Query(ctx context.Context, name string, args any) ([]schema.Record, error)
}

// EventSource opens the push stream of a collection; *sonar.Collection implements it
type EventSource interface {
	Events(ctx context.Context) (sonar.EventStream, error)
}

// RunQuery runs query name with args and dispatches the results
func RunQuery(ctx context.Context, q Querier, name string, args any, d *Dispatcher, logger *log.Logger) ([]schema.Record, error) {
	records, err := q.Query(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	logger.Info("%d results", len(records))
	d.Dispatch(ctx, "", 0, records)
	return records, nil
}

// RunEvents logs every push event of collection until the stream ends or ctx is done
func RunEvents(ctx context.Context, src EventSource, collection string, logger *log.Logger) error {
	stream, err := src.Events(ctx)
	if err != nil {
		return fmt.Errorf("open event stream of %s: %w", collection, err)
	}
	defer func() { _ = stream.Close() }()

	for {
		ev, err := stream.Next(ctx)
		switch {
		case err == nil:
			logger.Info("[%s] Event %s: %s", collection, ev.Type, ev.Data)
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("event stream of %s: %w", collection, err)
		}
	}
}
