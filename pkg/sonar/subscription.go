package sonar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"

	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/sirupsen/logrus"
)

// Phase is the step a subscription performs on its next advance.
type Phase int

const (
	PhaseInit Phase = iota
	PhasePulling
	PhaseAcknowledging
	PhaseWaiting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePulling:
		return "pulling"
	case PhaseAcknowledging:
		return "acknowledging"
	case PhaseWaiting:
		return "waiting"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a subscription state. The acknowledging state carries the
// cursor of the pull it follows, and only a pull can produce it.
type State struct {
	phase  Phase
	cursor uint64
}

func acknowledging(cursor uint64) State {
	return State{phase: PhaseAcknowledging, cursor: cursor}
}

// Phase returns the step the subscription will perform next.
func (s State) Phase() Phase {
	return s.phase
}

// AckCursor returns the cursor that will be acknowledged, if the state is
// acknowledging.
func (s State) AckCursor() (uint64, bool) {
	return s.cursor, s.phase == PhaseAcknowledging
}

func (s State) String() string {
	if s.phase == PhaseAcknowledging {
		return fmt.Sprintf("acknowledging(%d)", s.cursor)
	}
	return s.phase.String()
}

// SubscriptionOption configures a Subscription
type SubscriptionOption func(*Subscription)

// WithSubscriptionLogger sets the logger for state transitions.
func WithSubscriptionLogger(l logrus.FieldLogger) SubscriptionOption {
	return func(s *Subscription) {
		if l != nil {
			s.log = l
		}
	}
}

// Subscription walks a named server-side subscription: pull a batch, hand
// it out, acknowledge its cursor, and once the server reports the backlog
// finished, wait for a push notification before pulling again.
//
// Next must not be called concurrently. Close may be called from any
// goroutine.
type Subscription struct {
	name   string
	ep     Endpoint
	events EventStream
	log    logrus.FieldLogger

	state    State
	finished bool
	cursor   uint64
	seen     bool

	closed atomic.Bool
}

// NewSubscription opens the event stream of ep and returns a subscription
// in its initial state. No pull is made until Next is called.
func NewSubscription(ctx context.Context, ep Endpoint, name string, opts ...SubscriptionOption) (*Subscription, error) {
	s := &Subscription{
		name: name,
		ep:   ep,
		log:  discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("subscription", name)

	events, err := ep.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("open events for subscription %s: %w", name, err)
	}
	s.events = events
	return s, nil
}

// Name returns the subscription name.
func (s *Subscription) Name() string {
	return s.name
}

// State returns the current state.
func (s *Subscription) State() State {
	return s.state
}

// Cursor returns the cursor of the last successful pull. The server is
// authoritative: a cursor lower than the previous one is logged as a
// warning and then adopted, so the value is not guaranteed to be monotonic.
func (s *Subscription) Cursor() (uint64, bool) {
	return s.cursor, s.seen
}

// Next advances the subscription until a non-empty batch is pulled, and
// returns it. The batch is acknowledged by the following call to Next.
//
// A failed pull or ack is returned with the state unchanged, so calling
// Next again retries the same step. When the event stream ends Next returns
// io.EOF, and keeps doing so. An event stream failure is returned once;
// io.EOF follows.
func (s *Subscription) Next(ctx context.Context) (*schema.PullResponse, error) {
	for {
		if s.closed.Load() {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch s.state.phase {
		case PhaseInit:
			s.transition(State{phase: PhasePulling})

		case PhasePulling:
			resp, err := s.ep.Pull(ctx, s.name)
			if err != nil {
				return nil, fmt.Errorf("pull subscription %s: %w", s.name, err)
			}
			if s.seen && resp.Cursor < s.cursor {
				s.log.Warnf("cursor went backwards from %d to %d", s.cursor, resp.Cursor)
			}
			s.cursor, s.seen = resp.Cursor, true
			s.finished = resp.Finished
			s.transition(acknowledging(resp.Cursor))
			if len(resp.Messages) > 0 {
				return resp, nil
			}

		case PhaseAcknowledging:
			if err := s.ep.Ack(ctx, s.name, s.state.cursor); err != nil {
				return nil, fmt.Errorf("ack subscription %s at %d: %w", s.name, s.state.cursor, err)
			}
			if s.finished {
				s.transition(State{phase: PhaseWaiting})
			} else {
				s.transition(State{phase: PhasePulling})
			}

		case PhaseWaiting:
			ev, err := s.events.Next(ctx)
			switch {
			case err == nil:
				s.log.Debugf("event %q received", ev.Type)
				s.transition(State{phase: PhasePulling})
			case errors.Is(err, io.EOF):
				s.transition(State{phase: PhaseDone})
				return nil, io.EOF
			case ctx.Err() != nil:
				return nil, ctx.Err()
			default:
				s.transition(State{phase: PhaseDone})
				return nil, fmt.Errorf("event stream: %w", err)
			}

		default:
			return nil, io.EOF
		}
	}
}

// Batches adapts Next to a range loop. Iteration ends at io.EOF, or after
// the first error is yielded.
func (s *Subscription) Batches(ctx context.Context) iter.Seq2[*schema.PullResponse, error] {
	return func(yield func(*schema.PullResponse, error) bool) {
		for {
			resp, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(resp, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the event stream. Subsequent calls to Next return
// ErrClosed.
func (s *Subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.events.Close()
}

func (s *Subscription) transition(next State) {
	s.log.Debugf("%s -> %s", s.state, next)
	s.state = next
}
