// Package sse reads server-sent event streams.
package sse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Event is one dispatched server-sent event
type Event struct {
	ID   string
	Type string
	Data string
}

// maxLine bounds a single field line
const maxLine = 1 << 20

// Parse reads SSE framing from r and calls fn for every dispatched event.
// It returns nil when r ends cleanly, the read error otherwise, or the first
// error returned by fn.
func Parse(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var (
		ev      Event
		data    strings.Builder
		hasData bool
		lastID  string
	)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.ID = lastID
			ev.Data = data.String()
			if ev.Type == "" {
				ev.Type = "message"
			}
			if err := fn(ev); err != nil {
				return err
			}
			ev = Event{}
			data.Reset()
			hasData = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				lastID = value
			}
		}
	}
	return sc.Err()
}

type result struct {
	ev  Event
	err error
}

// Stream is an open event stream. Events are read by a single background
// goroutine and handed out through Next.
type Stream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	events chan result
	done   bool

	closeOnce sync.Once
}

// Open issues a GET for url and starts reading its events. The connection
// is not bound to ctx beyond the initial request: it lives until Close is
// called or the server ends the stream.
func Open(ctx context.Context, client *http.Client, url string) (*Stream, error) {
	if client == nil {
		client = http.DefaultClient
	}
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, url, nil)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("create event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	// Only the request phase follows the caller's context.
	stopped := stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open event stream %s: %w", url, err)
	}
	if !stopped {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open event stream %s: %w", url, ctx.Err())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open event stream %s: unexpected status %s", url, resp.Status)
	}

	s := &Stream{
		body:   resp.Body,
		cancel: cancel,
		events: make(chan result),
	}
	go s.read(connCtx)
	return s, nil
}

func (s *Stream) read(ctx context.Context) {
	defer close(s.events)
	err := Parse(s.body, func(ev Event) error {
		select {
		case s.events <- result{ev: ev}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err == nil || ctx.Err() != nil {
		return
	}
	select {
	case s.events <- result{err: err}:
	case <-ctx.Done():
	}
}

// Next blocks until the next event arrives. It returns io.EOF once the
// stream has ended; a read failure is returned once and io.EOF after that.
// Cancelling ctx abandons the wait without affecting the stream.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}
	select {
	case r, ok := <-s.events:
		if !ok {
			s.done = true
			return Event{}, io.EOF
		}
		if r.err != nil {
			s.done = true
			return Event{}, r.err
		}
		return r.ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close ends the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}
