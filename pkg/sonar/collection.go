package sonar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/ibs-source/sonar-consumer/pkg/sse"
)

// maxErrorBody bounds how much of a failed response is kept in a StatusError.
const maxErrorBody = 512

// EventStream yields push notifications of a collection.
type EventStream interface {
	// Next blocks for the next event. io.EOF means the stream has ended.
	Next(ctx context.Context) (sse.Event, error)
	Close() error
}

// Endpoint is the part of a collection a subscription needs.
type Endpoint interface {
	Pull(ctx context.Context, sub string) (*schema.PullResponse, error)
	Ack(ctx context.Context, sub string, cursor uint64) error
	Events(ctx context.Context) (EventStream, error)
}

// Collection is a named collection on the server. It is cheap to copy and
// safe for concurrent use.
type Collection struct {
	name   string
	client *Client
}

var _ Endpoint = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// URL returns the absolute URL of path below the collection.
func (c *Collection) URL(path string) string {
	u := c.client.URL("/collection/" + url.PathEscape(c.name) + path)
	c.client.log.WithField("collection", c.name).Debugf("url %s", u)
	return u
}

// Query runs the named query with args encoded as the JSON request body.
func (c *Collection) Query(ctx context.Context, name string, args any) ([]schema.Record, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode query args: %w", err)
	}
	u := c.URL("/query/" + url.PathEscape(name))

	var records []schema.Record
	if err := c.do(ctx, http.MethodPost, u, body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Pull fetches the next batch of the subscription.
func (c *Collection) Pull(ctx context.Context, sub string) (*schema.PullResponse, error) {
	u := c.URL("/subscription/" + url.PathEscape(sub))

	var resp schema.PullResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ack acknowledges every record of the subscription up to cursor. The
// response body is ignored.
func (c *Collection) Ack(ctx context.Context, sub string, cursor uint64) error {
	u := c.URL("/subscription/" + url.PathEscape(sub) + "/" + strconv.FormatUint(cursor, 10))
	return c.do(ctx, http.MethodPost, u, nil, nil)
}

// Events opens the push notification stream. The stream stays open after
// ctx is done; release it with Close.
func (c *Collection) Events(ctx context.Context) (EventStream, error) {
	s, err := sse.Open(ctx, c.client.http, c.URL("/events"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe opens the event stream and returns a subscription in its
// initial state.
func (c *Collection) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	return NewSubscription(ctx, c, name, WithSubscriptionLogger(c.client.log))
}

func (c *Collection) do(ctx context.Context, method, u string, body []byte, out any) error {
	if c.client.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.client.requestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, URL: u, Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, u, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{URL: u, Err: err}
	}
	return nil
}
