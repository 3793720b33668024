// Package sonar is a client for a sonar record store: it queries
// collections, pulls and acknowledges subscriptions, and follows a
// collection's push notifications.
package sonar

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the API root of a locally running server.
const DefaultEndpoint = "http://localhost:9191/api"

// Client holds the API root and the HTTP client shared by every collection.
type Client struct {
	endpoint       string
	http           *http.Client
	log            logrus.FieldLogger
	requestTimeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the logger. Request URLs are logged at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithRequestTimeout bounds query, pull and ack requests. It never applies
// to the event stream.
func WithRequestTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.requestTimeout = d
	}
}

// NewClient creates a client for the API rooted at endpoint. An empty
// endpoint selects DefaultEndpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{},
		log:      discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the API root.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// URL joins path onto the API root.
func (c *Client) URL(path string) string {
	return c.endpoint + path
}

// Collection returns a handle for the named collection. No request is made.
func (c *Client) Collection(name string) *Collection {
	return &Collection{name: name, client: c}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
