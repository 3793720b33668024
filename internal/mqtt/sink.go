package mqtt

import (
	"context"
	"strings"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/message"
)

// Sink publishes every delivered record to <prefix>/<collection>/<type>
type Sink struct {
	pub    Publisher
	prefix string
	binary bool
}

// NewSink wraps pub. cfg supplies the topic prefix and payload format.
func NewSink(pub Publisher, cfg *config.MQTTConfig) *Sink {
	return &Sink{
		pub:    pub,
		prefix: cfg.TopicPrefix,
		binary: cfg.Format == config.FormatBinary,
	}
}

// Name identifies the sink in logs and metrics
func (s *Sink) Name() string {
	return "mqtt"
}

// Deliver publishes one envelope
func (s *Sink) Deliver(ctx context.Context, env message.Envelope) error {
	payload := env.JSON()
	if s.binary {
		payload = env.Binary()
	}
	return s.pub.Publish(ctx, Topic(s.prefix, env.Collection, env.Record.Type), payload)
}

// Close closes the underlying publisher
func (s *Sink) Close() error {
	return s.pub.Close()
}

// Topic joins the non-empty levels with '/'. Wildcards and separators
// inside collection and type are replaced so each stays a single level.
func Topic(prefix, collection, recordType string) string {
	levels := make([]string, 0, 3)
	if prefix != "" {
		levels = append(levels, prefix)
	}
	levels = append(levels, topicLevel(collection), topicLevel(recordType))
	return strings.Join(levels, "/")
}

var levelReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", "\x00", "")

func topicLevel(s string) string {
	if s == "" {
		return "_"
	}
	return levelReplacer.Replace(s)
}
