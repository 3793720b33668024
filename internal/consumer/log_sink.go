package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
)

// LogSink logs each record and one line per top-level field of its value
type LogSink struct {
	log *log.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{log: logger}
}

// Name identifies the sink in logs and metrics
func (s *LogSink) Name() string {
	return "log"
}

// Deliver logs env.Record. Values that are not JSON objects are rejected with
// schema.ErrNotAnObject.
func (s *LogSink) Deliver(_ context.Context, env message.Envelope) error {
	rec := env.Record
	if rec.Value == nil {
		return fmt.Errorf("record %s: %w", rec.ID, schema.ErrNotAnObject)
	}
	obj, err := rec.Value.Object()
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.ID, err)
	}

	lseq := "-"
	if rec.Lseq != nil {
		lseq = strconv.FormatUint(*rec.Lseq, 10)
	}
	s.log.Info("lseq: %s id: %s type: %s", lseq, rec.ID, rec.Type)

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.log.Info("%s#%s: %s", rec.Type, name, renderValue(obj[name]))
	}
	return nil
}

// Close is a no-op
func (s *LogSink) Close() error {
	return nil
}

func renderValue(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}
