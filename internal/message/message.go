// Package message provides the envelope that carries a record from a subscription to the sinks.
package message

import (
	"time"

	"github.com/ibs-source/sonar-consumer/pkg/jsonfast"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
)

// Payload is the canonical alias for an encoded message body
type Payload = []byte

// Envelope is one record as received by this consumer
type Envelope struct {
	Delivery     string // Unique per delivery attempt
	Collection   string
	Subscription string // Empty for query results
	Cursor       uint64 // Cursor of the batch the record came in
	ReceivedAt   time.Time
	Record       schema.Record
}

// JSON renders the envelope with the record nested verbatim:
// {"delivery":"…","collection":"…","subscription":"…","cursor":N,"received_at":"…","record":{…}}
func (e *Envelope) JSON() Payload {
	rec, _ := e.Record.MarshalJSON()

	b := jsonfast.New(len(rec) + len(e.Delivery) + len(e.Collection) + len(e.Subscription) + 128)
	b.BeginObject()
	b.AddStringField("delivery", e.Delivery)
	b.AddStringField("collection", e.Collection)
	b.AddStringField("subscription", e.Subscription)
	b.AddUintField("cursor", e.Cursor)
	b.AddTimeRFC3339Field("received_at", e.ReceivedAt)
	b.AddRawJSONField("record", rec)
	b.EndObject()
	return b.Bytes()
}

// Binary renders the record alone in its protobuf wire form
func (e *Envelope) Binary() Payload {
	return e.Record.AppendBinary(nil)
}
