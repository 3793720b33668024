// Package schema defines the records exchanged with a sonar collection and
// their two encodings: the structured JSON form used over HTTP and the
// protobuf wire form used for binary envelopes.
package schema

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ibs-source/sonar-consumer/pkg/jsonfast"
)

// Record is one event of a collection.
//
// Optional fields distinguish absence from zero: a nil Key, Timestamp,
// Lseq or Value means the field was absent. A present empty key is a
// non-nil empty slice.
type Record struct {
	ID        string
	Type      string
	Key       []byte
	Timestamp *uint32
	Lseq      *uint64
	Value     *Json
}

// PullResponse is one batch returned by a subscription pull.
type PullResponse struct {
	Cursor   uint64   `json:"cursor"`
	Messages []Record `json:"messages"`
	Finished bool     `json:"finished"`
}

// EncodeKey renders a key as a JSON lowercase hex string, or null when absent.
func EncodeKey(key []byte) []byte {
	if key == nil {
		return []byte("null")
	}
	out := make([]byte, 0, len(key)*2+2)
	out = append(out, '"')
	out = hex.AppendEncode(out, key)
	return append(out, '"')
}

// DecodeKey parses a JSON key value. Missing input and null yield nil.
func DecodeKey(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	key, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("key: %s", err.Error())
	}
	if key == nil {
		key = []byte{}
	}
	return key, nil
}

// DecodeTimestamp parses a JSON timestamp. Any numeric literal is accepted;
// values that are negative, fractional or do not fit 32 bits decode as
// absent instead of failing. Missing input and null are absent as well.
func DecodeTimestamp(raw []byte) (*uint32, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, fmt.Errorf("timestamp: expected a number, got %s", raw)
	}
	ts, err := strconv.ParseUint(n.String(), 10, 32)
	if err != nil {
		return nil, nil
	}
	out := uint32(ts)
	return &out, nil
}

type recordJSON struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       json.RawMessage `json:"key"`
	Timestamp json.RawMessage `json:"timestamp"`
	Lseq      *uint64         `json:"lseq"`
	Value     *Json           `json:"value"`
}

// UnmarshalJSON decodes the structured form. Missing fields take their
// absent state.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	key, err := DecodeKey(in.Key)
	if err != nil {
		return err
	}
	ts, err := DecodeTimestamp(in.Timestamp)
	if err != nil {
		return err
	}
	*r = Record{
		ID:        in.ID,
		Type:      in.Type,
		Key:       key,
		Timestamp: ts,
		Lseq:      in.Lseq,
		Value:     in.Value,
	}
	return nil
}

// MarshalJSON renders the structured form with the value embedded
// byte-for-byte.
func (r Record) MarshalJSON() ([]byte, error) {
	size := 96 + len(r.ID) + len(r.Type) + len(r.Key)*2
	if r.Value != nil {
		size += len(r.Value.raw)
	}
	b := jsonfast.New(size)
	r.AppendJSON(b)
	return b.Bytes(), nil
}

// AppendJSON writes the structured form as a complete object into b.
func (r Record) AppendJSON(b *jsonfast.Builder) {
	b.BeginObject()
	b.AddStringField("id", r.ID)
	b.AddStringField("type", r.Type)
	if r.Key != nil {
		b.AddHexField("key", r.Key)
	} else {
		b.AddNullField("key")
	}
	if r.Timestamp != nil {
		b.AddUintField("timestamp", uint64(*r.Timestamp))
	} else {
		b.AddNullField("timestamp")
	}
	if r.Lseq != nil {
		b.AddUintField("lseq", *r.Lseq)
	} else {
		b.AddNullField("lseq")
	}
	if r.Value != nil {
		b.AddRawJSONField("value", r.Value.rawOrNull())
	} else {
		b.AddNullField("value")
	}
	b.EndObject()
}

// MarshalJSON renders the batch keeping every record value byte-exact.
func (p PullResponse) MarshalJSON() ([]byte, error) {
	messages := jsonfast.New(256 * (len(p.Messages) + 1))
	messages.BeginArray()
	for i := range p.Messages {
		rec, _ := p.Messages[i].MarshalJSON()
		messages.AddRawElement(rec)
	}
	messages.EndArray()

	b := jsonfast.New(len(messages.Bytes()) + 64)
	b.BeginObject()
	b.AddUintField("cursor", p.Cursor)
	b.AddRawJSONField("messages", messages.Bytes())
	b.AddBoolField("finished", p.Finished)
	b.EndObject()
	return b.Bytes(), nil
}

// Uint32 returns a pointer to v, for building records with a timestamp.
func Uint32(v uint32) *uint32 { return &v }

// Uint64 returns a pointer to v, for building records with an lseq.
func Uint64(v uint64) *uint64 { return &v }
