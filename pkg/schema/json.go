package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotAnObject is returned by Json.Object when the payload is valid JSON
// but not a JSON object.
var ErrNotAnObject = errors.New("json value is not an object")

// ErrInvalidJson is wrapped when an embedded payload is not a single valid
// JSON value.
var ErrInvalidJson = errors.New("invalid embedded json")

var jsonNull = []byte("null")

// Json is an embedded JSON document carried through untouched.
//
// The raw text is kept exactly as received: re-encoding emits the same
// bytes, so field order, number formatting and whitespace survive a round
// trip. Equality is byte equality. The zero value holds no payload and
// reads as null.
type Json struct {
	raw []byte
}

// NewJson copies raw after checking that it is a single valid JSON value.
func NewJson(raw []byte) (Json, error) {
	if !json.Valid(raw) {
		return Json{}, ErrInvalidJson
	}
	return Json{raw: bytes.Clone(raw)}, nil
}

// Get returns the raw JSON text, or "null" when no payload is present.
func (j Json) Get() string {
	if len(j.raw) == 0 {
		return string(jsonNull)
	}
	return string(j.raw)
}

// Bytes returns the underlying buffer. It is empty for the zero value.
// Callers must not modify it.
func (j Json) Bytes() []byte {
	return j.raw
}

// IsEmpty reports whether no payload bytes are held.
func (j Json) IsEmpty() bool {
	return len(j.raw) == 0
}

// Equal compares the underlying bytes. Semantically equal documents with
// different text are not equal.
func (j Json) Equal(other Json) bool {
	return bytes.Equal(j.raw, other.raw)
}

// MarshalJSON emits the retained text verbatim.
//
// Note that encoding/json compacts the output of Marshaler implementations,
// so byte-exact output requires calling this (or Record.MarshalJSON)
// directly rather than going through json.Marshal.
func (j Json) MarshalJSON() ([]byte, error) {
	if len(j.raw) == 0 {
		return jsonNull, nil
	}
	return j.raw, nil
}

// UnmarshalJSON retains a copy of the exact input span.
func (j *Json) UnmarshalJSON(data []byte) error {
	j.raw = bytes.Clone(data)
	return nil
}

// Decode parses the payload into v. This is the only place a tree is built.
func (j Json) Decode(v any) error {
	dec := json.NewDecoder(bytes.NewReader(j.rawOrNull()))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode embedded json: %w", err)
	}
	return nil
}

// Object decodes the payload as a JSON object. Numbers are kept as
// json.Number so large integers are not rounded.
func (j Json) Object() (map[string]any, error) {
	var v any
	if err := j.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return obj, nil
}

func (j Json) rawOrNull() []byte {
	if len(j.raw) == 0 {
		return jsonNull
	}
	return j.raw
}
