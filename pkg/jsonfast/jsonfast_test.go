package jsonfast

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("with positive capacity", func(t *testing.T) {
		b := New(512)
		require.NotNil(t, b)
		assert.GreaterOrEqual(t, cap(b.buf), 512)
	})

	t.Run("with zero capacity", func(t *testing.T) {
		b := New(0)
		require.NotNil(t, b)
		assert.GreaterOrEqual(t, cap(b.buf), 256)
	})

	t.Run("with negative capacity", func(t *testing.T) {
		b := New(-10)
		require.NotNil(t, b)
		assert.GreaterOrEqual(t, cap(b.buf), 256)
	})
}

func TestReset(t *testing.T) {
	b := New(256)
	b.BeginObject()
	b.AddStringField("test", "value")
	b.EndObject()
	require.NotEmpty(t, b.Bytes())

	b.Reset()

	assert.Empty(t, b.Bytes())
	assert.False(t, b.opened)
	assert.True(t, b.first)
}

func TestCopySurvivesReset(t *testing.T) {
	b := New(64)
	b.AddStringField("a", "b")
	b.EndObject()
	out := b.Copy()
	b.Reset()
	b.AddStringField("c", "d")

	assert.Equal(t, `{"a":"b"}`, string(out))
}

func TestAddStringField(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{name: "simple string", key: "message", value: "hello world", expected: `{"message":"hello world"}`},
		{name: "empty string", key: "empty", value: "", expected: `{"empty":""}`},
		{name: "string with quotes", key: "quoted", value: `she said "hello"`, expected: `{"quoted":"she said \"hello\""}`},
		{name: "string with backslash", key: "path", value: `C:\Users\Test`, expected: `{"path":"C:\\Users\\Test"}`},
		{name: "string with newline", key: "multiline", value: "line1\nline2", expected: `{"multiline":"line1\nline2"}`},
		{name: "control character", key: "ctl", value: "a\x01b", expected: `{"ctl":"a\u0001b"}`},
		{name: "escaped key", key: `we"ird`, value: "v", expected: `{"we\"ird":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(256)
			b.BeginObject()
			b.AddStringField(tt.key, tt.value)
			b.EndObject()

			assert.Equal(t, tt.expected, string(b.Bytes()))
			assert.True(t, json.Valid(b.Bytes()))
		})
	}
}

func TestAddRawJSONFieldKeepsBytes(t *testing.T) {
	raw := []byte(`{ "b" : 1.50, "a":[1, 2] }`)

	b := New(64)
	b.BeginObject()
	b.AddRawJSONField("value", raw)
	b.EndObject()

	assert.Equal(t, `{"value":{ "b" : 1.50, "a":[1, 2] }}`, string(b.Bytes()))
}

func TestScalarFields(t *testing.T) {
	b := New(128)
	b.BeginObject()
	b.AddIntField("neg", -123)
	b.AddUintField("max", math.MaxUint64)
	b.AddBoolField("ok", true)
	b.AddNullField("none")
	b.AddHexField("key", []byte{0x00, 0xab, 0xff})
	b.EndObject()

	expected := `{"neg":-123,"max":18446744073709551615,"ok":true,"none":null,"key":"00abff"}`
	assert.Equal(t, expected, string(b.Bytes()))
	assert.True(t, json.Valid(b.Bytes()))
}

func TestImplicitObject(t *testing.T) {
	b := New(64)
	b.AddStringField("a", "1")
	b.AddStringField("b", "2")
	b.EndObject()

	assert.Equal(t, `{"a":"1","b":"2"}`, string(b.Bytes()))
}

func TestArrayOfRawElements(t *testing.T) {
	b := New(64)
	b.BeginArray()
	b.AddRawElement([]byte(`{"x":1}`))
	b.AddRawElement([]byte(`null`))
	b.EndArray()

	assert.Equal(t, `[{"x":1},null]`, string(b.Bytes()))

	b.Reset()
	b.BeginArray()
	b.EndArray()
	assert.Equal(t, `[]`, string(b.Bytes()))
}

func TestAddTimeRFC3339Field(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	testTime := time.Date(2025, 11, 8, 11, 30, 45, 0, loc)

	b := New(256)
	b.BeginObject()
	b.AddTimeRFC3339Field("received_at", testTime)
	b.EndObject()

	assert.Equal(t, `{"received_at":"2025-11-08T10:30:45Z"}`, string(b.Bytes()))
}
