package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary envelope.
const (
	recordID        protowire.Number = 1
	recordType      protowire.Number = 2
	recordKey       protowire.Number = 3
	recordTimestamp protowire.Number = 4
	recordLseq      protowire.Number = 5
	recordValue     protowire.Number = 6

	jsonRaw protowire.Number = 1

	linkKey protowire.Number = 1
	linkSeq protowire.Number = 2

	pullCursor   protowire.Number = 1
	pullMessages protowire.Number = 2
	pullFinished protowire.Number = 3
)

// AppendBinary appends the Json message: a single bytes field holding the
// raw text, omitted when empty.
func (j Json) AppendBinary(b []byte) []byte {
	if len(j.raw) == 0 {
		return b
	}
	b = protowire.AppendTag(b, jsonRaw, protowire.BytesType)
	return protowire.AppendBytes(b, j.raw)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (j Json) MarshalBinary() ([]byte, error) {
	return j.AppendBinary(nil), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Unknown fields
// are skipped. A payload that is not valid JSON fails with ErrInvalidJson.
func (j *Json) UnmarshalBinary(data []byte) error {
	var out Json
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == jsonRaw && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.raw = bytes.Clone(v)
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return fmt.Errorf("decode json message: %w", err)
	}
	if len(out.raw) > 0 && !json.Valid(out.raw) {
		return fmt.Errorf("decode json message: %w", ErrInvalidJson)
	}
	*j = out
	return nil
}

// AppendBinary appends the Link message.
func (l Link) AppendBinary(b []byte) []byte {
	if len(l.Key) > 0 {
		b = protowire.AppendTag(b, linkKey, protowire.BytesType)
		b = protowire.AppendBytes(b, l.Key)
	}
	if l.Seq != 0 {
		b = protowire.AppendTag(b, linkSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, l.Seq)
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (l Link) MarshalBinary() ([]byte, error) {
	return l.AppendBinary(nil), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (l *Link) UnmarshalBinary(data []byte) error {
	var out Link
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == linkKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Key = bytes.Clone(v)
			return n, nil
		case num == linkSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Seq = v
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return fmt.Errorf("decode link message: %w", err)
	}
	*l = out
	return nil
}

// AppendBinary appends the Record message. Optional fields are written
// whenever present, including present zero values.
func (r Record) AppendBinary(b []byte) []byte {
	if r.ID != "" {
		b = protowire.AppendTag(b, recordID, protowire.BytesType)
		b = protowire.AppendString(b, r.ID)
	}
	if r.Type != "" {
		b = protowire.AppendTag(b, recordType, protowire.BytesType)
		b = protowire.AppendString(b, r.Type)
	}
	if r.Key != nil {
		b = protowire.AppendTag(b, recordKey, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Key)
	}
	if r.Timestamp != nil {
		b = protowire.AppendTag(b, recordTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.Timestamp))
	}
	if r.Lseq != nil {
		b = protowire.AppendTag(b, recordLseq, protowire.VarintType)
		b = protowire.AppendVarint(b, *r.Lseq)
	}
	if r.Value != nil {
		b = protowire.AppendTag(b, recordValue, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Value.AppendBinary(nil))
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(nil), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. A timestamp
// wider than 32 bits is truncated, as protobuf does for uint32 fields.
func (r *Record) UnmarshalBinary(data []byte) error {
	var out Record
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == recordID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.ID = v
			return n, nil
		case num == recordType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Type = v
			return n, nil
		case num == recordKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Key = append([]byte{}, v...)
			return n, nil
		case num == recordTimestamp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Timestamp = Uint32(uint32(v)) // #nosec G115 - uint32 wire semantics
			return n, nil
		case num == recordLseq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Lseq = Uint64(v)
			return n, nil
		case num == recordValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			var value Json
			if err := value.UnmarshalBinary(v); err != nil {
				return 0, err
			}
			out.Value = &value
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return fmt.Errorf("decode record message: %w", err)
	}
	*r = out
	return nil
}

// AppendBinary appends the PullResponse message.
func (p PullResponse) AppendBinary(b []byte) []byte {
	if p.Cursor != 0 {
		b = protowire.AppendTag(b, pullCursor, protowire.VarintType)
		b = protowire.AppendVarint(b, p.Cursor)
	}
	for i := range p.Messages {
		b = protowire.AppendTag(b, pullMessages, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Messages[i].AppendBinary(nil))
	}
	if p.Finished {
		b = protowire.AppendTag(b, pullFinished, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p PullResponse) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(nil), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *PullResponse) UnmarshalBinary(data []byte) error {
	var out PullResponse
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == pullCursor && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Cursor = v
			return n, nil
		case num == pullMessages && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			var rec Record
			if err := rec.UnmarshalBinary(v); err != nil {
				return 0, err
			}
			out.Messages = append(out.Messages, rec)
			return n, nil
		case num == pullFinished && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			out.Finished = protowire.DecodeBool(v)
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return fmt.Errorf("decode pull response: %w", err)
	}
	*p = out
	return nil
}

// walkFields consumes every tag in data and hands the remaining bytes to
// fn, which must return how many value bytes it consumed.
func walkFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
