package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidLink is wrapped by every link decode failure.
var ErrInvalidLink = errors.New("invalid link")

// Link references a record by key and sequence. Its text form is
// "<hex(key)>@<seq>".
type Link struct {
	Key []byte
	Seq uint64
}

// String renders the link text form.
func (l Link) String() string {
	var sb strings.Builder
	sb.Grow(len(l.Key)*2 + 21)
	sb.WriteString(hex.EncodeToString(l.Key))
	sb.WriteByte('@')
	sb.WriteString(strconv.FormatUint(l.Seq, 10))
	return sb.String()
}

// ParseLink decodes the "<hex>@<seq>" text form. The hex part must be
// lowercase and of even length, and there must be exactly one '@'.
func ParseLink(s string) (Link, error) {
	if n := strings.Count(s, "@"); n != 1 {
		return Link{}, fmt.Errorf("%w %q: expected one '@', found %d", ErrInvalidLink, s, n)
	}
	keyText, seqText, _ := strings.Cut(s, "@")

	for i := 0; i < len(keyText); i++ {
		if c := keyText[i]; c >= 'A' && c <= 'F' {
			return Link{}, fmt.Errorf("%w %q: key must be lowercase hex", ErrInvalidLink, s)
		}
	}
	key, err := hex.DecodeString(keyText)
	if err != nil {
		return Link{}, fmt.Errorf("%w %q: key: %s", ErrInvalidLink, s, err.Error())
	}

	seq, err := strconv.ParseUint(seqText, 10, 64)
	if err != nil {
		return Link{}, fmt.Errorf("%w %q: seq: %s", ErrInvalidLink, s, err.Error())
	}

	return Link{Key: key, Seq: seq}, nil
}

// MarshalText implements encoding.TextMarshaler, so links encode as JSON
// strings.
func (l Link) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Link) UnmarshalText(text []byte) error {
	parsed, err := ParseLink(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
