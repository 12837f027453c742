package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
)

// PayloadKind tags which branch of a Payload is populated.
type PayloadKind uint8

const (
	PayloadBytes PayloadKind = iota
	PayloadJSON
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadJSON:
		return "json"
	default:
		return "bytes"
	}
}

// Payload is either a decoded JSON value or opaque bytes. The JSON branch
// also keeps the exact wire bytes it came from so re-encoding is byte-exact.
type Payload struct {
	kind  PayloadKind
	value any
	raw   []byte
}

// BytesPayload wraps a copy of b as an opaque payload.
func BytesPayload(b []byte) Payload {
	return Payload{kind: PayloadBytes, raw: cloneBytes(b)}
}

// JSONPayload marshals v and stores it in its decoded form.
func JSONPayload(v any) (Payload, error) {
	raw, err := marshalCompact(v)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	return decodeJSONPayload(raw)
}

func decodeJSONPayload(raw []byte) (Payload, error) {
	v, err := unmarshalJSON(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	return Payload{kind: PayloadJSON, value: v, raw: cloneBytes(raw)}, nil
}

// unmarshalJSON decodes a single JSON value. Numbers stay json.Number so
// integers past 2^53 keep every digit.
func unmarshalJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func (p Payload) Kind() PayloadKind {
	return p.kind
}

// JSON returns the decoded value; ok is false on the bytes branch.
func (p Payload) JSON() (any, bool) {
	if p.kind != PayloadJSON {
		return nil, false
	}
	return p.value, true
}

// Bytes returns the opaque payload; ok is false on the JSON branch.
func (p Payload) Bytes() ([]byte, bool) {
	if p.kind != PayloadBytes {
		return nil, false
	}
	return p.raw, true
}

// Raw returns the wire bytes for either branch.
func (p Payload) Raw() []byte {
	return p.raw
}

func (p Payload) Len() int {
	return len(p.raw)
}

// Equal compares payloads per branch: decoded values for JSON, bytes otherwise.
func (p Payload) Equal(o Payload) bool {
	if p.kind != o.kind {
		return false
	}
	if p.kind == PayloadJSON {
		return reflect.DeepEqual(p.value, o.value)
	}
	return bytes.Equal(p.raw, o.raw)
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// jsonEqual compares two values after normalizing them through JSON, so
// an int and the json.Number it decodes to compare equal.
func jsonEqual(a, b any) bool {
	na, errA := normalizeJSON(a)
	nb, errB := normalizeJSON(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalizeJSON(v any) (any, error) {
	raw, err := marshalCompact(v)
	if err != nil {
		return nil, err
	}
	return unmarshalJSON(raw)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
