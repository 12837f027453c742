package envelope

import (
	"bytes"
	"fmt"
	"io"
)

// Serialize encodes e into a new buffer.
func Serialize(e *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes e to w. Every item header must already carry the length
// of its payload.
func Encode(w io.Writer, e *Envelope) error {
	if e == nil {
		return fmt.Errorf("%w: nil envelope", ErrFormat)
	}
	headers := e.Headers
	if headers == nil {
		headers = map[string]any{}
	}
	head, err := marshalCompact(headers)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := writeLine(w, head); err != nil {
		return err
	}

	for i, item := range e.Items {
		if err := writeItem(w, item); err != nil {
			return &ItemError{Index: i, Err: err}
		}
	}
	return nil
}

func writeItem(w io.Writer, item Item) error {
	raw := item.Payload.Raw()
	if item.Header.Length != len(raw) {
		return fmt.Errorf("%w: header=%d payload=%d", ErrLengthMismatch, item.Header.Length, len(raw))
	}
	head, err := item.Header.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := writeLine(w, head); err != nil {
		return err
	}
	return writeLine(w, raw)
}

func writeLine(w io.Writer, b []byte) error {
	if len(b) > 0 {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{'\n'})
	return err
}
