package envelope

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/envelopectl/internal/protocol"
)

// Limits constrains decode memory use.
type Limits struct {
	MaxHeaderBytes int
	MaxItemBytes   int
}

func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes: 64 * 1024,
		MaxItemBytes:   64 * 1024 * 1024,
	}
}

// Deserialize decodes one envelope from b using DefaultLimits.
func Deserialize(b []byte) (*Envelope, error) {
	return Decode(bytes.NewReader(b), DefaultLimits())
}

// Decode reads one envelope from r. Items end at end of stream or at a
// blank header line.
func Decode(r io.Reader, limits Limits) (*Envelope, error) {
	br := bufio.NewReader(r)

	line, err := readLine(br, limits.MaxHeaderBytes)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty envelope", ErrFormat)
	}
	if err != nil {
		return nil, err
	}
	headers, err := parseEnvelopeHeader(line)
	if err != nil {
		return nil, err
	}

	env := &Envelope{Headers: headers}
	for index := 0; ; index++ {
		item, err := readItem(br, limits)
		if errors.Is(err, io.EOF) {
			return env, nil
		}
		if err != nil {
			return nil, &ItemError{Index: index, Err: err}
		}
		env.Items = append(env.Items, item)
	}
}

func parseEnvelopeHeader(line []byte) (map[string]any, error) {
	var headers map[string]any
	if err := json.Unmarshal(trimLine(line), &headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if headers == nil {
		return nil, fmt.Errorf("%w: envelope header is not an object", ErrFormat)
	}
	return headers, nil
}

// readItem returns io.EOF when no further item header is present.
func readItem(br *bufio.Reader, limits Limits) (Item, error) {
	line, err := readLine(br, limits.MaxHeaderBytes)
	if err != nil {
		return Item{}, err
	}
	line = trimLine(line)
	if len(line) == 0 {
		return Item{}, io.EOF
	}

	header, err := parseItemHeader(line)
	if err != nil {
		return Item{}, err
	}
	if limits.MaxItemBytes > 0 && header.Length > limits.MaxItemBytes {
		return Item{}, fmt.Errorf("%w: %d bytes", ErrItemTooLarge, header.Length)
	}

	raw := make([]byte, header.Length)
	if n, err := io.ReadFull(br, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Item{}, fmt.Errorf("%w: want %d bytes, got %d", ErrTruncatedPayload, header.Length, n)
		}
		return Item{}, err
	}

	payload := Payload{kind: PayloadBytes, raw: raw}
	if protocol.IsJSONType(header.Type) {
		if payload, err = decodeJSONPayload(raw); err != nil {
			return Item{}, err
		}
	}

	if err := discardLine(br); err != nil {
		return Item{}, err
	}
	return Item{Header: header, Payload: payload}, nil
}

// readLine returns one line including its newline. The final line may lack
// one; io.EOF is returned only when nothing was read.
func readLine(br *bufio.Reader, max int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if max > 0 && len(line) > max {
			return nil, fmt.Errorf("%w: over %d bytes", ErrHeaderTooLarge, max)
		}
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return nil, io.EOF
			}
			return line, nil
		default:
			return nil, err
		}
	}
}

// discardLine consumes the payload terminator: everything up to and
// including the next newline, or nothing at end of stream.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

func trimLine(line []byte) []byte {
	return bytes.TrimRight(line, " \t\r\n\v\f")
}
