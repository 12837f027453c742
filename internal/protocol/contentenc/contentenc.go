// Package contentenc inflates and deflates HTTP bodies by Content-Encoding.
package contentenc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const (
	Identity = "identity"
	Gzip     = "gzip"
	Deflate  = "deflate"
	Zstd     = "zstd"
)

var (
	ErrCompression = errors.New("contentenc: inflate failed")
	ErrUnsupported = fmt.Errorf("%w: unsupported content encoding", ErrCompression)
	ErrTooLarge    = fmt.Errorf("%w: inflated body too large", ErrCompression)
)

var gzipMagic = []byte{0x1f, 0x8b}

// Normalize maps a Content-Encoding header value onto a known coding.
func Normalize(encoding string) string {
	e := strings.ToLower(strings.TrimSpace(encoding))
	switch e {
	case "", Identity:
		return Identity
	case Gzip, "x-gzip":
		return Gzip
	default:
		return e
	}
}

// IsGzip reports whether b starts with the gzip file header.
func IsGzip(b []byte) bool {
	return bytes.HasPrefix(b, gzipMagic)
}

// Decode inflates body. Identity bodies are copied.
func Decode(body []byte, encoding string) ([]byte, error) {
	return DecodeLimit(body, encoding, 0)
}

// DecodeLimit inflates body, failing once the output exceeds max bytes.
// A max of 0 disables the limit.
func DecodeLimit(body []byte, encoding string, max int64) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch Normalize(encoding) {
	case Identity:
		r = bytes.NewReader(body)
	case Gzip:
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(bytes.NewReader(body)); err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCompression, err)
		}
		defer zr.Close()
		r = zr
	case Deflate:
		var zr io.ReadCloser
		if zr, err = zlib.NewReader(bytes.NewReader(body)); err != nil {
			return nil, fmt.Errorf("%w: deflate: %v", ErrCompression, err)
		}
		defer zr.Close()
		r = zr
	case Zstd:
		var zr *zstd.Decoder
		if zr, err = zstd.NewReader(bytes.NewReader(body)); err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCompression, err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, encoding)
	}

	if max > 0 {
		r = io.LimitReader(r, max+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompression, Normalize(encoding), err)
	}
	if max > 0 && int64(len(out)) > max {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, max)
	}
	return out, nil
}

// Encode compresses body with the given coding.
func Encode(body []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	switch Normalize(encoding) {
	case Identity:
		return append([]byte(nil), body...), nil
	case Gzip:
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case Deflate:
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case Zstd:
		zw, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer zw.Close()
		return zw.EncodeAll(body, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, encoding)
	}
	return buf.Bytes(), nil
}
