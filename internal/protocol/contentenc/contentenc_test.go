package contentenc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	body := bytes.Repeat([]byte("{\"type\":\"event\"}\n"), 64)
	for _, enc := range []string{"", "identity", "gzip", "x-gzip", "GZIP", "deflate", "zstd"} {
		packed, err := Encode(body, enc)
		if err != nil {
			t.Fatalf("%s: encode: %v", enc, err)
		}
		out, err := Decode(packed, enc)
		if err != nil {
			t.Fatalf("%s: decode: %v", enc, err)
		}
		if !bytes.Equal(out, body) {
			t.Fatalf("%s: round-trip mismatch", enc)
		}
	}
}

func TestDecodeCorruptGzip(t *testing.T) {
	testlog.Start(t)
	_, err := Decode([]byte("definitely not gzip"), "gzip")
	if !errors.Is(err, ErrCompression) {
		t.Fatalf("expected ErrCompression, got %v", err)
	}

	packed, err := Encode([]byte("payload that will be cut short"), "gzip")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(packed[:len(packed)-6], "gzip")
	if !errors.Is(err, ErrCompression) {
		t.Fatalf("expected ErrCompression for truncated stream, got %v", err)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	testlog.Start(t)
	_, err := Decode([]byte("x"), "br")
	if !errors.Is(err, ErrUnsupported) || !errors.Is(err, ErrCompression) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDecodeLimit(t *testing.T) {
	testlog.Start(t)
	packed, err := Encode(bytes.Repeat([]byte("a"), 4096), "gzip")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeLimit(packed, "gzip", 1024); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := DecodeLimit(packed, "gzip", 4096); err != nil {
		t.Fatalf("limit equal to size should pass: %v", err)
	}
}

func TestIsGzip(t *testing.T) {
	testlog.Start(t)
	packed, _ := Encode([]byte("x"), "gzip")
	if !IsGzip(packed) {
		t.Fatalf("expected gzip header")
	}
	if IsGzip([]byte("{}")) {
		t.Fatalf("json must not look like gzip")
	}
}
