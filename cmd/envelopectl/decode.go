package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/envelopectl/internal/observability"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
	"github.com/danmuck/envelopectl/internal/protocol/crashupload"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/danmuck/envelopectl/internal/report"
	"github.com/rs/zerolog/log"
)

const encodingAuto = "auto"

// resolveEncoding picks gzip for gzip-looking bodies when asked to sniff.
func resolveEncoding(body []byte, encoding string) string {
	if encoding == encodingAuto {
		if contentenc.IsGzip(body) {
			return contentenc.Gzip
		}
		return contentenc.Identity
	}
	return encoding
}

func decodeEnvelope(body []byte, encoding string, limits envelope.Limits) (env *envelope.Envelope, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDecode(observability.FormatEnvelope, time.Since(start), err)
	}()
	data, err := contentenc.Decode(body, resolveEncoding(body, encoding))
	if err != nil {
		return nil, err
	}
	return envelope.Decode(bytes.NewReader(data), limits)
}

func decodeCrash(body []byte, contentType, encoding string) (*crashupload.Bundle, error) {
	start := time.Now()
	bundle, err := crashupload.DecodeRequest(contentType, resolveEncoding(body, encoding), body)
	observability.RecordDecode(observability.FormatCrashUpload, time.Since(start), err)
	return bundle, err
}

func runEnvelope(e runEnv, args []string) error {
	fs := newFlagSet(e, "envelope")
	format := fs.StringP("output", "o", formatJSON, "output format: json|yaml")
	encoding := fs.String("encoding", encodingAuto, "content encoding of the input: auto|identity|gzip|deflate|zstd")
	payloads := fs.Bool("payloads", false, "include decoded JSON payloads")
	roundTrip := fs.Bool("round-trip", false, "fail unless re-serializing reproduces the input bytes")
	maxItem := fs.Int("max-item-bytes", envelope.DefaultLimits().MaxItemBytes, "largest accepted item payload")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	path, err := singleInput(rest)
	if err != nil {
		return err
	}
	body, err := readInput(e, path)
	if err != nil {
		return err
	}

	limits := envelope.DefaultLimits()
	limits.MaxItemBytes = *maxItem
	env, err := decodeEnvelope(body, *encoding, limits)
	if err != nil {
		return err
	}
	if *roundTrip {
		if err := checkRoundTrip(body, *encoding, env); err != nil {
			return err
		}
	}
	return writeOutput(e.stdout, *format, report.FromEnvelope(env, *payloads))
}

func checkRoundTrip(body []byte, encoding string, env *envelope.Envelope) error {
	raw, err := contentenc.Decode(body, resolveEncoding(body, encoding))
	if err != nil {
		return err
	}
	out, err := envelope.Serialize(env)
	if err != nil {
		return err
	}
	if !bytes.Equal(out, raw) {
		return checkError{fmt.Errorf("re-serialized envelope differs from input (%d vs %d bytes)", len(out), len(raw))}
	}
	return nil
}

func runCrash(e runEnv, args []string) error {
	fs := newFlagSet(e, "crash")
	format := fs.StringP("output", "o", formatJSON, "output format: json|yaml")
	encoding := fs.String("encoding", encodingAuto, "content encoding of the input: auto|identity|gzip|deflate|zstd")
	contentType := fs.String("content-type", "", "request Content-Type; the boundary is sniffed when empty")
	extract := fs.String("extract", "", "directory to write attachments and the minidump into")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	path, err := singleInput(rest)
	if err != nil {
		return err
	}
	body, err := readInput(e, path)
	if err != nil {
		return err
	}

	bundle, err := decodeCrash(body, *contentType, *encoding)
	if err != nil {
		return err
	}
	if *extract != "" {
		if err := extractBundle(*extract, bundle); err != nil {
			return err
		}
	}
	return writeOutput(e.stdout, *format, report.FromBundle(bundle, breadcrumbs.DefaultOptions()))
}

func extractBundle(dir string, b *crashupload.Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := make(map[string][]byte, len(b.Attachments)+1)
	for name, data := range b.Attachments {
		files[filepath.Base(name)] = data
	}
	if b.Minidump != nil {
		files["minidump.dmp"] = b.Minidump
	}
	for name, data := range files {
		if name == "." || name == string(filepath.Separator) {
			continue
		}
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		log.Info().Str("file", target).Int("bytes", len(data)).Msg("extracted")
	}
	return nil
}
