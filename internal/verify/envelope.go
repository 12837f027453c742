package verify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoEvent    = errors.New("verify: envelope has no event")
	ErrNoSession  = errors.New("verify: envelope has no session")
	ErrNoItem     = errors.New("verify: no matching item")
	ErrMismatch   = errors.New("verify: value mismatch")
	ErrNoMinidump = errors.New("verify: no minidump")
)

func mismatch(check string, actual, expected map[string]any) error {
	diffs := mismatches(check, actual, expected)
	if len(diffs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(diffs)+1)
	errs = append(errs, ErrMismatch)
	for _, d := range diffs {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}

// Session checks the last session item against expected.
func Session(env *envelope.Envelope, expected map[string]any) error {
	session, ok := env.Session()
	if !ok {
		return ErrNoSession
	}
	return mismatch("session", session, expected)
}

// Event checks the envelope event against expected.
func Event(env *envelope.Envelope, expected map[string]any) error {
	event, ok := env.Event()
	if !ok {
		return ErrNoEvent
	}
	log.Debug().Str("event_id", env.EventID()).Int("keys", len(expected)).Msg("verify event")
	return mismatch("event", event, expected)
}

// Breadcrumb checks that some event breadcrumb matches expected. Both the
// list form and the {"values": [...]} form are accepted.
func Breadcrumb(env *envelope.Envelope, expected map[string]any) error {
	event, ok := env.Event()
	if !ok {
		return ErrNoEvent
	}
	for _, b := range eventBreadcrumbs(event) {
		if Matches(b, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNoItem, CheckError{Check: "breadcrumb", Reason: fmt.Sprintf("none matches %v", expected)})
}

// DebugBreadcrumb is Breadcrumb with the example program's fixed crumb.
func DebugBreadcrumb(env *envelope.Envelope) error {
	return Breadcrumb(env, breadcrumbs.DebugCrumb())
}

func eventBreadcrumbs(event map[string]any) []map[string]any {
	raw := event["breadcrumbs"]
	if m, ok := raw.(map[string]any); ok {
		raw = m["values"]
	}
	list, _ := raw.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Attachment checks for an attachment item with the given filename.
func Attachment(env *envelope.Envelope, filename string) error {
	expected := map[string]any{"type": protocol.ItemAttachment, "filename": filename}
	for _, it := range env.Items {
		if Matches(it.Header.Map(), expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNoItem, CheckError{Check: "attachment", Path: filename, Reason: "not found"})
}

// Minidump checks for a minidump item longer than its magic that starts
// with MDMP.
func Minidump(env *envelope.Envelope) error {
	item, ok := env.Minidump()
	if !ok {
		return ErrNoMinidump
	}
	if item.Header.Length <= len(protocol.MinidumpMagic) {
		return CheckError{Check: "minidump", Path: "length", Reason: fmt.Sprintf("%d bytes", item.Header.Length)}
	}
	b, _ := item.Payload.Bytes()
	return protocol.ValidateMinidump(b)
}

// Stacktrace checks the first thread (or exception) stacktrace. With
// checkSize, frames must be present, carry 0x-prefixed instruction
// addresses, and at least one frame must name a function and package.
func Stacktrace(env *envelope.Envelope, insideException, checkSize bool) error {
	event, ok := env.Event()
	if !ok {
		return ErrNoEvent
	}
	parentKey := "threads"
	if insideException {
		parentKey = "exception"
	}
	frames, err := firstFrames(event, parentKey)
	if err != nil {
		return CheckError{Check: "stacktrace", Path: parentKey, Reason: err.Error()}
	}
	if !checkSize {
		return nil
	}
	if len(frames) == 0 {
		return CheckError{Check: "stacktrace", Path: parentKey, Reason: "no frames"}
	}
	var errs []error
	symbolized := false
	for i, f := range frames {
		frame, _ := f.(map[string]any)
		addr, _ := frame["instruction_addr"].(string)
		if !strings.HasPrefix(addr, "0x") {
			errs = append(errs, CheckError{Check: "stacktrace", Path: fmt.Sprintf("frames[%d].instruction_addr", i), Reason: fmt.Sprintf("%q", addr)})
		}
		if frame["function"] != nil && frame["package"] != nil {
			symbolized = true
		}
	}
	if !symbolized {
		errs = append(errs, CheckError{Check: "stacktrace", Path: parentKey, Reason: "no frame has function and package"})
	}
	return errors.Join(errs...)
}

func firstFrames(event map[string]any, parentKey string) ([]any, error) {
	parent, ok := event[parentKey].(map[string]any)
	if !ok {
		return nil, errors.New("missing")
	}
	values, _ := parent["values"].([]any)
	if len(values) == 0 {
		return nil, errors.New("no values")
	}
	first, _ := values[0].(map[string]any)
	st, ok := first["stacktrace"].(map[string]any)
	if !ok {
		return nil, errors.New("no stacktrace")
	}
	frames, ok := st["frames"].([]any)
	if !ok {
		return nil, errors.New("frames is not a list")
	}
	return frames, nil
}

// Timestamp checks that ts falls on the same UTC date as now, comparing
// the "YYYY-MM-DDT" prefix.
func Timestamp(ts any, now time.Time) error {
	s, ok := ts.(string)
	want := now.UTC().Format("2006-01-02T")
	if !ok || len(s) < len(want) || s[:len(want)] != want {
		return CheckError{Check: "timestamp", Reason: fmt.Sprintf("got %v want prefix %s", ts, want)}
	}
	return nil
}

// GzipFileHeader checks for the gzip magic bytes.
func GzipFileHeader(body []byte) error {
	if !bytes.HasPrefix(body, []byte{0x1f, 0x8b}) {
		return CheckError{Check: "gzip", Reason: "missing file header"}
	}
	return nil
}
