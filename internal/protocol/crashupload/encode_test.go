package crashupload

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

// ringUpload mimics a program that logged total numbered breadcrumbs into
// a two-buffer ring of the given capacity.
func ringUpload(total, capacity int) Upload {
	base := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	var seg1, seg2 []map[string]any
	for i := 0; i < breadcrumbs.ReservedPrefix; i++ {
		seg1 = append(seg1, map[string]any{
			"message":   "startup " + strconv.Itoa(i),
			"timestamp": base.Format(time.RFC3339Nano),
		})
	}
	for i := 0; i < total; i++ {
		c := map[string]any{
			"message":   strconv.Itoa(i),
			"timestamp": base.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano),
			"level":     "info",
		}
		if len(seg1) < capacity {
			seg1 = append(seg1, c)
		} else {
			seg2 = append(seg2, c)
		}
	}
	return Upload{
		Event: map[string]any{
			"level":   "fatal",
			"release": "demo@1.0.0",
			"tags":    map[string]any{"expected-tag": "some value"},
		},
		Breadcrumbs1:  seg1,
		Breadcrumbs2:  seg2,
		ViewHierarchy: map[string]any{"rendering_system": "test", "windows": []any{}},
		Attachments: []Attachment{
			{Filename: "CMakeCache.txt", ContentType: "text/plain", Data: []byte("CMAKE_BUILD_TYPE:STRING=Debug\n")},
		},
		Minidump: append([]byte("MDMP"), bytes.Repeat([]byte{0xab}, 28)...),
		Fields:   map[string]string{"sentry[environment]": "ci"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	up := ringUpload(101, 100)
	body, contentType, err := Encode(up, EncodeOptions{Boundary: testBoundary, ContentEncoding: contentenc.Gzip})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !contentenc.IsGzip(body) {
		t.Fatalf("expected gzip body")
	}
	if !strings.Contains(contentType, testBoundary) {
		t.Fatalf("content type %q lacks boundary", contentType)
	}

	bundle, err := DecodeRequest(contentType, "gzip", body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bundle.Event["release"] != "demo@1.0.0" {
		t.Fatalf("unexpected event: %#v", bundle.Event)
	}
	tags, ok := bundle.Event["tags"].(map[string]any)
	if !ok || tags["expected-tag"] != "some value" {
		t.Fatalf("unexpected tags: %#v", bundle.Event["tags"])
	}
	if len(bundle.Breadcrumbs1) != 100 || len(bundle.Breadcrumbs2) != 4 {
		t.Fatalf("segments = %d/%d", len(bundle.Breadcrumbs1), len(bundle.Breadcrumbs2))
	}
	if err := bundle.RingLog().Validate(breadcrumbs.DefaultOptions()); err != nil {
		t.Fatalf("ring log: %v", err)
	}
	if err := protocol.ValidateMinidump(bundle.Minidump); err != nil {
		t.Fatalf("minidump: %v", err)
	}
	if bundle.ViewHierarchy["rendering_system"] != "test" {
		t.Fatalf("unexpected view hierarchy: %#v", bundle.ViewHierarchy)
	}
	if string(bundle.Attachments["CMakeCache.txt"]) != "CMAKE_BUILD_TYPE:STRING=Debug\n" {
		t.Fatalf("unexpected attachments: %v", bundle.Attachments)
	}
	if bundle.Parts[0].Kind != PartOther || bundle.Parts[0].Meta.Name != "sentry[environment]" {
		t.Fatalf("expected form field first, got %+v", bundle.Parts[0].Meta)
	}
}

func TestEncodeWritesEmptyBreadcrumbSegments(t *testing.T) {
	testlog.Start(t)
	up := Upload{
		Event:        map[string]any{"message": "hello"},
		Breadcrumbs1: []map[string]any{breadcrumbs.DebugCrumb()},
		Breadcrumbs2: []map[string]any{},
	}
	up.Breadcrumbs1[0]["timestamp"] = "2024-05-02T08:30:00.123Z"

	body, _, err := Encode(up, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bundle, err := Decode(body, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	files := bundle.Files()
	if len(files) != 3 || files[2] != FileBreadcrumbs2 {
		t.Fatalf("unexpected files: %v", files)
	}
	if len(bundle.Breadcrumbs2) != 0 {
		t.Fatalf("expected empty segment 2")
	}
	if err := bundle.RingLog().Validate(breadcrumbs.DefaultOptions()); err != nil {
		t.Fatalf("unwrapped ring log: %v", err)
	}
}

func TestDecodedRingLogDetectsGap(t *testing.T) {
	testlog.Start(t)
	up := ringUpload(101, 100)
	up.Breadcrumbs2 = append(up.Breadcrumbs2[:1], up.Breadcrumbs2[2:]...)

	body, _, err := Encode(up, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bundle, err := Decode(body, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	err = bundle.RingLog().Validate(breadcrumbs.DefaultOptions())
	var ee *breadcrumbs.EntryError
	if !errors.Is(err, breadcrumbs.ErrSequence) || !errors.As(err, &ee) || ee.Segment != 2 || ee.Index != 1 {
		t.Fatalf("expected segment 2 entry 1 sequence error, got %v", err)
	}
}

func TestBundleEnvelope(t *testing.T) {
	testlog.Start(t)
	body, _, err := Encode(ringUpload(10, 100), EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bundle, err := Decode(body, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	env, err := bundle.Envelope()
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	event, ok := env.Event()
	if !ok || event["level"] != "fatal" {
		t.Fatalf("unexpected event: %#v", event)
	}
	crumbs, ok := event["breadcrumbs"].([]any)
	if !ok || len(crumbs) != 13 {
		t.Fatalf("expected 13 folded breadcrumbs, got %#v", event["breadcrumbs"])
	}
	if env.EventID() == "" || event["event_id"] != env.EventID() {
		t.Fatalf("event id not mirrored: %q vs %v", env.EventID(), event["event_id"])
	}
	md, ok := env.Minidump()
	if !ok {
		t.Fatalf("missing minidump item")
	}
	if raw, _ := md.Payload.Bytes(); !bytes.Equal(raw, bundle.Minidump) {
		t.Fatalf("minidump payload mismatch")
	}
	if _, ok := env.Attachment("CMakeCache.txt"); !ok {
		t.Fatalf("missing CMakeCache attachment")
	}
	vh, ok := env.Attachment(FileViewHierarchy)
	if !ok || vh.Header.AttachmentType != protocol.AttachmentViewHierarchy {
		t.Fatalf("unexpected view hierarchy item: %+v", vh.Header)
	}
}
