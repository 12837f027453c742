package report

import (
	"strings"
	"testing"

	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/crashupload"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestDigestIsStable(t *testing.T) {
	testlog.Start(t)
	a, b := Digest([]byte("MDMP")), Digest([]byte("MDMP"))
	if a != b || !strings.HasPrefix(a, "blake3:") || len(a) != len("blake3:")+64 {
		t.Fatalf("unexpected digest %q", a)
	}
	if Digest([]byte("MDMQ")) == a {
		t.Fatalf("digest collision on different input")
	}
}

func TestFromEnvelope(t *testing.T) {
	testlog.Start(t)
	env, err := envelope.Deserialize([]byte("{\"event_id\":\"abc\"}\n{\"type\":\"event\",\"length\":14,\"x\":1}\n{\"lvl\":\"info\"}\n{\"type\":\"attachment\",\"length\":3,\"filename\":\"a.txt\"}\nabc\n"))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	r := FromEnvelope(env, true)
	if r.EventID != "abc" || len(r.Items) != 2 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.Items[0].Payload != "json" || r.Items[0].JSON == nil || r.Items[0].Extra["x"] == nil {
		t.Fatalf("unexpected event item: %+v", r.Items[0])
	}
	if r.Items[1].Payload != "bytes" || r.Items[1].Digest != Digest([]byte("abc")) || r.Items[1].JSON != nil {
		t.Fatalf("unexpected attachment item: %+v", r.Items[1])
	}
	if FromEnvelope(env, false).Items[0].JSON != nil {
		t.Fatalf("json included without withJSON")
	}
}

func TestFromBundle(t *testing.T) {
	testlog.Start(t)
	crumb := breadcrumbs.DebugCrumb()
	crumb["timestamp"] = "2024-01-01T00:00:00Z"
	body, ct, err := crashupload.Encode(crashupload.Upload{
		Event:        map[string]any{"level": "fatal"},
		Breadcrumbs1: []map[string]any{crumb},
		Breadcrumbs2: []map[string]any{},
		Attachments: []crashupload.Attachment{
			{Filename: "z.log", Data: []byte("zz")},
			{Filename: "CMakeCache.txt", Data: []byte("cache")},
		},
		Minidump: []byte("MDMPxxxx"),
	}, crashupload.EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := crashupload.DecodeRequest(ct, "", body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := FromBundle(b, breadcrumbs.DefaultOptions())
	if !r.RingLog.Valid || r.RingLog.Wrapped || r.RingLog.Segment1 != 1 {
		t.Fatalf("unexpected ring log: %+v", r.RingLog)
	}
	if len(r.Attachments) != 2 || r.Attachments[0].Filename != "CMakeCache.txt" || r.Attachments[1].Size != 2 {
		t.Fatalf("unexpected attachments: %+v", r.Attachments)
	}
	if r.Minidump == nil || !r.MinidumpValid || r.Minidump.Size != 8 {
		t.Fatalf("unexpected minidump: %+v valid=%v", r.Minidump, r.MinidumpValid)
	}
	if len(r.Parts) != 6 || r.Parts[len(r.Parts)-1].Kind != "minidump" {
		t.Fatalf("unexpected parts: %+v", r.Parts)
	}

	r = FromBundle(b, breadcrumbs.Options{Fixed: map[string]any{"message": "absent"}})
	if r.RingLog.Valid || r.RingLog.Error == "" {
		t.Fatalf("expected ring log failure")
	}
}
