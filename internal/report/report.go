// Package report renders decoded envelopes and crash uploads as plain
// structures for JSON or YAML output. Binary payloads are summarized by
// size and blake3 digest.
package report

import (
	"encoding/hex"
	"errors"
	"sort"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/crashupload"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/zeebo/blake3"
)

type Blob struct {
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Size     int    `json:"size" yaml:"size"`
	Digest   string `json:"digest" yaml:"digest"`
}

type Item struct {
	Type           string         `json:"type" yaml:"type"`
	Length         int            `json:"length" yaml:"length"`
	Filename       string         `json:"filename,omitempty" yaml:"filename,omitempty"`
	ContentType    string         `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	AttachmentType string         `json:"attachment_type,omitempty" yaml:"attachment_type,omitempty"`
	Extra          map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
	Payload        string         `json:"payload" yaml:"payload"`
	Digest         string         `json:"digest" yaml:"digest"`
	JSON           any            `json:"json,omitempty" yaml:"json,omitempty"`
}

type Envelope struct {
	Headers map[string]any `json:"headers" yaml:"headers"`
	EventID string         `json:"event_id,omitempty" yaml:"event_id,omitempty"`
	Items   []Item         `json:"items" yaml:"items"`
}

type Part struct {
	Kind           string `json:"kind" yaml:"kind"`
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Filename       string `json:"filename,omitempty" yaml:"filename,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty" yaml:"attachment_type,omitempty"`
	Size           int    `json:"size" yaml:"size"`
}

type RingLog struct {
	Segment1 int    `json:"segment1" yaml:"segment1"`
	Segment2 int    `json:"segment2" yaml:"segment2"`
	Wrapped  bool   `json:"wrapped" yaml:"wrapped"`
	Valid    bool   `json:"valid" yaml:"valid"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type Crash struct {
	Event         map[string]any `json:"event" yaml:"event"`
	RingLog       RingLog        `json:"ring_log" yaml:"ring_log"`
	ViewHierarchy bool           `json:"view_hierarchy" yaml:"view_hierarchy"`
	Attachments   []Blob         `json:"attachments" yaml:"attachments"`
	Minidump      *Blob          `json:"minidump,omitempty" yaml:"minidump,omitempty"`
	MinidumpValid bool           `json:"minidump_valid" yaml:"minidump_valid"`
	Parts         []Part         `json:"parts" yaml:"parts"`
}

// Digest returns "blake3:" followed by the hex digest of b.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return "blake3:" + hex.EncodeToString(sum[:])
}

// FromEnvelope summarizes env. JSON payloads are included only when
// withJSON is set.
func FromEnvelope(env *envelope.Envelope, withJSON bool) Envelope {
	out := Envelope{
		Headers: env.Headers,
		EventID: env.EventID(),
		Items:   make([]Item, 0, len(env.Items)),
	}
	if out.Headers == nil {
		out.Headers = map[string]any{}
	}
	for _, it := range env.Items {
		ri := Item{
			Type:           it.Header.Type,
			Length:         it.Header.Length,
			Filename:       it.Header.Filename,
			ContentType:    it.Header.ContentType,
			AttachmentType: it.Header.AttachmentType,
			Extra:          it.Header.Extra,
			Payload:        it.Payload.Kind().String(),
			Digest:         Digest(it.Payload.Raw()),
		}
		if withJSON {
			if v, ok := it.Payload.JSON(); ok {
				ri.JSON = v
			}
		}
		out.Items = append(out.Items, ri)
	}
	return out
}

// FromBundle summarizes a crash upload and runs the ring-log check.
func FromBundle(b *crashupload.Bundle, ring breadcrumbs.Options) Crash {
	out := Crash{
		Event:         b.Event,
		ViewHierarchy: b.ViewHierarchy != nil,
		Attachments:   make([]Blob, 0, len(b.Attachments)),
		Parts:         make([]Part, 0, len(b.Parts)),
	}
	log := b.RingLog()
	out.RingLog = RingLog{
		Segment1: len(log.Segment1),
		Segment2: len(log.Segment2),
		Wrapped:  log.Wrapped(),
		Valid:    true,
	}
	if err := log.Validate(ring); err != nil {
		out.RingLog.Valid = false
		out.RingLog.Error = err.Error()
	}
	for _, p := range b.Parts {
		out.Parts = append(out.Parts, Part{
			Kind:           p.Kind.String(),
			Name:           p.Meta.Name,
			Filename:       p.Meta.Filename,
			AttachmentType: p.Meta.AttachmentType,
			Size:           len(p.Body),
		})
	}
	names := make([]string, 0, len(b.Attachments))
	for name := range b.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Attachments = append(out.Attachments, blob(name, b.Attachments[name]))
	}
	if b.Minidump != nil {
		md := blob("", b.Minidump)
		out.Minidump = &md
		out.MinidumpValid = !errors.Is(protocol.ValidateMinidump(b.Minidump), protocol.ErrInvalidMinidump)
	}
	return out
}

func blob(filename string, b []byte) Blob {
	return Blob{Filename: filename, Size: len(b), Digest: Digest(b)}
}
