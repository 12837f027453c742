package crashupload

import (
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
)

// Bundle is a decoded crash upload. Event is never nil; Minidump and
// ViewHierarchy are nil when their parts are absent.
type Bundle struct {
	Event         map[string]any
	Breadcrumbs1  []map[string]any
	Breadcrumbs2  []map[string]any
	ViewHierarchy map[string]any
	Attachments   map[string][]byte
	Minidump      []byte
	Parts         []Part
}

func newBundle() *Bundle {
	return &Bundle{
		Event:       map[string]any{},
		Attachments: map[string][]byte{},
	}
}

// HasEvent reports whether an event part was decoded.
func (b *Bundle) HasEvent() bool {
	return b.part(PartEvent) != nil
}

// HasMinidump reports whether a minidump part was present.
func (b *Bundle) HasMinidump() bool {
	return b.Minidump != nil
}

// Files lists part filenames in document order, skipping unnamed parts.
func (b *Bundle) Files() []string {
	out := make([]string, 0, len(b.Parts))
	for _, p := range b.Parts {
		if p.Meta.Filename != "" {
			out = append(out, p.Meta.Filename)
		}
	}
	return out
}

// RingLog returns both breadcrumb segments.
func (b *Bundle) RingLog() breadcrumbs.RingLog {
	return breadcrumbs.RingLog{Segment1: b.Breadcrumbs1, Segment2: b.Breadcrumbs2}
}

func (b *Bundle) part(kind PartKind) *Part {
	for i := range b.Parts {
		if b.Parts[i].Kind == kind {
			return &b.Parts[i]
		}
	}
	return nil
}
