package crashupload

import (
	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
)

// Envelope re-expresses the bundle as envelope items: the event (with the
// ring log folded into its breadcrumbs when it has none), attachments,
// view hierarchy and minidump.
func (b *Bundle) Envelope() (*envelope.Envelope, error) {
	env := envelope.New(nil)

	if b.HasEvent() {
		event := make(map[string]any, len(b.Event)+1)
		for k, v := range b.Event {
			event[k] = v
		}
		if _, ok := event["breadcrumbs"]; !ok {
			if entries := b.RingLog().Entries(); len(entries) > 0 {
				crumbs := make([]any, 0, len(entries))
				for _, e := range entries {
					crumbs = append(crumbs, e)
				}
				event["breadcrumbs"] = crumbs
			}
		}
		if _, err := env.AddEvent(event); err != nil {
			return nil, err
		}
	}

	for _, p := range b.Parts {
		switch p.Kind {
		case PartAttachment:
			env.AddAttachment(p.Meta.Filename, p.Meta.ContentType, p.Body)
		case PartViewHierarchy:
			env.AddItem(envelope.ItemHeader{
				Type:           protocol.ItemAttachment,
				Filename:       p.Meta.Filename,
				ContentType:    "application/json",
				AttachmentType: protocol.AttachmentViewHierarchy,
			}, envelope.BytesPayload(p.Body))
		case PartMinidump:
			filename := p.Meta.Filename
			if filename == "" {
				filename = "minidump.dmp"
			}
			env.AddMinidump(filename, p.Body)
		}
	}
	return env, nil
}
