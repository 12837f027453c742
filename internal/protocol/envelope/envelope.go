package envelope

import (
	"strings"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/google/uuid"
)

const headerEventID = "event_id"

// Envelope is one decoded transmission: a header line plus ordered items.
type Envelope struct {
	Headers map[string]any
	Items   []Item
}

// Item is one typed entry of an envelope.
type Item struct {
	Header  ItemHeader
	Payload Payload
}

// New returns an empty envelope carrying a copy of headers.
func New(headers map[string]any) *Envelope {
	h := make(map[string]any, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Envelope{Headers: h}
}

// Event returns the item's payload when it is a JSON event object.
func (it Item) Event() (map[string]any, bool) {
	if it.Header.Type != protocol.ItemEvent {
		return nil, false
	}
	v, ok := it.Payload.JSON()
	if !ok {
		return nil, false
	}
	event, ok := v.(map[string]any)
	return event, ok
}

// IsMinidump reports whether the item header marks a minidump attachment.
func (it Item) IsMinidump() bool {
	return protocol.IsMinidump(it.Header.Type, it.Header.AttachmentType)
}

func (it Item) Equal(o Item) bool {
	return it.Header.equal(o.Header) && it.Payload.Equal(o.Payload)
}

// Event returns the first event-typed item whose payload is a JSON object.
// Items carrying null, a non-object or opaque bytes are skipped.
func (e *Envelope) Event() (map[string]any, bool) {
	for _, it := range e.Items {
		if it.Header.Type != protocol.ItemEvent {
			continue
		}
		if event, ok := it.Event(); ok {
			return event, true
		}
	}
	return nil, false
}

// Session returns the last session payload in the envelope.
func (e *Envelope) Session() (map[string]any, bool) {
	sessions := e.Sessions()
	if len(sessions) == 0 {
		return nil, false
	}
	return sessions[len(sessions)-1], true
}

// Sessions returns every session object in item order.
func (e *Envelope) Sessions() []map[string]any {
	var out []map[string]any
	for _, it := range e.ItemsOfType(protocol.ItemSession) {
		v, ok := it.Payload.JSON()
		if !ok {
			continue
		}
		if session, ok := v.(map[string]any); ok {
			out = append(out, session)
		}
	}
	return out
}

func (e *Envelope) ItemsOfType(itemType string) []Item {
	var out []Item
	for _, it := range e.Items {
		if it.Header.Type == itemType {
			out = append(out, it)
		}
	}
	return out
}

// Attachments returns attachment items that are not minidumps.
func (e *Envelope) Attachments() []Item {
	var out []Item
	for _, it := range e.ItemsOfType(protocol.ItemAttachment) {
		if !it.IsMinidump() {
			out = append(out, it)
		}
	}
	return out
}

// Attachment returns the first attachment item with the given filename.
func (e *Envelope) Attachment(filename string) (Item, bool) {
	for _, it := range e.ItemsOfType(protocol.ItemAttachment) {
		if it.Header.Filename == filename {
			return it, true
		}
	}
	return Item{}, false
}

// Minidump returns the first item matching the minidump header predicate.
func (e *Envelope) Minidump() (Item, bool) {
	for _, it := range e.Items {
		if it.IsMinidump() {
			return it, true
		}
	}
	return Item{}, false
}

func (e *Envelope) EventID() string {
	id, _ := e.Headers[headerEventID].(string)
	return id
}

// EventUUID parses the envelope event_id, dashed or 32-hex.
func (e *Envelope) EventUUID() (uuid.UUID, error) {
	return uuid.Parse(e.EventID())
}

func (e *Envelope) Equal(o *Envelope) bool {
	if e == nil || o == nil {
		return e == o
	}
	if len(e.Items) != len(o.Items) {
		return false
	}
	if !(len(e.Headers) == 0 && len(o.Headers) == 0) && !jsonEqual(e.Headers, o.Headers) {
		return false
	}
	for i := range e.Items {
		if !e.Items[i].Equal(o.Items[i]) {
			return false
		}
	}
	return true
}

// NewEventID returns a fresh event id in the 32-hex wire form.
func NewEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AddItem appends an item, setting its length from the payload.
func (e *Envelope) AddItem(header ItemHeader, payload Payload) {
	header.Length = payload.Len()
	e.Items = append(e.Items, Item{Header: header, Payload: payload})
}

// AddEvent appends an event item. A missing event_id is generated; the id
// is mirrored into the envelope header and returned.
func (e *Envelope) AddEvent(event map[string]any) (string, error) {
	body := make(map[string]any, len(event)+1)
	for k, v := range event {
		body[k] = v
	}
	id, _ := body[headerEventID].(string)
	if strings.TrimSpace(id) == "" {
		id = NewEventID()
		body[headerEventID] = id
	}
	payload, err := JSONPayload(body)
	if err != nil {
		return "", err
	}
	e.AddItem(ItemHeader{Type: protocol.ItemEvent}, payload)
	if e.Headers == nil {
		e.Headers = make(map[string]any)
	}
	e.Headers[headerEventID] = id
	return id, nil
}

func (e *Envelope) AddSession(session any) error {
	payload, err := JSONPayload(session)
	if err != nil {
		return err
	}
	e.AddItem(ItemHeader{Type: protocol.ItemSession}, payload)
	return nil
}

func (e *Envelope) AddAttachment(filename, contentType string, b []byte) {
	e.AddItem(ItemHeader{
		Type:        protocol.ItemAttachment,
		Filename:    filename,
		ContentType: contentType,
	}, BytesPayload(b))
}

func (e *Envelope) AddMinidump(filename string, b []byte) {
	e.AddItem(ItemHeader{
		Type:           protocol.ItemAttachment,
		Filename:       filename,
		AttachmentType: protocol.AttachmentMinidump,
	}, BytesPayload(b))
}

// AddRaw appends an item of any type. JSON types are decoded so the
// payload lands on the same branch a decoder would put it.
func (e *Envelope) AddRaw(itemType string, b []byte) error {
	payload := BytesPayload(b)
	if protocol.IsJSONType(itemType) {
		var err error
		if payload, err = decodeJSONPayload(b); err != nil {
			return err
		}
	}
	e.AddItem(ItemHeader{Type: itemType}, payload)
	return nil
}
