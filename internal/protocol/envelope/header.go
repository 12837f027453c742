package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	keyType           = "type"
	keyLength         = "length"
	keyFilename       = "filename"
	keyContentType    = "content_type"
	keyAttachmentType = "attachment_type"
)

// ItemHeader is one item header line. Keys without a typed field are kept
// in Extra so they survive a round trip.
type ItemHeader struct {
	Type           string
	Length         int
	Filename       string
	ContentType    string
	AttachmentType string
	Extra          map[string]any
}

// Get returns a header value by wire key.
func (h ItemHeader) Get(key string) (any, bool) {
	switch key {
	case keyType:
		return h.Type, h.Type != ""
	case keyLength:
		return h.Length, true
	case keyFilename:
		return h.Filename, h.Filename != ""
	case keyContentType:
		return h.ContentType, h.ContentType != ""
	case keyAttachmentType:
		return h.AttachmentType, h.AttachmentType != ""
	}
	v, ok := h.Extra[key]
	return v, ok
}

// Map flattens the header into its wire key/value form.
func (h ItemHeader) Map() map[string]any {
	out := make(map[string]any, len(h.Extra)+5)
	for k, v := range h.Extra {
		out[k] = v
	}
	if h.Type != "" {
		out[keyType] = h.Type
	}
	out[keyLength] = h.Length
	if h.Filename != "" {
		out[keyFilename] = h.Filename
	}
	if h.ContentType != "" {
		out[keyContentType] = h.ContentType
	}
	if h.AttachmentType != "" {
		out[keyAttachmentType] = h.AttachmentType
	}
	return out
}

func (h ItemHeader) MarshalJSON() ([]byte, error) {
	return marshalCompact(h.Map())
}

func (h *ItemHeader) UnmarshalJSON(b []byte) error {
	parsed, err := parseItemHeader(b)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h ItemHeader) equal(o ItemHeader) bool {
	if h.Type != o.Type || h.Length != o.Length || h.Filename != o.Filename ||
		h.ContentType != o.ContentType || h.AttachmentType != o.AttachmentType {
		return false
	}
	if len(h.Extra) == 0 && len(o.Extra) == 0 {
		return true
	}
	return jsonEqual(h.Extra, o.Extra)
}

func parseItemHeader(line []byte) (ItemHeader, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return ItemHeader{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if raw == nil {
		return ItemHeader{}, fmt.Errorf("%w: item header is not an object", ErrFormat)
	}

	lengthRaw, ok := raw[keyLength]
	if !ok {
		return ItemHeader{}, fmt.Errorf("%w: missing length", ErrTruncatedPayload)
	}
	length, err := parseLength(lengthRaw)
	if err != nil {
		return ItemHeader{}, err
	}

	h := ItemHeader{Length: length}
	for key, value := range raw {
		var dst *string
		switch key {
		case keyLength:
			continue
		case keyType:
			dst = &h.Type
		case keyFilename:
			dst = &h.Filename
		case keyContentType:
			dst = &h.ContentType
		case keyAttachmentType:
			dst = &h.AttachmentType
		}
		if dst != nil {
			if bytes.Equal(value, []byte("null")) {
				continue
			}
			if err := json.Unmarshal(value, dst); err != nil {
				return ItemHeader{}, fmt.Errorf("%w: %s: %v", ErrFormat, key, err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return ItemHeader{}, fmt.Errorf("%w: %s: %v", ErrFormat, key, err)
		}
		if h.Extra == nil {
			h.Extra = make(map[string]any)
		}
		h.Extra[key] = v
	}
	return h, nil
}

func parseLength(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: length: %v", ErrFormat, err)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: length %q is not an integer", ErrFormat, n)
	}
	if v < 0 || int64(int(v)) != v {
		return 0, fmt.Errorf("%w: length %d out of range", ErrFormat, v)
	}
	return int(v), nil
}
