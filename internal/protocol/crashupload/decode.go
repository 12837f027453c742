package crashupload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Decode inflates and decodes a crash upload. The multipart boundary is
// taken from the first delimiter line of the body.
func Decode(body []byte, contentEncoding string) (*Bundle, error) {
	return DecodeLimit(body, contentEncoding, 0)
}

// DecodeLimit is Decode with the inflated body capped at maxInflated bytes.
// Zero means no cap.
func DecodeLimit(body []byte, contentEncoding string, maxInflated int64) (*Bundle, error) {
	data, err := contentenc.DecodeLimit(body, contentEncoding, maxInflated)
	if err != nil {
		return nil, err
	}
	boundary, err := sniffBoundary(data)
	if err != nil {
		return nil, err
	}
	return decodeMultipart(data, boundary)
}

// DecodeRequest decodes a crash upload using the boundary declared in the
// request Content-Type. An empty contentType falls back to sniffing.
func DecodeRequest(contentType, contentEncoding string, body []byte) (*Bundle, error) {
	return DecodeRequestLimit(contentType, contentEncoding, body, 0)
}

// DecodeRequestLimit is DecodeRequest with the inflated body capped at
// maxInflated bytes.
func DecodeRequestLimit(contentType, contentEncoding string, body []byte, maxInflated int64) (*Bundle, error) {
	if strings.TrimSpace(contentType) == "" {
		return DecodeLimit(body, contentEncoding, maxInflated)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: content type: %v", ErrMultipartFormat, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("%w: content type %q", ErrMultipartFormat, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing boundary", ErrMultipartFormat)
	}
	data, err := contentenc.DecodeLimit(body, contentEncoding, maxInflated)
	if err != nil {
		return nil, err
	}
	return decodeMultipart(data, boundary)
}

// sniffBoundary finds the first "--boundary" delimiter line. Any preamble
// before it is skipped.
func sniffBoundary(data []byte) (string, error) {
	for rest := data; len(rest) > 0; {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			rest = nil
		}
		line = bytes.TrimRight(line, " \t\r")
		if len(line) > 2 && bytes.HasPrefix(line, []byte("--")) {
			return strings.TrimSuffix(string(line[2:]), "--"), nil
		}
	}
	return "", fmt.Errorf("%w: no boundary delimiter found", ErrMultipartFormat)
}

func decodeMultipart(data []byte, boundary string) (*Bundle, error) {
	mr := multipart.NewReader(bytes.NewReader(data), boundary)
	bundle := newBundle()
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return bundle, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMultipartFormat, err)
		}
		part, err := readPart(p)
		p.Close()
		if err != nil {
			return nil, err
		}
		if err := bundle.add(part); err != nil {
			return nil, err
		}
	}
}

func readPart(p *multipart.Part) (Part, error) {
	var name, filename, attachmentType string
	if _, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition")); err == nil {
		name = params["name"]
		filename = params["filename"]
		attachmentType = params["attachment_type"]
	}
	meta := newPartMeta(name, filename, p.Header.Get("Content-Type"), attachmentType)

	var r io.Reader = p
	// NextPart already undoes quoted-printable; base64 is left to us.
	if strings.EqualFold(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")), "base64") {
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return Part{}, fmt.Errorf("%w: part %q: %v", ErrMultipartFormat, name, err)
	}
	return Part{Kind: classify(meta), Meta: meta, Body: body}, nil
}

func (b *Bundle) add(part Part) error {
	wrap := func(err error) error {
		return &PartError{Kind: part.Kind, Filename: part.Meta.Filename, Err: fmt.Errorf("%w: %v", ErrPartDecode, err)}
	}
	switch part.Kind {
	case PartEvent:
		event, err := decodeMsgpackMap(part.Body)
		if err != nil {
			return wrap(err)
		}
		b.Event = event
	case PartBreadcrumbs1:
		crumbs, err := decodeMsgpackStream(part.Body)
		if err != nil {
			return wrap(err)
		}
		b.Breadcrumbs1 = crumbs
	case PartBreadcrumbs2:
		crumbs, err := decodeMsgpackStream(part.Body)
		if err != nil {
			return wrap(err)
		}
		b.Breadcrumbs2 = crumbs
	case PartViewHierarchy:
		var vh map[string]any
		if err := json.Unmarshal(part.Body, &vh); err != nil {
			return wrap(err)
		}
		if vh == nil {
			return wrap(fmt.Errorf("view hierarchy is not an object"))
		}
		b.ViewHierarchy = vh
	case PartMinidump:
		b.Minidump = part.Body
	case PartAttachment:
		b.Attachments[part.Meta.Filename] = part.Body
	default:
		log.Debug().
			Str("name", part.Meta.Name).
			Int("bytes", len(part.Body)).
			Msg("crashupload: ignoring unrecognized part")
	}
	b.Parts = append(b.Parts, part)
	return nil
}

func newMsgpackDecoder(r io.Reader) *msgpack.Decoder {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	return dec
}

func decodeMsgpackMap(b []byte) (map[string]any, error) {
	dec := newMsgpackDecoder(bytes.NewReader(b))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected map, got %T", v)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// decodeMsgpackStream decodes back-to-back msgpack maps until the input is
// exhausted. A value cut short mid-stream is an error, not the end.
func decodeMsgpackStream(b []byte) ([]map[string]any, error) {
	r := bytes.NewReader(b)
	dec := newMsgpackDecoder(r)
	out := make([]map[string]any, 0)
	for r.Len() > 0 {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("value %d: %w", len(out), err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("value %d: expected map, got %T", len(out), v)
		}
		out = append(out, m)
	}
	return out, nil
}
