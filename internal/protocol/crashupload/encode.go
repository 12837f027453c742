package crashupload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
	"github.com/vmihailenco/msgpack/v5"
)

// Attachment is one named file of an Upload.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Upload is the producer-side shape of a crash upload.
type Upload struct {
	Event         map[string]any
	Breadcrumbs1  []map[string]any
	Breadcrumbs2  []map[string]any
	ViewHierarchy map[string]any
	Attachments   []Attachment
	Minidump      []byte
	// Fields are plain form fields without a filename.
	Fields map[string]string
}

type EncodeOptions struct {
	Boundary        string
	ContentEncoding string
}

// Encode builds a multipart body for u and returns it with its
// Content-Type. Breadcrumb parts are written whenever their slice is
// non-nil, so empty segments still appear.
func Encode(u Upload, opts EncodeOptions) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if opts.Boundary != "" {
		if err := w.SetBoundary(opts.Boundary); err != nil {
			return nil, "", err
		}
	}

	names := make([]string, 0, len(u.Fields))
	for name := range u.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, u.Fields[name]); err != nil {
			return nil, "", err
		}
	}

	if u.Event != nil {
		b, err := encodeMsgpack(u.Event)
		if err != nil {
			return nil, "", fmt.Errorf("encode event: %w", err)
		}
		if err := writeFile(w, FileEvent, FileEvent, "application/octet-stream", b); err != nil {
			return nil, "", err
		}
	}
	for _, seg := range []struct {
		file   string
		crumbs []map[string]any
	}{
		{FileBreadcrumbs1, u.Breadcrumbs1},
		{FileBreadcrumbs2, u.Breadcrumbs2},
	} {
		if seg.crumbs == nil {
			continue
		}
		b, err := encodeMsgpackStream(seg.crumbs)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", seg.file, err)
		}
		if err := writeFile(w, seg.file, seg.file, "application/octet-stream", b); err != nil {
			return nil, "", err
		}
	}
	if u.ViewHierarchy != nil {
		b, err := json.Marshal(u.ViewHierarchy)
		if err != nil {
			return nil, "", fmt.Errorf("encode view hierarchy: %w", err)
		}
		if err := writeFile(w, FileViewHierarchy, FileViewHierarchy, "application/json", b); err != nil {
			return nil, "", err
		}
	}
	for _, a := range u.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := writeFile(w, a.Filename, a.Filename, ct, a.Data); err != nil {
			return nil, "", err
		}
	}
	if u.Minidump != nil {
		if err := writeFile(w, FieldMinidump, "minidump.dmp", "application/octet-stream", u.Minidump); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	body, err := contentenc.Encode(buf.Bytes(), opts.ContentEncoding)
	if err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, name, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = pw.Write(data)
	return err
}

func encodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeMsgpackStream writes values back to back, not as an array.
func encodeMsgpackStream(values []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
