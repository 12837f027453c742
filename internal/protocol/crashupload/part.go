package crashupload

import (
	"github.com/danmuck/envelopectl/internal/protocol"
)

// Well-known part filenames and form names.
const (
	FileEvent         = "__sentry-event"
	FileBreadcrumbs1  = "__sentry-breadcrumb1"
	FileBreadcrumbs2  = "__sentry-breadcrumb2"
	FileViewHierarchy = "view-hierarchy.json"
	FieldMinidump     = "upload_file_minidump"
)

// PartKind is the closed set of recognized upload parts.
type PartKind uint8

const (
	PartOther PartKind = iota
	PartEvent
	PartBreadcrumbs1
	PartBreadcrumbs2
	PartViewHierarchy
	PartMinidump
	PartAttachment
)

func (k PartKind) String() string {
	switch k {
	case PartEvent:
		return "event"
	case PartBreadcrumbs1:
		return "breadcrumbs1"
	case PartBreadcrumbs2:
		return "breadcrumbs2"
	case PartViewHierarchy:
		return "view_hierarchy"
	case PartMinidump:
		return "minidump"
	case PartAttachment:
		return "attachment"
	default:
		return "other"
	}
}

// PartMeta is the header metadata of one part. Type and AttachmentType are
// derived the way an envelope item header would carry them.
type PartMeta struct {
	Name           string
	Filename       string
	ContentType    string
	Type           string
	AttachmentType string
}

// Part is one multipart section in document order.
type Part struct {
	Kind PartKind
	Meta PartMeta
	Body []byte
}

// newPartMeta derives item-style metadata from Content-Disposition fields.
// attachmentType is an explicit attachment_type parameter, if any.
func newPartMeta(name, filename, contentType, attachmentType string) PartMeta {
	meta := PartMeta{
		Name:           name,
		Filename:       filename,
		ContentType:    contentType,
		AttachmentType: attachmentType,
	}
	if meta.AttachmentType == "" && name == FieldMinidump {
		meta.AttachmentType = protocol.AttachmentMinidump
	}
	if meta.Filename != "" || meta.AttachmentType != "" {
		meta.Type = protocol.ItemAttachment
	}
	return meta
}

// classify picks the part kind. The minidump predicate is checked first
// and ignores the filename, which crash handlers do not set reliably.
func classify(meta PartMeta) PartKind {
	if protocol.IsMinidump(meta.Type, meta.AttachmentType) {
		return PartMinidump
	}
	switch meta.Filename {
	case "":
		return PartOther
	case FileEvent:
		return PartEvent
	case FileBreadcrumbs1:
		return PartBreadcrumbs1
	case FileBreadcrumbs2:
		return PartBreadcrumbs2
	case FileViewHierarchy:
		return PartViewHierarchy
	default:
		return PartAttachment
	}
}
