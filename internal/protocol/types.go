package protocol

// Item types carried in an envelope item header.
const (
	ItemEvent       = "event"
	ItemSession     = "session"
	ItemTransaction = "transaction"
	ItemAttachment  = "attachment"
	ItemUserReport  = "user_report"
)

// Attachment types carried in an item header's attachment_type.
const (
	AttachmentDefault       = "event.attachment"
	AttachmentMinidump      = "event.minidump"
	AttachmentViewHierarchy = "event.view_hierarchy"
)

// MinidumpMagic prefixes every minidump blob.
var MinidumpMagic = []byte("MDMP")

// IsJSONType reports whether items of the given type carry a JSON payload.
// Every other type is opaque bytes.
func IsJSONType(itemType string) bool {
	return itemType == ItemEvent || itemType == ItemSession
}

// IsMinidump reports whether header metadata marks an item as a minidump.
func IsMinidump(itemType, attachmentType string) bool {
	return itemType == ItemAttachment && attachmentType == AttachmentMinidump
}
