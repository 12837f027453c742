// Package protocol owns wire contracts shared by the telemetry decoders.
//
// Ownership boundary:
// - item and attachment type names
// - minidump magic and validation
// - envelope framing (protocol/envelope)
// - crash-upload multipart decoding (protocol/crashupload)
// - breadcrumb ring-log contract (protocol/breadcrumbs)
// - Content-Encoding handling (protocol/contentenc)
package protocol
