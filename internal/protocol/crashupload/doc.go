// Package crashupload owns the crash-handler upload format: a (usually
// gzip-compressed) multipart/form-data body whose parts carry a msgpack
// event, two msgpack breadcrumb streams, an optional JSON view hierarchy,
// raw attachments and a minidump.
//
// Ownership boundary:
// - part classification (closed set of kinds, forward-compatible)
// - msgpack/json part decoding into a Bundle
// - synthesizing uploads for tests and tooling
//
// Decoding is pure: no global state, safe for concurrent use on
// independent buffers.
package crashupload
