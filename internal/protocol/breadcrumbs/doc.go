// Package breadcrumbs owns the breadcrumb ring-log contract of crash uploads.
//
// A crash handler keeps breadcrumbs in two capped buffers. Once buffer 1
// is full, new breadcrumbs continue into buffer 2; both are uploaded as
// separate segments. Only the read side is modeled here: the validator is
// the contract a producer must satisfy.
package breadcrumbs
