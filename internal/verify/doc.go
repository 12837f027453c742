// Package verify holds the assertions run against captured telemetry:
// envelopes read from stdout or an ingest endpoint, and decoded crash
// uploads. Each check returns nil or an error describing every failure
// it found.
package verify
