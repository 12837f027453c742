package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
)

const (
	targetEnvelope = "envelope"
	targetCrash    = "crash"
)

// expectations is what "verify" checks. Zero values skip a check.
type expectations struct {
	Format                string
	Event                 map[string]any
	Session               map[string]any
	Breadcrumb            map[string]any
	DebugBreadcrumb       bool
	Attachments           []string
	Minidump              bool
	Stacktrace            bool
	StacktraceInException bool
	EventDate             bool
	ViewHierarchy         bool
	RingLog               bool
}

func defaultExpectations() expectations {
	return expectations{Format: targetEnvelope, RingLog: true}
}

type crashFile struct {
	ViewHierarchy bool  `toml:"view_hierarchy" json:"view_hierarchy"`
	RingLog       *bool `toml:"ring_log" json:"ring_log"`
}

type expectFile struct {
	Format                string         `toml:"format" json:"format"`
	Event                 map[string]any `toml:"event" json:"event"`
	Session               map[string]any `toml:"session" json:"session"`
	Breadcrumb            map[string]any `toml:"breadcrumb" json:"breadcrumb"`
	DebugBreadcrumb       bool           `toml:"debug_breadcrumb" json:"debug_breadcrumb"`
	Attachments           []string       `toml:"attachments" json:"attachments"`
	Minidump              bool           `toml:"minidump" json:"minidump"`
	Stacktrace            bool           `toml:"stacktrace" json:"stacktrace"`
	StacktraceInException bool           `toml:"stacktrace_in_exception" json:"stacktrace_in_exception"`
	EventDate             bool           `toml:"event_date_today" json:"event_date_today"`
	Crash                 crashFile      `toml:"crash" json:"crash"`
}

// loadExpectations reads a TOML file, or JSON with comments for .json
// and .jsonc paths.
func loadExpectations(path string) (expectations, error) {
	var raw expectFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err := os.ReadFile(path)
		if err != nil {
			return expectations{}, fmt.Errorf("load expectations: %w", err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return expectations{}, fmt.Errorf("parse expectations (%s): %w", path, err)
		}
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return expectations{}, fmt.Errorf("load expectations: %w", err)
		}
		for _, key := range meta.Undecoded() {
			if isPayloadTable(key) {
				continue
			}
			return expectations{}, fmt.Errorf("unknown expectation key %q", key.String())
		}
	}
	return raw.resolve()
}

// isPayloadTable reports whether key sits under one of the free-form
// payload tables, whose nested keys are matched against decoded JSON.
func isPayloadTable(key toml.Key) bool {
	if len(key) == 0 {
		return false
	}
	switch key[0] {
	case "event", "session", "breadcrumb":
		return true
	}
	return false
}

func (f expectFile) resolve() (expectations, error) {
	exp := defaultExpectations()
	if format := strings.ToLower(strings.TrimSpace(f.Format)); format != "" {
		if format != targetEnvelope && format != targetCrash {
			return expectations{}, fmt.Errorf("format must be %q or %q, got %q", targetEnvelope, targetCrash, f.Format)
		}
		exp.Format = format
	}
	exp.Event = f.Event
	exp.Session = f.Session
	exp.Breadcrumb = f.Breadcrumb
	exp.DebugBreadcrumb = f.DebugBreadcrumb
	exp.Attachments = f.Attachments
	exp.Minidump = f.Minidump
	exp.Stacktrace = f.Stacktrace
	exp.StacktraceInException = f.StacktraceInException
	exp.EventDate = f.EventDate
	exp.ViewHierarchy = f.Crash.ViewHierarchy
	if f.Crash.RingLog != nil {
		exp.RingLog = *f.Crash.RingLog
	}
	return exp, nil
}
