package breadcrumbs

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ReservedPrefix is the number of segment-1 entries recorded before the
// numbered sequence starts. A segment 1 no longer than this has not wrapped.
const ReservedPrefix = 3

var (
	ErrSequence     = errors.New("breadcrumbs: unexpected sequence message")
	ErrTimestamp    = errors.New("breadcrumbs: invalid timestamp")
	ErrMissingFixed = errors.New("breadcrumbs: fixed breadcrumb not found")
)

// EntryError locates a failing entry. Segment is 1 or 2.
type EntryError struct {
	Segment int
	Index   int
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("breadcrumbs: segment %d entry %d: %v", e.Segment, e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Breadcrumb is the typed view of one decoded breadcrumb.
type Breadcrumb struct {
	Message   string
	Timestamp time.Time
	Fields    map[string]any
}

// Parse reads message and timestamp out of a decoded breadcrumb.
func Parse(raw map[string]any) (Breadcrumb, error) {
	ts, err := ParseTimestamp(raw["timestamp"])
	if err != nil {
		return Breadcrumb{}, err
	}
	msg, _ := raw["message"].(string)
	return Breadcrumb{Message: msg, Timestamp: ts, Fields: raw}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseTimestamp accepts ISO-8601 strings, with or without a zone, and
// msgpack timestamps already decoded to time.Time.
func ParseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrTimestamp, ts)
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing", ErrTimestamp)
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected %T", ErrTimestamp, v)
	}
}

// Options tunes validation of a log that has not wrapped.
type Options struct {
	// Fixed must be matched by at least one entry of an unwrapped log.
	// Nil skips the check.
	Fixed map[string]any
}

// DebugCrumb is the fixed breadcrumb recorded by the example program.
func DebugCrumb() map[string]any {
	return map[string]any{
		"type":     "http",
		"message":  "debug crumb",
		"category": "example!",
		"level":    "debug",
	}
}

func DefaultOptions() Options {
	return Options{Fixed: DebugCrumb()}
}

// RingLog holds the two uploaded segments of one breadcrumb log.
type RingLog struct {
	Segment1 []map[string]any
	Segment2 []map[string]any
}

// Wrapped reports whether buffer 1 filled past the reserved prefix.
func (l RingLog) Wrapped() bool {
	return len(l.Segment1) > ReservedPrefix
}

// Entries returns both segments in logical order.
func (l RingLog) Entries() []map[string]any {
	out := make([]map[string]any, 0, len(l.Segment1)+len(l.Segment2))
	out = append(out, l.Segment1...)
	return append(out, l.Segment2...)
}

// Sequence returns the numbered breadcrumbs of a wrapped log, oldest first.
func (l RingLog) Sequence() ([]Breadcrumb, error) {
	if !l.Wrapped() {
		return nil, nil
	}
	out := make([]Breadcrumb, 0, len(l.Segment1)-ReservedPrefix+len(l.Segment2))
	err := l.walkSequence(func(_ int, bc Breadcrumb) {
		out = append(out, bc)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the log against the ring contract. A wrapped log must
// carry messages "0", "1", ... starting after the reserved prefix of
// segment 1 and continuing through segment 2, each with a valid timestamp.
func (l RingLog) Validate(opts Options) error {
	if l.Wrapped() {
		return l.walkSequence(func(int, Breadcrumb) {})
	}
	return l.validateUnwrapped(opts)
}

// Validate is RingLog{seg1, seg2}.Validate(opts).
func Validate(seg1, seg2 []map[string]any, opts Options) error {
	return RingLog{Segment1: seg1, Segment2: seg2}.Validate(opts)
}

func (l RingLog) walkSequence(fn func(seq int, bc Breadcrumb)) error {
	seq := 0
	check := func(segment, index int, raw map[string]any) error {
		bc, err := Parse(raw)
		if err != nil {
			return &EntryError{Segment: segment, Index: index, Err: err}
		}
		if want := strconv.Itoa(seq); bc.Message != want {
			return &EntryError{
				Segment: segment,
				Index:   index,
				Err:     fmt.Errorf("%w: got %q want %q", ErrSequence, bc.Message, want),
			}
		}
		fn(seq, bc)
		seq++
		return nil
	}
	for i := ReservedPrefix; i < len(l.Segment1); i++ {
		if err := check(1, i, l.Segment1[i]); err != nil {
			return err
		}
	}
	for i, raw := range l.Segment2 {
		if err := check(2, i, raw); err != nil {
			return err
		}
	}
	return nil
}

func (l RingLog) validateUnwrapped(opts Options) error {
	found := opts.Fixed == nil
	for segment, entries := range [][]map[string]any{l.Segment1, l.Segment2} {
		for i, raw := range entries {
			if _, err := ParseTimestamp(raw["timestamp"]); err != nil {
				return &EntryError{Segment: segment + 1, Index: i, Err: err}
			}
			if !found && matches(raw, opts.Fixed) {
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("%w: %v", ErrMissingFixed, opts.Fixed)
	}
	return nil
}

func matches(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
