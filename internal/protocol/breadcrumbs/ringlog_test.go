package breadcrumbs

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func crumb(msg string, ts time.Time) map[string]any {
	return map[string]any{
		"message":   msg,
		"timestamp": ts.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// overflowLog records total numbered breadcrumbs behind a reserved prefix
// into a two-buffer log whose first buffer holds capacity entries.
func overflowLog(total, capacity int) RingLog {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var seg1, seg2 []map[string]any
	for i := 0; i < ReservedPrefix; i++ {
		seg1 = append(seg1, crumb("fixture "+strconv.Itoa(i), base))
	}
	for i := 0; i < total; i++ {
		c := crumb(strconv.Itoa(i), base.Add(time.Duration(i)*time.Millisecond))
		if len(seg1) < capacity {
			seg1 = append(seg1, c)
		} else {
			seg2 = append(seg2, c)
		}
	}
	return RingLog{Segment1: seg1, Segment2: seg2}
}

func TestValidateOverflowingLog(t *testing.T) {
	testlog.Start(t)
	log := overflowLog(101, 100)
	if len(log.Segment1) != 100 || len(log.Segment2) != 4 {
		t.Fatalf("unexpected fixture shape: %d/%d", len(log.Segment1), len(log.Segment2))
	}
	if log.Segment1[3]["message"] != "0" || log.Segment1[99]["message"] != "96" {
		t.Fatalf("unexpected segment 1 bounds: %v..%v", log.Segment1[3]["message"], log.Segment1[99]["message"])
	}
	if log.Segment2[0]["message"] != "97" || log.Segment2[3]["message"] != "100" {
		t.Fatalf("unexpected segment 2 bounds: %v..%v", log.Segment2[0]["message"], log.Segment2[3]["message"])
	}
	if !log.Wrapped() {
		t.Fatalf("expected wrapped log")
	}
	if err := log.Validate(DefaultOptions()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	seq, err := log.Sequence()
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	if len(seq) != 101 || seq[100].Message != "100" || seq[100].Timestamp.IsZero() {
		t.Fatalf("unexpected sequence tail: len=%d last=%+v", len(seq), seq[len(seq)-1])
	}
}

func TestValidateDetectsSequenceGap(t *testing.T) {
	testlog.Start(t)
	log := overflowLog(101, 100)
	log.Segment2[1]["message"] = "99"

	err := log.Validate(DefaultOptions())
	if !errors.Is(err, ErrSequence) {
		t.Fatalf("expected ErrSequence, got %v", err)
	}
	var entry *EntryError
	if !errors.As(err, &entry) || entry.Segment != 2 || entry.Index != 1 {
		t.Fatalf("expected segment 2 index 1, got %v", err)
	}
}

func TestValidateDetectsBadTimestamp(t *testing.T) {
	testlog.Start(t)
	log := overflowLog(20, 10)
	log.Segment1[5]["timestamp"] = "yesterday"

	err := log.Validate(DefaultOptions())
	if !errors.Is(err, ErrTimestamp) {
		t.Fatalf("expected ErrTimestamp, got %v", err)
	}
	var entry *EntryError
	if !errors.As(err, &entry) || entry.Segment != 1 || entry.Index != 5 {
		t.Fatalf("expected segment 1 index 5, got %v", err)
	}
}

func TestValidateUnwrappedLog(t *testing.T) {
	testlog.Start(t)
	now := time.Now()
	fixed := DebugCrumb()
	fixed["timestamp"] = now.UTC().Format(time.RFC3339Nano)
	seg1 := []map[string]any{crumb("started", now), fixed}

	if err := Validate(seg1, nil, DefaultOptions()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate(seg1[:1], nil, DefaultOptions()); !errors.Is(err, ErrMissingFixed) {
		t.Fatalf("expected ErrMissingFixed, got %v", err)
	}
	if err := Validate(seg1[:1], nil, Options{}); err != nil {
		t.Fatalf("nil fixed should skip the check: %v", err)
	}
	if log := (RingLog{Segment1: seg1}); log.Wrapped() {
		t.Fatalf("two entries must not count as wrapped")
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	testlog.Start(t)
	for _, in := range []any{
		"2024-03-01T12:00:00Z",
		"2024-03-01T12:00:00.123456Z",
		"2024-03-01T12:00:00.123+02:00",
		"2024-03-01T12:00:00.123",
		time.Unix(1700000000, 0),
	} {
		if _, err := ParseTimestamp(in); err != nil {
			t.Fatalf("%v: %v", in, err)
		}
	}
	for _, in := range []any{nil, "", "03/01/2024", 1700000000} {
		if _, err := ParseTimestamp(in); !errors.Is(err, ErrTimestamp) {
			t.Fatalf("%v: expected ErrTimestamp, got %v", in, err)
		}
	}
}

func TestEntriesKeepsLogicalOrder(t *testing.T) {
	testlog.Start(t)
	log := overflowLog(5, 6)
	entries := log.Entries()
	if len(entries) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(entries))
	}
	if entries[3]["message"] != "0" || entries[7]["message"] != "4" {
		t.Fatalf("unexpected order: %v .. %v", entries[3]["message"], entries[7]["message"])
	}
}
