package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
	"github.com/danmuck/envelopectl/internal/protocol/crashupload"
	"github.com/danmuck/envelopectl/internal/protocol/envelope"
)

// Request kinds, named after the ingest endpoint that received them.
const (
	KindEnvelope = "envelope"
	KindMinidump = "minidump"
)

var ErrNotFound = errors.New("capture: request not found")

// Request is one recorded ingest request. Body is kept as received,
// still content-encoded.
type Request struct {
	Seq             int       `json:"seq" yaml:"seq"`
	Kind            string    `json:"kind" yaml:"kind"`
	Project         string    `json:"project" yaml:"project"`
	ContentType     string    `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ContentEncoding string    `json:"content_encoding,omitempty" yaml:"content_encoding,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Size            int       `json:"size" yaml:"size"`
	ReceivedAt      time.Time `json:"received_at" yaml:"received_at"`
	Body            []byte    `json:"-" yaml:"-"`
}

// Envelope inflates and decodes the body as an envelope.
func (r Request) Envelope(limits envelope.Limits, maxInflated int64) (*envelope.Envelope, error) {
	body, err := contentenc.DecodeLimit(r.Body, r.ContentEncoding, maxInflated)
	if err != nil {
		return nil, err
	}
	return envelope.Decode(bytes.NewReader(body), limits)
}

// CrashBundle inflates, at most maxInflated bytes, and decodes the body as
// a crash upload.
func (r Request) CrashBundle(maxInflated int64) (*crashupload.Bundle, error) {
	return crashupload.DecodeRequestLimit(r.ContentType, r.ContentEncoding, r.Body, maxInflated)
}

// Store keeps captured requests in arrival order. When full, the oldest
// request is dropped; sequence numbers keep counting.
type Store struct {
	mu      sync.Mutex
	max     int
	seq     int
	total   int
	reqs    []Request
	changed chan struct{}
}

// NewStore returns a store holding at most max requests. Zero means no cap.
func NewStore(max int) *Store {
	return &Store{max: max, changed: make(chan struct{})}
}

// Add assigns the next sequence number to r and records it.
func (s *Store) Add(r Request) Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.total++
	r.Seq = s.seq
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now()
	}
	r.Size = len(r.Body)
	s.reqs = append(s.reqs, r)
	if s.max > 0 && len(s.reqs) > s.max {
		s.reqs = append(s.reqs[:0:0], s.reqs[len(s.reqs)-s.max:]...)
	}
	s.notifyLocked()
	return r
}

func (s *Store) All() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.reqs...)
}

func (s *Store) Get(seq int) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.Seq == seq {
			return r, nil
		}
	}
	return Request{}, ErrNotFound
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

// Clear drops every stored request. Sequence numbers are not reused.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = nil
	s.total = 0
	s.notifyLocked()
}

// Wait blocks until at least n requests have been captured since the last
// Clear, then returns the stored requests.
func (s *Store) Wait(ctx context.Context, n int) ([]Request, error) {
	for {
		s.mu.Lock()
		if s.total >= n {
			out := append([]Request(nil), s.reqs...)
			s.mu.Unlock()
			return out, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
