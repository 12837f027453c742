package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestStoreAddAssignsSequence(t *testing.T) {
	testlog.Start(t)
	s := NewStore(2)
	for i := 0; i < 3; i++ {
		s.Add(Request{Kind: KindEnvelope, Body: []byte{byte(i)}})
	}
	all := s.All()
	if len(all) != 2 || all[0].Seq != 2 || all[1].Seq != 3 {
		t.Fatalf("unexpected stored requests: %+v", all)
	}
	if _, err := s.Get(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected evicted request to be gone, got %v", err)
	}
	r, err := s.Get(3)
	if err != nil || r.Size != 1 || r.ReceivedAt.IsZero() {
		t.Fatalf("unexpected request %+v err=%v", r, err)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("clear left %d requests", s.Len())
	}
	if r := s.Add(Request{}); r.Seq != 4 {
		t.Fatalf("sequence reused after clear: %d", r.Seq)
	}
}

func TestStoreWait(t *testing.T) {
	testlog.Start(t)
	s := NewStore(0)
	done := make(chan []Request, 1)
	go func() {
		reqs, err := s.Wait(context.Background(), 2)
		if err != nil {
			t.Errorf("wait: %v", err)
		}
		done <- reqs
	}()

	s.Add(Request{Kind: KindEnvelope})
	s.Add(Request{Kind: KindMinidump})

	select {
	case reqs := <-done:
		if len(reqs) != 2 || reqs[1].Kind != KindMinidump {
			t.Fatalf("unexpected requests: %+v", reqs)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not return")
	}
}

func TestStoreWaitHonorsContext(t *testing.T) {
	testlog.Start(t)
	s := NewStore(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
