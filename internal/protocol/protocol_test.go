package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestValidateMinidump(t *testing.T) {
	testlog.Start(t)
	if err := ValidateMinidump([]byte("MDMP\x93\xa7\x00\x00")); err != nil {
		t.Fatalf("expected valid minidump, got %v", err)
	}
	if err := ValidateMinidump([]byte("MDM")); !errors.Is(err, ErrInvalidMinidump) {
		t.Fatalf("expected ErrInvalidMinidump for short blob, got %v", err)
	}
	if err := ValidateMinidump([]byte("PMDM....")); !errors.Is(err, ErrInvalidMinidump) {
		t.Fatalf("expected ErrInvalidMinidump for bad magic, got %v", err)
	}
}

func TestIsJSONType(t *testing.T) {
	testlog.Start(t)
	for _, typ := range []string{ItemEvent, ItemSession} {
		if !IsJSONType(typ) {
			t.Fatalf("expected %q to carry json", typ)
		}
	}
	for _, typ := range []string{ItemAttachment, ItemUserReport, ItemTransaction, ""} {
		if IsJSONType(typ) {
			t.Fatalf("expected %q to carry bytes", typ)
		}
	}
}

func TestIsMinidump(t *testing.T) {
	testlog.Start(t)
	if !IsMinidump(ItemAttachment, AttachmentMinidump) {
		t.Fatalf("expected minidump predicate to match")
	}
	if IsMinidump(ItemEvent, AttachmentMinidump) || IsMinidump(ItemAttachment, AttachmentDefault) {
		t.Fatalf("unexpected minidump predicate match")
	}
}
