package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

var ErrInvalidMinidump = errors.New("protocol: invalid minidump")

// ValidateMinidump checks that b starts with the minidump magic. Decoders
// keep malformed minidumps as-is; callers decide whether this is fatal.
func ValidateMinidump(b []byte) error {
	if len(b) < len(MinidumpMagic) {
		return fmt.Errorf("%w: %d bytes", ErrInvalidMinidump, len(b))
	}
	if !bytes.HasPrefix(b, MinidumpMagic) {
		return fmt.Errorf("%w: magic %q", ErrInvalidMinidump, b[:len(MinidumpMagic)])
	}
	return nil
}
