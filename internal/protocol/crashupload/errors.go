package crashupload

import (
	"errors"
	"fmt"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/contentenc"
)

var (
	ErrCompression     = contentenc.ErrCompression
	ErrMultipartFormat = errors.New("crashupload: malformed multipart body")
	ErrPartDecode      = errors.New("crashupload: part decode failed")
	ErrInvalidMinidump = protocol.ErrInvalidMinidump
)

// PartError ties a decode failure to the part that caused it.
type PartError struct {
	Kind     PartKind
	Filename string
	Err      error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("crashupload: %s part %q: %v", e.Kind, e.Filename, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}
