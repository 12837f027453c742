package envelope

import (
	"errors"
	"fmt"
)

var (
	ErrFormat           = errors.New("envelope: malformed header line")
	ErrTruncatedPayload = errors.New("envelope: truncated payload")
	ErrPayloadDecode    = errors.New("envelope: payload is not valid json")
	ErrLengthMismatch   = errors.New("envelope: item length does not match payload")
	ErrHeaderTooLarge   = errors.New("envelope: header line too large")
	ErrItemTooLarge     = errors.New("envelope: item payload too large")
)

// ItemError ties a decode or encode failure to the item that caused it.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("envelope: item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
