package updater

import (
	"errors"
	"fmt"
)

// ErrNilImage is returned by Program when no image is given.
var ErrNilImage = errors.New("image cannot be nil")

// RetryError indicates that a packet was rejected on every attempt.
type RetryError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// TransferError indicates that sending image data failed at Offset.
type TransferError struct {
	Address uint32
	Offset  int
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed at 0x%08X (offset %d): %v", e.Address, e.Offset, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
