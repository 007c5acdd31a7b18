package protocol

import (
	"errors"
	"fmt"
)

// Packet level errors. Transport errors are returned unchanged.
var (
	// ErrChecksumMismatch means a received payload failed its checksum. The
	// codec has already answered with a NAK.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrBufferTooSmall means a received payload was larger than the
	// receive buffer. The payload was drained and discarded.
	ErrBufferTooSmall = errors.New("packet larger than receive buffer")

	// ErrInvalidLength means a length byte too small to hold a checksum.
	ErrInvalidLength = errors.New("invalid packet length")

	// ErrNotAcknowledged means the peer answered a packet with anything
	// other than an ACK.
	ErrNotAcknowledged = errors.New("packet not acknowledged")

	// ErrPayloadTooLarge means a payload that cannot be framed in one packet.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidCommand means a command whose payload has the wrong length.
	ErrInvalidCommand = errors.New("invalid command")
)

// Status is the result of the last command, as reported by GetStatus.
type Status byte

// Status codes.
const (
	// StatusSuccess indicates the last command completed
	StatusSuccess Status = 0x40

	// StatusUnknownCommand indicates the command code was not recognised
	StatusUnknownCommand Status = 0x41

	// StatusInvalidCommand indicates the command had the wrong length
	StatusInvalidCommand Status = 0x42

	// StatusInvalidAddress indicates an address or size failed the range
	// check, or more data was sent than the download announced
	StatusInvalidAddress Status = 0x43

	// StatusFlashFail indicates the flash controller reported an error
	StatusFlashFail Status = 0x44
)

// String returns a human-readable name for a status code.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnknownCommand:
		return "unknown command"
	case StatusInvalidCommand:
		return "invalid command"
	case StatusInvalidAddress:
		return "invalid address"
	case StatusFlashFail:
		return "flash failure"
	default:
		return fmt.Sprintf("unknown status code 0x%02X", byte(s))
	}
}

// StatusError is a non-success status reported by the boot loader.
type StatusError struct {
	// Operation is the command that failed
	Operation string

	// Status is the status the boot loader reported
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, e.Status, byte(e.Status))
}

// IsStatusError returns true if err is or wraps a StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
