package bootloader

import (
	"errors"
	"fmt"
)

// ErrReset is returned by Serve after a Reset command.
var ErrReset = errors.New("bootloader: system reset")

// ErrRun is matched by the error Serve returns after a Run command.
var ErrRun = errors.New("bootloader: control transferred to application")

// HandoffError is returned by Serve once control has been handed to the
// application. On hardware it is never observed.
type HandoffError struct {
	Address uint32
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("bootloader: control transferred to application at 0x%08X", e.Address)
}

// Unwrap lets errors.Is(err, ErrRun) match.
func (e *HandoffError) Unwrap() error { return ErrRun }
