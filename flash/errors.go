package flash

import (
	"errors"
	"fmt"
)

// ErrGeometry is returned when a flash size, page size or region boundary
// is not page aligned.
var ErrGeometry = errors.New("invalid flash geometry")

// RangeError is returned when an access falls outside the flash.
type RangeError struct {
	Address uint32
	Length  int
	Size    uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range 0x%08X+%d outside flash of %d bytes", e.Address, e.Length, e.Size)
}

// SizeMismatchError is returned when loading an image whose length differs
// from the flash size.
type SizeMismatchError struct {
	Got, Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("image is %d bytes, flash holds %d", e.Got, e.Want)
}
