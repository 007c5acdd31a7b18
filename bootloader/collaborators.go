package bootloader

// Flash is the flash controller as seen by the boot loader.
//
// Erase and program report failures through a sticky error flag rather than
// a return value, the way flash controllers do: the boot loader clears the
// flag, performs a batch of operations and then checks it once.
type Flash interface {
	// ErasePage erases the page containing addr.
	ErasePage(addr uint32)

	// Program writes data starting at addr. The range must be erased.
	Program(addr uint32, data []byte)

	// HasError reports whether an erase or program failed since the last
	// ClearError.
	HasError() bool

	ClearError()

	// Size returns the size of the flash in bytes.
	Size() uint32

	// PageSize returns the erase granularity in bytes.
	PageSize() uint32

	// AddressRangeValid reports whether an image of size bytes may be
	// downloaded to addr.
	AddressRangeValid(addr, size uint32) bool
}

// ErasePlanner may be implemented by a Flash to choose which pages a
// download erases, for example the whole application area when the part
// runs with code protection. The returned range is [start, end).
type ErasePlanner interface {
	EraseRange(addr, size uint32) (start, end uint32)
}

// Bootstrap performs the two operations that leave the boot loader. On
// hardware neither returns.
type Bootstrap interface {
	// JumpTo transfers control to the code at addr.
	JumpTo(addr uint32)

	// SystemReset resets the device.
	SystemReset()
}
