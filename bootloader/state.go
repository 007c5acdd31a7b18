package bootloader

import "github.com/moffa90/go-serialboot/protocol"

// NoTransfer is the transfer address while no download is in progress. It
// can never be a valid cursor, so Send Data cannot touch flash, and in
// particular cannot erase the boot loader, before a Download has succeeded.
const NoTransfer uint32 = 0xFFFFFFFF

// TransferState is everything the boot loader remembers between packets.
type TransferState struct {
	// Status is the result of the last command.
	Status protocol.Status

	// TransferAddress is the flash write cursor, or NoTransfer.
	TransferAddress uint32

	// TransferSize is the number of image bytes still expected. It is
	// forced to zero on any unrecoverable error.
	TransferSize uint32

	// ImageSize is the announced image size. It is only kept when a
	// progress hook is configured.
	ImageSize    uint32
	HasImageSize bool

	// bootErased records that the boot loader region has been erased for
	// the current download.
	bootErased bool
}

// NewTransferState returns the state at boot loader entry.
func NewTransferState() TransferState {
	return TransferState{
		Status:          protocol.StatusSuccess,
		TransferAddress: NoTransfer,
	}
}

// Downloading reports whether a download is accepting data.
func (s TransferState) Downloading() bool {
	return s.TransferAddress != NoTransfer && s.TransferSize > 0
}

// Idle reports whether no download is in progress.
func (s TransferState) Idle() bool { return !s.Downloading() }

// BootRegionErased reports whether the current download has already erased
// the boot loader region.
func (s TransferState) BootRegionErased() bool { return s.bootErased }

// abort drops the current download.
func (s *TransferState) abort() {
	s.TransferAddress = NoTransfer
	s.TransferSize = 0
	s.ImageSize = 0
	s.HasImageSize = false
	s.bootErased = false
}
