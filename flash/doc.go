// Package flash provides a page organised NOR flash in memory.
//
// Memory implements the bootloader.Flash collaborator and is what the
// serialboot simulator programs. It behaves like a real flash controller as
// far as the boot loader can observe: erasing sets a page to 0xFF,
// programming can only clear bits, and every misuse raises a sticky error
// flag instead of returning an error.
//
// Basic usage:
//
//	mem, err := flash.New(64*1024, 1024,
//	    flash.WithAppStart(0x2000),
//	    flash.WithReserved(1024),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	coord := bootloader.New(t, mem, boot)
//
// Code protection, where a download always erases the whole application
// area, is enabled by wrapping the memory:
//
//	coord := bootloader.New(t, flash.CodeProtected(mem), boot)
package flash
