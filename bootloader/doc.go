// Package bootloader implements the device side of the serial boot loader:
// the command loop that receives an application image from a host and
// programs it into flash.
//
// # Overview
//
// A Coordinator serves one transport. For every packet it receives it runs
// exactly one command and acknowledges it:
//   - Ping: liveness check
//   - Download: validate and erase the target range, arm a transfer
//   - Send Data: program the next chunk at the transfer cursor
//   - Get Status: report the result of the last command
//   - Run: hand control to the application
//   - Reset: reset the device
//
// An ACK only confirms that the packet arrived intact. Whether the command
// worked is reported by Get Status, or shows when later Send Data packets are
// rejected because a failed Download left nothing to receive.
//
// # Basic Usage
//
//	t := transport.NewI2CSlave(i2cRegs)
//	coord := bootloader.New(t, flashCtl, bootstrap)
//	err := coord.Serve() // returns only after Run/Reset in simulation
//
// # Collaborators
//
// Flash hides the flash controller (erase, program, sticky error flag, range
// check). Bootstrap hides the two non-returning operations: jumping to the
// application and resetting the device. Both are injected so the same loop
// runs on hardware and against the in-memory flash of package flash.
//
// # Protecting the boot loader
//
// Flash below AppStart holds the boot loader. A Download always leaves it in
// place. When the image targets address 0, the boot loader pages are erased
// by the first Send Data of that download, once, just before the new code is
// written.
//
// # Hooks
//
// Optional hooks can decrypt payloads and observe the start, progress and end
// of a download:
//
//	coord := bootloader.New(t, flashCtl, bootstrap,
//	    bootloader.WithDecryptHook(aesCTR.Decrypt),
//	    bootloader.WithEndHook(markImageValid),
//	)
package bootloader
