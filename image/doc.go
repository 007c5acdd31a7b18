// Package image loads firmware images for upload.
//
// An Image is one contiguous run of bytes and the flash address it is to be
// written at, which is exactly what a single Download announces. Two input
// formats are supported:
//
//   - Raw binary (.bin), for which the load address is supplied by the caller
//   - Intel HEX (.hex, .ihex), which carries its own addresses
//
// Intel HEX files may describe several disjoint regions; they are flattened
// into one image with the gaps filled with 0xFF, the value of erased flash.
//
// Example:
//
//	img, err := image.Load("app.hex", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes at 0x%08X\n", img.Len(), img.Address)
package image
