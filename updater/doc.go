// Package updater is the host side of the serial boot loader protocol.
//
// A Programmer sends an image to a device running the boot loader:
//
//	img, err := image.Load("app.bin", 0x2000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prog := updater.New(transport.NewStream(port),
//	    updater.WithChunkSize(128),
//	    updater.WithRun(img.Address),
//	)
//	if err := prog.Program(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//
// Individual commands (Ping, Download, SendData, GetStatus, Run, Reset) are
// available for custom sequences. Every command is retried while the device
// answers with a NAK; failures the device reports through its status are
// returned as *protocol.StatusError.
package updater
