// Package transport provides the byte-level media the boot loader speaks over.
//
// Every medium implements the same blocking contract:
//
//	Send(p)    blocks until every byte of p has been accepted by the medium
//	Receive(p) blocks until len(p) bytes have been captured into p
//	Flush()    blocks until all queued output has left the device
//
// There is no timeout and no cancellation at this layer. The register-level
// variants (I2CSlave, SPISlave, UART) busy-wait on hardware ready flags exposed
// through small register interfaces and never fail. Stream adapts any
// io.ReadWriter (serial port, TCP connection, pipe) and reports the
// underlying I/O error instead.
//
// # Autobaud
//
// A UART built with NewAutobaudUART cannot carry packets until the host has
// sent the two byte synchronisation pattern 0x55 0x55. Such transports
// implement Synchronizer; the boot loader calls Synchronize once before
// serving and acknowledges the sync immediately afterwards.
package transport
