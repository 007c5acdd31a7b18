package transport

// SyncByte is the autobaud synchronisation byte. The host sends it twice.
const SyncByte = 0x55

// Transport is a blocking byte pipe to the host.
type Transport interface {
	// Send blocks until every byte of p has been accepted by the medium.
	Send(p []byte) error

	// Receive blocks until len(p) bytes have been read into p.
	Receive(p []byte) error

	// Flush blocks until all queued output bytes have left the device.
	Flush() error
}

// Synchronizer is implemented by transports that need a one time
// synchronisation with the host before packets can be exchanged.
type Synchronizer interface {
	Synchronize() error
}

// Disabler is implemented by transports whose peripheral must be shut down
// before control is handed to the application.
type Disabler interface {
	Disable()
}

func disable(v interface{}) {
	if d, ok := v.(Disabler); ok {
		d.Disable()
	}
}
