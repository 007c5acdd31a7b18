package bootloader

// Hooks are optional callbacks invoked at fixed points of a download. None
// of them takes part in the protocol; a nil hook is skipped.
//
// Example:
//
//	coord := bootloader.New(t, flash, boot,
//	    bootloader.WithHooks(bootloader.Hooks{
//	        OnProgress: func(done, total uint32) {
//	            led.Blink(done * 100 / total)
//	        },
//	    }),
//	)
type Hooks struct {
	// Decrypt transforms each Send Data payload before it is programmed.
	// It may work in place and must return the plaintext.
	Decrypt func(data []byte) []byte

	// OnStart is called once a Download has been accepted and its flash
	// range erased. A Download of zero bytes calls neither OnStart nor
	// OnEnd.
	OnStart func()

	// OnProgress is called after every programmed chunk with the number of
	// bytes written so far and the announced image size.
	OnProgress func(done, total uint32)

	// OnEnd is called when the last byte of the image has been programmed.
	OnEnd func()
}

// Logger is an optional logging interface that can be provided to the boot
// loader. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	coord := bootloader.New(t, flash, boot, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
