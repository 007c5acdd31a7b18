package updater

import (
	"encoding/binary"

	"github.com/moffa90/go-serialboot/protocol"
)

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called during programming to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ChunkSize is the maximum data size per Send Data command
	ChunkSize int

	// Retries is the number of times a NAKed packet is sent again
	Retries int

	// VerifyEachChunk queries the status after every Send Data command
	VerifyEachChunk bool

	// Autobaud sends the sync pattern before the first command
	Autobaud bool

	// Run starts the application at RunAddress after programming
	Run        bool
	RunAddress uint32

	// ByteOrder is the wire order of address and size words
	ByteOrder binary.ByteOrder
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ChunkSize:       protocol.MaxSendDataSize,
		Retries:         3,
		VerifyEachChunk: true,
		ByteOrder:       protocol.DefaultByteOrder,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track programming progress.
//
// Example:
//
//	prog := updater.New(t,
//	    updater.WithProgressCallback(func(p updater.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := updater.New(t, updater.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithChunkSize sets the maximum data size per Send Data command.
// Values outside 1..protocol.MaxSendDataSize are ignored. The boot loader's
// receive buffer must hold one more byte than the chunk for the command
// code; a boot loader drops larger packets without a reply and the
// programmer then waits for an ACK that never comes.
//
// Example:
//
//	prog := updater.New(t, updater.WithChunkSize(64))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxSendDataSize {
			c.ChunkSize = size
		}
	}
}

// WithRetries sets the number of retry attempts for NAKed packets.
//
// Example:
//
//	prog := updater.New(t, updater.WithRetries(5))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithVerifyEachChunk enables or disables the status query after every
// Send Data command. Default is true.
func WithVerifyEachChunk(verify bool) Option {
	return func(c *Config) {
		c.VerifyEachChunk = verify
	}
}

// WithAutobaud makes Connect send the UART sync pattern first.
func WithAutobaud(enabled bool) Option {
	return func(c *Config) {
		c.Autobaud = enabled
	}
}

// WithRun starts the application at addr once programming succeeded.
//
// Example:
//
//	prog := updater.New(t, updater.WithRun(0x2000))
func WithRun(addr uint32) Option {
	return func(c *Config) {
		c.Run = true
		c.RunAddress = addr
	}
}

// WithByteOrder sets the wire order of address and size words. It must
// match the boot loader.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *Config) {
		if order != nil {
			c.ByteOrder = order
		}
	}
}
