package bootloader

import (
	"encoding/binary"

	"github.com/moffa90/go-serialboot/protocol"
)

// DefaultAppStart is the default first address of the application. Flash
// below it holds the boot loader.
const DefaultAppStart = 0x2000

// Config holds the boot loader configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Hooks are the optional download callbacks
	Hooks Hooks

	// AppStart is the first application address; [0, AppStart) is the
	// boot loader itself
	AppStart uint32

	// BufferSize is the largest packet payload accepted
	BufferSize int

	// ByteOrder is the wire order of address and size words
	ByteOrder binary.ByteOrder
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		AppStart:   DefaultAppStart,
		BufferSize: protocol.MaxPayloadSize,
		ByteOrder:  protocol.DefaultByteOrder,
	}
}

// Option is a functional option for configuring the Coordinator.
type Option func(*Config)

// WithLogger sets a logger for boot loader operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithHooks sets all download hooks at once.
func WithHooks(h Hooks) Option {
	return func(c *Config) {
		c.Hooks = h
	}
}

// WithDecryptHook sets the payload decryption hook.
func WithDecryptHook(fn func([]byte) []byte) Option {
	return func(c *Config) {
		c.Hooks.Decrypt = fn
	}
}

// WithStartHook sets the hook called when a download starts.
func WithStartHook(fn func()) Option {
	return func(c *Config) {
		c.Hooks.OnStart = fn
	}
}

// WithProgressHook sets the hook called after every programmed chunk.
//
// Example:
//
//	coord := bootloader.New(t, flash, boot,
//	    bootloader.WithProgressHook(func(done, total uint32) {
//	        fmt.Printf("%d/%d\n", done, total)
//	    }),
//	)
func WithProgressHook(fn func(done, total uint32)) Option {
	return func(c *Config) {
		c.Hooks.OnProgress = fn
	}
}

// WithEndHook sets the hook called when a download completes.
func WithEndHook(fn func()) Option {
	return func(c *Config) {
		c.Hooks.OnEnd = fn
	}
}

// WithAppStart sets the first application address.
func WithAppStart(addr uint32) Option {
	return func(c *Config) {
		c.AppStart = addr
	}
}

// WithBufferSize sets the receive buffer size. Values outside
// 1..protocol.MaxPayloadSize are ignored.
//
// Packets that do not fit are dropped without a reply, so the buffer must
// hold the host's largest Send Data chunk plus the command code byte.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxPayloadSize {
			c.BufferSize = size
		}
	}
}

// WithByteOrder sets the wire order of address and size words.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *Config) {
		if order != nil {
			c.ByteOrder = order
		}
	}
}
