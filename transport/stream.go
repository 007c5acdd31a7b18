package transport

import (
	"fmt"
	"io"
)

// Stream carries packets over an io.ReadWriter.
//
// If the underlying writer has a Flush() error method (bufio.Writer for
// example) Stream.Flush calls it; otherwise writes are assumed to be on the
// wire once Write returns.
type Stream struct {
	rw io.ReadWriter
}

// NewStream wraps rw.
func NewStream(rw io.ReadWriter) *Stream {
	if rw == nil {
		panic("transport: nil stream")
	}
	return &Stream{rw: rw}
}

// Send writes p in full.
func (s *Stream) Send(p []byte) error {
	n, err := s.rw.Write(p)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("send: %w", io.ErrShortWrite)
	}
	return nil
}

// Receive reads exactly len(p) bytes.
func (s *Stream) Receive(p []byte) error {
	if _, err := io.ReadFull(s.rw, p); err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}

// Flush drains buffered output if the writer supports it.
func (s *Stream) Flush() error {
	if f, ok := s.rw.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

// Disable closes the stream if it is an io.Closer.
func (s *Stream) Disable() {
	if c, ok := s.rw.(io.Closer); ok {
		_ = c.Close()
	}
}

// SyncStream is a Stream that waits for the autobaud pattern before use.
// It stands in for a UART autobaud on media whose speed is already fixed,
// so that hosts which always send the sync pattern keep working.
type SyncStream struct {
	*Stream
}

// NewSyncStream wraps rw and requires the host to send the sync pattern.
func NewSyncStream(rw io.ReadWriter) *SyncStream {
	return &SyncStream{Stream: NewStream(rw)}
}

// Synchronize discards input until two consecutive SyncByte values arrive.
func (s *SyncStream) Synchronize() error {
	var b [1]byte
	seen := 0
	for seen < 2 {
		if err := s.Receive(b[:]); err != nil {
			return fmt.Errorf("synchronize: %w", err)
		}
		if b[0] == SyncByte {
			seen++
		} else {
			seen = 0
		}
	}
	return nil
}
