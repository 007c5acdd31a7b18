package protocol

import (
	"fmt"

	"github.com/moffa90/go-serialboot/transport"
)

// Codec frames packets over a transport. The same codec runs on both ends
// of the link.
//
// Codec is not safe for concurrent use; the protocol is strictly one request
// at a time.
type Codec struct {
	t    transport.Transport
	one  [1]byte
	sink [MaxPayloadSize]byte
}

// NewCodec returns a codec over t.
func NewCodec(t transport.Transport) *Codec {
	if t == nil {
		panic("protocol: nil transport")
	}
	return &Codec{t: t}
}

// Transport returns the underlying transport.
func (c *Codec) Transport() transport.Transport { return c.t }

// readNonZero blocks until a non-zero byte arrives. Zero bytes are the
// length of control frames, or line noise, and carry no packet.
func (c *Codec) readNonZero() (byte, error) {
	for {
		if err := c.t.Receive(c.one[:]); err != nil {
			return 0, err
		}
		if c.one[0] != ControlLength {
			return c.one[0], nil
		}
	}
}

// ReceivePacket reads one packet into buf and returns the payload.
//
// A packet whose payload does not fit in buf is still read off the wire so
// the stream stays in step, and ErrBufferTooSmall is returned. A checksum
// mismatch is answered with a NAK and reported as ErrChecksumMismatch.
func (c *Codec) ReceivePacket(buf []byte) ([]byte, error) {
	length, err := c.readNonZero()
	if err != nil {
		return nil, err
	}
	if length < PacketOverhead {
		if err := c.Nak(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidLength, length)
	}
	size := int(length) - PacketOverhead

	if err := c.t.Receive(c.one[:]); err != nil {
		return nil, err
	}
	want := c.one[0]

	if size > len(buf) {
		if err := c.t.Receive(c.sink[:size]); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: payload is %d bytes, buffer holds %d", ErrBufferTooSmall, size, len(buf))
	}

	data := buf[:size]
	if err := c.t.Receive(data); err != nil {
		return nil, err
	}
	if got := Checksum(data); got != want {
		if err := c.Nak(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksumMismatch, got, want)
	}
	return data, nil
}

// SendPacket frames payload, sends it and waits for the peer's verdict.
// Zero bytes before the verdict are skipped. Anything but an ACK yields
// ErrNotAcknowledged.
func (c *Codec) SendPacket(payload []byte) error {
	p, err := NewPacket(payload)
	if err != nil {
		return err
	}
	if err := c.t.Send(p.Bytes()); err != nil {
		return err
	}
	if err := c.t.Flush(); err != nil {
		return err
	}

	return c.ReceiveAck()
}

// ReceiveAck waits for the peer's verdict on the last frame sent. Zero
// bytes are skipped; anything but an ACK yields ErrNotAcknowledged.
func (c *Codec) ReceiveAck() error {
	reply, err := c.readNonZero()
	if err != nil {
		return err
	}
	if reply != Ack {
		return fmt.Errorf("%w: got 0x%02X", ErrNotAcknowledged, reply)
	}
	return nil
}

// Ack sends an acknowledge control frame.
func (c *Codec) Ack() error { return c.control(Ack) }

// Nak sends a negative acknowledge control frame.
func (c *Codec) Nak() error { return c.control(Nak) }

func (c *Codec) control(code byte) error {
	if err := c.t.Send([]byte{ControlLength, code}); err != nil {
		return err
	}
	return c.t.Flush()
}
