package protocol

import "fmt"

// Packet is one framed data packet:
//
//	[LENGTH][CHECKSUM][DATA...]
//
// LENGTH counts the two framing bytes plus the data.
type Packet struct {
	Length   byte
	Checksum byte
	Data     []byte
}

// NewPacket frames data. It fails if data does not fit in one packet.
func NewPacket(data []byte) (*Packet, error) {
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, maximum is %d", ErrPayloadTooLarge, len(data), MaxPayloadSize)
	}
	return &Packet{
		Length:   byte(len(data) + PacketOverhead),
		Checksum: Checksum(data),
		Data:     data,
	}, nil
}

// Valid reports whether the length and checksum fields match the data.
func (p *Packet) Valid() bool {
	return int(p.Length) == len(p.Data)+PacketOverhead && p.Checksum == Checksum(p.Data)
}

// Bytes returns the encoded frame.
func (p *Packet) Bytes() []byte {
	b := make([]byte, 0, len(p.Data)+PacketOverhead)
	b = append(b, p.Length, p.Checksum)
	return append(b, p.Data...)
}
