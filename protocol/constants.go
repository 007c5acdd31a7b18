package protocol

// Frame structure constants.
const (
	// ControlLength is the length byte of an ACK/NAK control frame. A data
	// packet always announces at least PacketOverhead, so a zero length byte
	// is never the start of a data packet and receivers skip it.
	ControlLength = 0x00

	// PacketOverhead is the number of framing bytes counted by the length
	// byte: the length byte itself and the checksum byte.
	PacketOverhead = 2

	// MaxPacketSize is the largest value the length byte can announce.
	MaxPacketSize = 0xFF

	// MaxPayloadSize is the largest payload a single packet can carry.
	MaxPayloadSize = MaxPacketSize - PacketOverhead
)

// Control codes carried in the second byte of a control frame.
const (
	// Ack acknowledges receipt of a packet. It does not mean the command
	// succeeded; that is only visible through GetStatus.
	Ack = 0xCC

	// Nak reports a checksum failure; the sender should retransmit.
	Nak = 0x33
)

// Command codes, sent as the first payload byte.
const (
	// CmdPing checks that the boot loader is alive
	CmdPing = 0x20

	// CmdDownload starts a download: [CMD][ADDR(4)][SIZE(4)]
	CmdDownload = 0x21

	// CmdRun transfers control to the application: [CMD][ADDR(4)]
	CmdRun = 0x22

	// CmdGetStatus requests the result of the last command
	CmdGetStatus = 0x23

	// CmdSendData carries image bytes for the current download
	CmdSendData = 0x24

	// CmdReset resets the device
	CmdReset = 0x25
)

// Command payload sizes, including the command byte.
const (
	// WordSize is the size of an address or size argument on the wire
	WordSize = 4

	// DownloadCmdSize is [CMD][ADDR(4)][SIZE(4)]
	DownloadCmdSize = 1 + 2*WordSize

	// RunCmdSize is [CMD][ADDR(4)]
	RunCmdSize = 1 + WordSize

	// MaxSendDataSize is the largest image chunk one SendData packet carries
	MaxSendDataSize = MaxPayloadSize - 1
)
