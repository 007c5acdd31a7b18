// Package protocol implements the serial boot loader wire protocol.
//
// # Framing
//
// Requests and replies travel as checksummed, length-prefixed packets:
//
//	Data packet:   [LENGTH][CHECKSUM][PAYLOAD...]
//	Control frame: [0x00][ACK|NAK]
//
// Where:
//   - LENGTH = len(PAYLOAD) + 2; it counts itself and the checksum byte
//   - CHECKSUM = sum of the payload bytes, modulo 256
//   - ACK = 0xCC, NAK = 0x33
//
// A receiver skips every zero byte where it expects a length, so control
// frames and idle-line zeros never look like data packets.
//
// # Exchange
//
// Every packet is answered with a control frame. An ACK confirms receipt of
// a well formed packet, not success of the command it carried; the result
// of the last command is read back with Get Status:
//
//	codec := protocol.NewCodec(transport.NewStream(port))
//	if err := codec.SendPacket(protocol.BuildGetStatusCmd()); err != nil {
//	    return err
//	}
//	reply, err := codec.ReceivePacket(buf)
//	if err != nil {
//	    return err
//	}
//	if err := codec.Ack(); err != nil {
//	    return err
//	}
//	status, err := protocol.ParseStatusResponse(reply)
//
// # Commands
//
// The first payload byte selects the command:
//
//	Ping        [0x20]
//	Download    [0x21][ADDR(4)][SIZE(4)]
//	Run         [0x22][ADDR(4)]
//	Get Status  [0x23]
//	Send Data   [0x24][DATA...]
//	Reset       [0x25]
//
// Address and size words are big-endian on the wire by default. The order
// is configurable and is applied once, by ParseCommand on the device and
// the Build* functions on the host.
package protocol
