package protocol

import (
	"encoding/binary"
	"fmt"
)

// ParseCommand decodes a received payload. Address and size words are
// converted from the wire order exactly once, here. A nil order selects
// DefaultByteOrder.
//
// An empty payload or unrecognised first byte yields Unknown. Download and
// Run with the wrong payload length fail with ErrInvalidCommand.
func ParseCommand(data []byte, order binary.ByteOrder) (Command, error) {
	if len(data) == 0 {
		return Unknown{}, nil
	}
	order = orDefault(order)

	switch data[0] {
	case CmdPing:
		return Ping{}, nil

	case CmdDownload:
		if len(data) != DownloadCmdSize {
			return nil, fmt.Errorf("%w: download is %d bytes, want %d", ErrInvalidCommand, len(data), DownloadCmdSize)
		}
		return Download{
			Address: order.Uint32(data[1:5]),
			Size:    order.Uint32(data[5:9]),
		}, nil

	case CmdRun:
		if len(data) != RunCmdSize {
			return nil, fmt.Errorf("%w: run is %d bytes, want %d", ErrInvalidCommand, len(data), RunCmdSize)
		}
		return Run{Address: order.Uint32(data[1:5])}, nil

	case CmdGetStatus:
		return GetStatus{}, nil

	case CmdSendData:
		return SendData{Payload: data[1:]}, nil

	case CmdReset:
		return Reset{}, nil

	default:
		return Unknown{Command: data[0]}, nil
	}
}

// ParseStatusResponse parses the packet sent in reply to Get Status.
//
// Data format (1 byte):
//
//	[STATUS]
func ParseStatusResponse(data []byte) (Status, error) {
	if len(data) != 1 {
		return 0, fmt.Errorf("invalid data length for Get Status response: got %d bytes, expected 1", len(data))
	}
	return Status(data[0]), nil
}
