package protocol

import (
	"encoding/binary"
	"fmt"
)

// DefaultByteOrder is the order of address and size words on the wire.
var DefaultByteOrder binary.ByteOrder = binary.BigEndian

func orDefault(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return DefaultByteOrder
	}
	return order
}

// BuildPingCmd constructs a Ping command payload.
//
//	[CMD_PING]
func BuildPingCmd() []byte {
	return []byte{CmdPing}
}

// BuildDownloadCmd constructs a Download command payload announcing size
// bytes to be written at address. A nil order selects DefaultByteOrder.
//
//	[CMD_DOWNLOAD][ADDR(4)][SIZE(4)]
func BuildDownloadCmd(address, size uint32, order binary.ByteOrder) []byte {
	order = orDefault(order)
	cmd := make([]byte, DownloadCmdSize)
	cmd[0] = CmdDownload
	order.PutUint32(cmd[1:5], address)
	order.PutUint32(cmd[5:9], size)
	return cmd
}

// BuildRunCmd constructs a Run command payload.
//
//	[CMD_RUN][ADDR(4)]
func BuildRunCmd(address uint32, order binary.ByteOrder) []byte {
	cmd := make([]byte, RunCmdSize)
	cmd[0] = CmdRun
	orDefault(order).PutUint32(cmd[1:5], address)
	return cmd
}

// BuildGetStatusCmd constructs a Get Status command payload.
//
//	[CMD_GET_STATUS]
func BuildGetStatusCmd() []byte {
	return []byte{CmdGetStatus}
}

// BuildSendDataCmd constructs a Send Data command payload.
//
//	[CMD_SEND_DATA][DATA...]
//
// The data must fit in a single packet alongside the command byte.
func BuildSendDataCmd(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}
	if len(data) > MaxSendDataSize {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(data), MaxSendDataSize)
	}
	cmd := make([]byte, 0, 1+len(data))
	cmd = append(cmd, CmdSendData)
	return append(cmd, data...), nil
}

// BuildResetCmd constructs a Reset command payload.
//
//	[CMD_RESET]
func BuildResetCmd() []byte {
	return []byte{CmdReset}
}
