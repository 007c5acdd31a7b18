package protocol

// Command is a parsed request. The concrete types are Ping, Download, Run,
// GetStatus, SendData, Reset and Unknown.
type Command interface {
	// Code returns the command byte.
	Code() byte

	command()
}

// Ping checks that the boot loader is alive.
type Ping struct{}

// Download announces an image of Size bytes to be written at Address.
type Download struct {
	Address uint32
	Size    uint32
}

// Run transfers control to the code at Address.
type Run struct {
	Address uint32
}

// GetStatus asks for the status of the last command.
type GetStatus struct{}

// SendData carries the next chunk of the image. Payload aliases the
// receive buffer and is only valid until the next packet is read.
type SendData struct {
	Payload []byte
}

// Reset asks the device to reset.
type Reset struct{}

// Unknown is any command byte the boot loader does not implement,
// including an empty packet.
type Unknown struct {
	Command byte
}

func (Ping) Code() byte      { return CmdPing }
func (Download) Code() byte  { return CmdDownload }
func (Run) Code() byte       { return CmdRun }
func (GetStatus) Code() byte { return CmdGetStatus }
func (SendData) Code() byte  { return CmdSendData }
func (Reset) Code() byte     { return CmdReset }
func (u Unknown) Code() byte { return u.Command }

func (Ping) command()      {}
func (Download) command()  {}
func (Run) command()       {}
func (GetStatus) command() {}
func (SendData) command()  {}
func (Reset) command()     {}
func (Unknown) command()   {}

// CommandName returns a human-readable name for a command code.
func CommandName(code byte) string {
	switch code {
	case CmdPing:
		return "ping"
	case CmdDownload:
		return "download"
	case CmdRun:
		return "run"
	case CmdGetStatus:
		return "get status"
	case CmdSendData:
		return "send data"
	case CmdReset:
		return "reset"
	default:
		return "unknown"
	}
}
