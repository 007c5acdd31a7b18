package bootloader

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-serialboot/protocol"
	"github.com/moffa90/go-serialboot/transport"
)

// Coordinator is the boot loader's command loop. It owns the transfer state
// and is the only writer of flash.
//
// Coordinator is not safe for concurrent use. It runs one request at a time
// and never processes a packet before the response to the previous one is on
// the wire.
type Coordinator struct {
	t      transport.Transport
	codec  *protocol.Codec
	flash  Flash
	boot   Bootstrap
	config Config
	state  TransferState
	buf    []byte
}

// New creates a Coordinator serving over t.
//
// Example:
//
//	t := transport.NewUART(uartRegs)
//	coord := bootloader.New(t, flashCtl, bootstrap,
//	    bootloader.WithAppStart(0x4000),
//	)
//	err := coord.Serve()
func New(t transport.Transport, flash Flash, boot Bootstrap, opts ...Option) *Coordinator {
	if t == nil || flash == nil || boot == nil {
		panic("bootloader: transport, flash and bootstrap are required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Coordinator{
		t:      t,
		codec:  protocol.NewCodec(t),
		flash:  flash,
		boot:   boot,
		config: cfg,
		state:  NewTransferState(),
		buf:    make([]byte, cfg.BufferSize),
	}
}

// State returns a copy of the current transfer state.
func (c *Coordinator) State() TransferState { return c.state }

// Serve runs the command loop until a Run or Reset command leaves the boot
// loader, or the transport fails.
//
// If the transport needs synchronisation (UART autobaud) that happens first
// and is acknowledged before any packet is read.
//
// After Run, Serve returns a *HandoffError (matching ErrRun); after Reset it
// returns ErrReset. On hardware neither return is reached.
func (c *Coordinator) Serve() error {
	if s, ok := c.t.(transport.Synchronizer); ok {
		if err := s.Synchronize(); err != nil {
			return err
		}
		if err := c.codec.Ack(); err != nil {
			return err
		}
		c.logDebug("transport synchronised")
	}

	for {
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// Step receives one packet and executes the command it carries.
//
// Malformed packets are handled here and never reach the command handlers:
// a checksum failure has already been NAKed by the codec, an oversized
// packet is dropped without a reply. Only transport failures and the
// terminal commands end the loop.
func (c *Coordinator) Step() error {
	data, err := c.codec.ReceivePacket(c.buf)
	switch {
	case errors.Is(err, protocol.ErrChecksumMismatch),
		errors.Is(err, protocol.ErrInvalidLength):
		c.logDebug("packet rejected", "error", err)
		return nil
	case errors.Is(err, protocol.ErrBufferTooSmall):
		c.logError("packet dropped", "error", err)
		return nil
	case err != nil:
		return fmt.Errorf("receive packet: %w", err)
	}

	cmd, err := protocol.ParseCommand(data, c.config.ByteOrder)
	if err != nil {
		c.rejectCommand(&c.state, data[0], err)
		return c.ack()
	}
	return c.dispatch(&c.state, cmd)
}

func (c *Coordinator) rejectCommand(st *TransferState, code byte, err error) {
	st.Status = protocol.StatusInvalidCommand
	if code == protocol.CmdDownload {
		st.abort()
	}
	c.logError("invalid command", "command", protocol.CommandName(code), "error", err)
}

// dispatch executes one command. Every command is acknowledged, whatever
// its outcome.
func (c *Coordinator) dispatch(st *TransferState, cmd protocol.Command) error {
	switch cmd := cmd.(type) {
	case protocol.Ping:
		st.Status = protocol.StatusSuccess
		c.logDebug("ping")
		return c.ack()

	case protocol.Download:
		c.download(st, cmd)
		return c.ack()

	case protocol.SendData:
		c.sendData(st, cmd.Payload)
		return c.ack()

	case protocol.GetStatus:
		if err := c.ack(); err != nil {
			return err
		}
		return c.sendStatus(st)

	case protocol.Run:
		return c.run(st, cmd.Address)

	case protocol.Reset:
		if err := c.ack(); err != nil {
			return err
		}
		if err := c.t.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		c.logInfo("reset requested")
		c.boot.SystemReset()
		return ErrReset

	default:
		st.Status = protocol.StatusUnknownCommand
		c.logError("unknown command", "command", fmt.Sprintf("0x%02X", cmd.Code()))
		return c.ack()
	}
}

// download validates the announced range, erases it and arms the transfer.
// Any failure leaves the boot loader idle so that following Send Data
// packets are rejected instead of landing in a half erased region.
func (c *Coordinator) download(st *TransferState, d protocol.Download) {
	st.abort()
	st.Status = protocol.StatusSuccess

	if !c.flash.AddressRangeValid(d.Address, d.Size) {
		st.Status = protocol.StatusInvalidAddress
		c.logError("download rejected",
			"address", fmt.Sprintf("0x%08X", d.Address),
			"size", d.Size,
		)
		return
	}

	start, end := c.erasePlan(d.Address, d.Size)
	c.flash.ClearError()
	c.erase(start, end)
	if c.flash.HasError() {
		c.flash.ClearError()
		st.Status = protocol.StatusFlashFail
		c.logError("erase failed",
			"start", fmt.Sprintf("0x%08X", start),
			"end", fmt.Sprintf("0x%08X", end),
		)
		return
	}

	// Nothing to receive: the transfer is complete as announced.
	if d.Size == 0 {
		c.logInfo("empty download", "address", fmt.Sprintf("0x%08X", d.Address))
		return
	}

	st.TransferAddress = d.Address
	st.TransferSize = d.Size
	if c.config.Hooks.OnProgress != nil {
		st.ImageSize = d.Size
		st.HasImageSize = true
	}

	c.logInfo("download started",
		"address", fmt.Sprintf("0x%08X", d.Address),
		"size", d.Size,
		"erased", fmt.Sprintf("0x%08X-0x%08X", start, end),
	)

	if c.config.Hooks.OnStart != nil {
		c.config.Hooks.OnStart()
	}
}

// erasePlan returns the pages a download must erase. The boot loader region
// is left alone here even when the image targets address 0; it is erased by
// the first Send Data, once an image is actually arriving.
func (c *Coordinator) erasePlan(addr, size uint32) (start, end uint32) {
	if p, ok := c.flash.(ErasePlanner); ok {
		return p.EraseRange(addr, size)
	}

	page := uint64(c.flash.PageSize())
	lo := uint64(addr)
	if lo < uint64(c.config.AppStart) {
		lo = uint64(c.config.AppStart)
	}
	hi := uint64(addr) + uint64(size)
	lo -= lo % page
	if rem := hi % page; rem != 0 {
		hi += page - rem
	}
	if hi > uint64(c.flash.Size()) {
		hi = uint64(c.flash.Size())
	}
	if lo > hi {
		lo = hi
	}
	return uint32(lo), uint32(hi)
}

func (c *Coordinator) erase(start, end uint32) {
	page := uint64(c.flash.PageSize())
	for a := uint64(start); a < uint64(end); a += page {
		c.flash.ErasePage(uint32(a))
	}
}

// sendData programs the next chunk of the image.
func (c *Coordinator) sendData(st *TransferState, payload []byte) {
	st.Status = protocol.StatusSuccess

	data := payload
	if c.config.Hooks.Decrypt != nil {
		data = c.config.Hooks.Decrypt(data)
	}

	if !st.Downloading() || uint64(len(data)) > uint64(st.TransferSize) {
		st.Status = protocol.StatusInvalidAddress
		c.logError("data rejected",
			"bytes", len(data),
			"remaining", st.TransferSize,
		)
		return
	}

	// Replacing the boot loader: its own pages go only now that the first
	// chunk of the new one is in hand.
	if st.TransferAddress == 0 && !st.bootErased {
		c.flash.ClearError()
		c.erase(0, c.config.AppStart)
		st.bootErased = true
		if c.flash.HasError() {
			c.flash.ClearError()
			st.abort()
			st.Status = protocol.StatusFlashFail
			c.logError("boot loader erase failed")
			return
		}
	}

	if len(data) > 0 {
		c.flash.ClearError()
		c.flash.Program(st.TransferAddress, data)
		if c.flash.HasError() {
			c.flash.ClearError()
			addr := st.TransferAddress
			st.abort()
			st.Status = protocol.StatusFlashFail
			c.logError("program failed",
				"address", fmt.Sprintf("0x%08X", addr),
				"bytes", len(data),
			)
			return
		}
	}

	st.TransferAddress += uint32(len(data))
	st.TransferSize -= uint32(len(data))

	if c.config.Hooks.OnProgress != nil && st.HasImageSize {
		c.config.Hooks.OnProgress(st.ImageSize-st.TransferSize, st.ImageSize)
	}

	if st.TransferSize == 0 {
		c.logInfo("download complete", "end", fmt.Sprintf("0x%08X", st.TransferAddress))
		st.abort()
		if c.config.Hooks.OnEnd != nil {
			c.config.Hooks.OnEnd()
		}
	}
}

func (c *Coordinator) sendStatus(st *TransferState) error {
	err := c.codec.SendPacket([]byte{byte(st.Status)})
	if errors.Is(err, protocol.ErrNotAcknowledged) {
		c.logDebug("status not acknowledged", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}
	return nil
}

// run hands control to the application. The command is acknowledged
// exactly once, before anything irreversible happens.
func (c *Coordinator) run(st *TransferState, addr uint32) error {
	if addr >= c.flash.Size() {
		st.Status = protocol.StatusInvalidAddress
		c.logError("run rejected", "address", fmt.Sprintf("0x%08X", addr))
		return c.ack()
	}

	if err := c.ack(); err != nil {
		return err
	}
	if err := c.t.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	c.logInfo("starting application", "address", fmt.Sprintf("0x%08X", addr))

	if d, ok := c.t.(transport.Disabler); ok {
		d.Disable()
	}
	c.boot.JumpTo(addr)

	// Only reached if the jump came back.
	c.boot.SystemReset()
	return &HandoffError{Address: addr}
}

func (c *Coordinator) ack() error {
	if err := c.codec.Ack(); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// logDebug logs a debug message if a logger is configured.
func (c *Coordinator) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Coordinator) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Coordinator) logError(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Error(msg, keysAndValues...)
	}
}
