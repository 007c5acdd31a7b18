package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-serialboot/image"
	"github.com/moffa90/go-serialboot/protocol"
	"github.com/moffa90/go-serialboot/transport"
)

// Programmer drives a boot loader from the host side of the link.
//
// Programmer is not safe for concurrent use; the protocol allows a single
// outstanding request.
type Programmer struct {
	t      transport.Transport
	codec  *protocol.Codec
	config Config
	buf    []byte
}

// New creates a new Programmer talking over t.
//
// Example:
//
//	port, _ := term.Open("/dev/ttyUSB0", term.Speed(115200), term.RawMode)
//	prog := updater.New(transport.NewStream(port),
//	    updater.WithProgressCallback(progressFunc),
//	    updater.WithRun(0x2000),
//	)
func New(t transport.Transport, opts ...Option) *Programmer {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		t:      t,
		codec:  protocol.NewCodec(t),
		config: cfg,
		buf:    make([]byte, protocol.MaxPayloadSize),
	}
}

// Program performs the complete update sequence:
//  1. Connect (sync if configured, Ping, check status)
//  2. Download the image range and check the erase succeeded
//  3. Send the image in chunks, checking the status after each if enabled
//  4. Check the final status
//  5. Run the application if configured
//
// The operation can be cancelled via context between packets.
//
// Example:
//
//	img, _ := image.Load("app.hex", 0)
//	err := prog.Program(context.Background(), img)
func (p *Programmer) Program(ctx context.Context, img *image.Image) error {
	if img == nil {
		return ErrNilImage
	}
	if img.Len() == 0 {
		return image.ErrEmpty
	}

	startTime := time.Now()
	chunks := img.Chunks(p.config.ChunkSize)
	total := img.Len()

	p.reportProgress(Progress{
		Phase:       PhaseConnecting,
		TotalChunks: len(chunks),
		TotalBytes:  total,
	})

	if err := p.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	p.reportProgress(Progress{
		Phase:       PhaseErasing,
		Percentage:  2,
		TotalChunks: len(chunks),
		TotalBytes:  total,
		ElapsedTime: time.Since(startTime),
	})

	if err := p.Download(ctx, img.Address, uint32(total)); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := p.expectSuccess(ctx, "download"); err != nil {
		return err
	}

	p.logDebug("download accepted",
		"address", fmt.Sprintf("0x%08X", img.Address),
		"size", total,
		"chunks", len(chunks),
	)

	bytesWritten := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		addr := img.Address + uint32(bytesWritten)
		if err := p.SendData(ctx, chunk); err != nil {
			return &TransferError{Address: addr, Offset: bytesWritten, Err: err}
		}
		if p.config.VerifyEachChunk {
			if err := p.expectSuccess(ctx, "send data"); err != nil {
				return &TransferError{Address: addr, Offset: bytesWritten, Err: err}
			}
		}

		bytesWritten += len(chunk)

		// Report progress (2% to 90%)
		percentage := 2 + (float64(bytesWritten)/float64(total))*88
		p.reportProgress(Progress{
			Phase:        PhaseProgramming,
			CurrentChunk: i + 1,
			TotalChunks:  len(chunks),
			Percentage:   percentage,
			BytesWritten: bytesWritten,
			TotalBytes:   total,
			ElapsedTime:  time.Since(startTime),
		})
	}

	p.reportProgress(Progress{
		Phase:        PhaseVerifying,
		CurrentChunk: len(chunks),
		TotalChunks:  len(chunks),
		Percentage:   92,
		BytesWritten: bytesWritten,
		TotalBytes:   total,
		ElapsedTime:  time.Since(startTime),
	})

	if err := p.expectSuccess(ctx, "verify"); err != nil {
		return err
	}

	if p.config.Run {
		p.reportProgress(Progress{
			Phase:        PhaseStarting,
			CurrentChunk: len(chunks),
			TotalChunks:  len(chunks),
			Percentage:   95,
			BytesWritten: bytesWritten,
			TotalBytes:   total,
			ElapsedTime:  time.Since(startTime),
		})

		if err := p.Run(ctx, p.config.RunAddress); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	p.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentChunk: len(chunks),
		TotalChunks:  len(chunks),
		Percentage:   100,
		BytesWritten: bytesWritten,
		TotalBytes:   total,
		ElapsedTime:  time.Since(startTime),
	})

	p.logInfo("programming complete",
		"address", fmt.Sprintf("0x%08X", img.Address),
		"bytes", bytesWritten,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// Connect synchronises with the boot loader and checks that it answers.
// With autobaud enabled the sync pattern is sent first and its ACK awaited.
func (p *Programmer) Connect(ctx context.Context) error {
	if p.config.Autobaud {
		if err := p.t.Send([]byte{transport.SyncByte, transport.SyncByte}); err != nil {
			return fmt.Errorf("send sync: %w", err)
		}
		if err := p.t.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if err := p.codec.ReceiveAck(); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		p.logDebug("autobaud sync acknowledged")
	}

	if err := p.Ping(ctx); err != nil {
		return err
	}
	return p.expectSuccess(ctx, "ping")
}

// Ping sends a Ping command.
func (p *Programmer) Ping(ctx context.Context) error {
	return p.send(ctx, "ping", protocol.BuildPingCmd())
}

// Download announces size bytes to be written at addr. The device erases
// the range before acknowledging; use GetStatus to learn the outcome.
func (p *Programmer) Download(ctx context.Context, addr, size uint32) error {
	return p.send(ctx, "download", protocol.BuildDownloadCmd(addr, size, p.config.ByteOrder))
}

// SendData sends the next chunk of the image.
func (p *Programmer) SendData(ctx context.Context, data []byte) error {
	cmd, err := protocol.BuildSendDataCmd(data)
	if err != nil {
		return err
	}
	return p.send(ctx, "send data", cmd)
}

// GetStatus returns the result of the last command.
func (p *Programmer) GetStatus(ctx context.Context) (protocol.Status, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("cancelled: %w", err)
		}

		if err := p.codec.SendPacket(protocol.BuildGetStatusCmd()); err != nil {
			if !errors.Is(err, protocol.ErrNotAcknowledged) {
				return 0, fmt.Errorf("get status: %w", err)
			}
			lastErr = err
			p.logDebug("get status not acknowledged, retrying", "attempt", attempt+1)
			continue
		}

		data, err := p.codec.ReceivePacket(p.buf)
		if err != nil {
			if !errors.Is(err, protocol.ErrChecksumMismatch) {
				return 0, fmt.Errorf("read status: %w", err)
			}
			lastErr = err
			p.logDebug("corrupt status, retrying", "attempt", attempt+1)
			continue
		}
		if err := p.codec.Ack(); err != nil {
			return 0, fmt.Errorf("ack status: %w", err)
		}

		return protocol.ParseStatusResponse(data)
	}

	return 0, &RetryError{Operation: "get status", Attempts: p.config.Retries + 1, Err: lastErr}
}

// Run starts the application at addr. The device acknowledges and then
// leaves the boot loader, so no status can be read afterwards.
func (p *Programmer) Run(ctx context.Context, addr uint32) error {
	return p.send(ctx, "run", protocol.BuildRunCmd(addr, p.config.ByteOrder))
}

// Reset resets the device.
func (p *Programmer) Reset(ctx context.Context) error {
	return p.send(ctx, "reset", protocol.BuildResetCmd())
}

// send frames cmd and waits for its ACK, sending it again while the device
// answers with a NAK.
func (p *Programmer) send(ctx context.Context, op string, cmd []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.config.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		err := p.codec.SendPacket(cmd)
		if err == nil {
			return nil
		}
		if !errors.Is(err, protocol.ErrNotAcknowledged) {
			return fmt.Errorf("%s: %w", op, err)
		}

		lastErr = err
		p.logDebug("packet not acknowledged, retrying",
			"operation", op,
			"attempt", attempt+1,
		)
	}

	p.logError("giving up", "operation", op, "error", lastErr)
	return &RetryError{Operation: op, Attempts: p.config.Retries + 1, Err: lastErr}
}

// expectSuccess reads the status and turns anything but success into a
// *protocol.StatusError for op.
func (p *Programmer) expectSuccess(ctx context.Context, op string) error {
	status, err := p.GetStatus(ctx)
	if err != nil {
		return err
	}
	if status != protocol.StatusSuccess {
		p.logError("command failed", "operation", op, "status", status.String())
		return &protocol.StatusError{Operation: op, Status: status}
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (p *Programmer) logError(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Error(msg, keysAndValues...)
	}
}
