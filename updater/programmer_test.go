package updater

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-serialboot/bootloader"
	"github.com/moffa90/go-serialboot/flash"
	"github.com/moffa90/go-serialboot/image"
	"github.com/moffa90/go-serialboot/protocol"
	"github.com/moffa90/go-serialboot/transport"
)

type boot struct {
	jumped []uint32
}

func (b *boot) JumpTo(addr uint32) { b.jumped = append(b.jumped, addr) }
func (b *boot) SystemReset()       {}

// device runs a boot loader on the far end of an in-memory pipe.
type device struct {
	mem  *flash.Memory
	boot *boot
	done chan error
}

func startDevice(t *testing.T, sync bool) (*device, transport.Transport) {
	t.Helper()

	mem, err := flash.New(0x10000, 0x400, flash.WithAppStart(bootloader.DefaultAppStart))
	require.NoError(t, err)

	hostEnd, devEnd := net.Pipe()
	t.Cleanup(func() { _ = hostEnd.Close() })

	var dt transport.Transport = transport.NewStream(devEnd)
	if sync {
		dt = transport.NewSyncStream(devEnd)
	}

	d := &device{mem: mem, boot: &boot{}, done: make(chan error, 1)}
	coord := bootloader.New(dt, mem, d.boot)
	go func() {
		d.done <- coord.Serve()
		_ = devEnd.Close()
	}()

	return d, transport.NewStream(hostEnd)
}

func testImage(addr uint32, n int) *image.Image {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	img, err := image.FromBinary(data, addr)
	if err != nil {
		panic(err)
	}
	return img
}

func TestProgramEndToEnd(t *testing.T) {
	dev, host := startDevice(t, true)
	img := testImage(0x2000, 1000)

	var phases []string
	var last Progress
	prog := New(host,
		WithAutobaud(true),
		WithChunkSize(100),
		WithRun(0x2000),
		WithProgressCallback(func(p Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
			last = p
		}),
	)

	require.NoError(t, prog.Program(context.Background(), img))

	err := <-dev.done
	var handoff *bootloader.HandoffError
	require.True(t, errors.As(err, &handoff), "Serve() = %v", err)
	assert.Equal(t, []uint32{0x2000}, dev.boot.jumped)

	got, err := dev.mem.Read(0x2000, img.Len())
	require.NoError(t, err)
	assert.Equal(t, img.Data, got)

	rest, _ := dev.mem.Read(0x2000+uint32(img.Len()), 0x10)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x10), rest)

	assert.Equal(t, []string{
		PhaseConnecting, PhaseErasing, PhaseProgramming, PhaseVerifying, PhaseStarting, PhaseComplete,
	}, phases)
	assert.Equal(t, 100.0, last.Percentage)
	assert.Equal(t, 10, last.TotalChunks)
	assert.Equal(t, 1000, last.BytesWritten)
}

func TestProgramWithoutVerifyOrRun(t *testing.T) {
	dev, host := startDevice(t, false)
	img := testImage(0x4000, 300)

	prog := New(host, WithVerifyEachChunk(false))
	require.NoError(t, prog.Program(context.Background(), img))

	got, err := dev.mem.Read(0x4000, 300)
	require.NoError(t, err)
	assert.Equal(t, img.Data, got)
	assert.Empty(t, dev.boot.jumped)
}

func TestProgramRejectedDownload(t *testing.T) {
	_, host := startDevice(t, false)
	img := testImage(0x2001, 16)

	err := New(host).Program(context.Background(), img)
	require.Error(t, err)

	var se *protocol.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "download", se.Operation)
	assert.Equal(t, protocol.StatusInvalidAddress, se.Status)
}

func TestProgramBootLoaderRefused(t *testing.T) {
	dev, host := startDevice(t, false)
	img := testImage(0, 16)

	err := New(host).Program(context.Background(), img)
	assert.True(t, protocol.IsStatusError(err))

	erases, programs := dev.mem.Stats()
	assert.Zero(t, erases)
	assert.Zero(t, programs)
}

func TestProgramNilImage(t *testing.T) {
	prog := New(transport.NewStream(&script{}))
	assert.Equal(t, ErrNilImage, prog.Program(context.Background(), nil))
	assert.Equal(t, image.ErrEmpty, prog.Program(context.Background(), &image.Image{}))
}

func TestProgramCancelled(t *testing.T) {
	s := &script{}
	prog := New(transport.NewStream(s))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := prog.Program(ctx, testImage(0x2000, 4))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, s.out.Len(), "nothing may be sent after cancellation")
}
