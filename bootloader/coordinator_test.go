package bootloader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-serialboot/protocol"
	"github.com/moffa90/go-serialboot/transport"
)

const (
	testFlashSize = 0x10000
	testPageSize  = 0x400
)

type programCall struct {
	addr uint32
	data []byte
}

// fakeFlash records every operation and fails on demand.
type fakeFlash struct {
	erased      []uint32
	programs    []programCall
	err         bool
	failErase   map[uint32]bool
	failProgram bool
}

func (f *fakeFlash) ErasePage(addr uint32) {
	f.erased = append(f.erased, addr)
	if f.failErase[addr] {
		f.err = true
	}
}

func (f *fakeFlash) Program(addr uint32, data []byte) {
	f.programs = append(f.programs, programCall{addr: addr, data: append([]byte(nil), data...)})
	if f.failProgram {
		f.err = true
	}
}

func (f *fakeFlash) HasError() bool   { return f.err }
func (f *fakeFlash) ClearError()      { f.err = false }
func (f *fakeFlash) Size() uint32     { return testFlashSize }
func (f *fakeFlash) PageSize() uint32 { return testPageSize }

func (f *fakeFlash) AddressRangeValid(addr, size uint32) bool {
	if addr%testPageSize != 0 {
		return false
	}
	if addr != 0 && addr < DefaultAppStart {
		return false
	}
	return uint64(addr)+uint64(size) <= testFlashSize
}

// plannedFlash erases the whole application area on every download.
type plannedFlash struct {
	fakeFlash
}

func (f *plannedFlash) EraseRange(addr, size uint32) (uint32, uint32) {
	return DefaultAppStart, testFlashSize
}

type fakeBoot struct {
	jumps  []uint32
	resets int
}

func (b *fakeBoot) JumpTo(addr uint32) { b.jumps = append(b.jumps, addr) }
func (b *fakeBoot) SystemReset()       { b.resets++ }

type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) { l.debugMsgs = append(l.debugMsgs, msg) }
func (l *MockLogger) Info(msg string, kv ...interface{})  { l.infoMsgs = append(l.infoMsgs, msg) }
func (l *MockLogger) Error(msg string, kv ...interface{}) { l.errorMsgs = append(l.errorMsgs, msg) }

// hostLink replays scripted host bytes and captures what the device sends.
type hostLink struct {
	in     *bytes.Reader
	out    bytes.Buffer
	closed bool
}

func (h *hostLink) Read(p []byte) (int, error)  { return h.in.Read(p) }
func (h *hostLink) Write(p []byte) (int, error) { return h.out.Write(p) }
func (h *hostLink) Close() error {
	h.closed = true
	return nil
}

var hostAck = []byte{protocol.ControlLength, protocol.Ack}

func pkt(data []byte) []byte {
	p, err := protocol.NewPacket(data)
	if err != nil {
		panic(err)
	}
	return p.Bytes()
}

func sendData(data []byte) []byte {
	cmd, err := protocol.BuildSendDataCmd(data)
	if err != nil {
		panic(err)
	}
	return pkt(cmd)
}

// reply is one frame sent by the device: a control code, or data.
type reply struct {
	control byte
	data    []byte
}

func ack() reply                     { return reply{control: protocol.Ack} }
func nak() reply                     { return reply{control: protocol.Nak} }
func status(s protocol.Status) reply { return reply{data: []byte{byte(s)}} }

func parseReplies(t *testing.T, out []byte) []reply {
	t.Helper()
	var replies []reply
	for i := 0; i < len(out); {
		require.Less(t, i+1, len(out), "truncated frame at %d", i)
		if out[i] == protocol.ControlLength {
			replies = append(replies, reply{control: out[i+1]})
			i += 2
			continue
		}
		end := i + int(out[i])
		require.LessOrEqual(t, end, len(out), "truncated packet at %d", i)
		data := append([]byte(nil), out[i+2:end]...)
		require.Equal(t, protocol.Checksum(data), out[i+1])
		replies = append(replies, reply{data: data})
		i = end
	}
	return replies
}

type session struct {
	link  *hostLink
	flash *fakeFlash
	boot  *fakeBoot
	coord *Coordinator
}

func newSession(fl Flash, script [][]byte, opts ...Option) *session {
	link := &hostLink{in: bytes.NewReader(bytes.Join(script, nil))}
	boot := &fakeBoot{}
	s := &session{
		link:  link,
		boot:  boot,
		coord: New(transport.NewStream(link), fl, boot, opts...),
	}
	switch f := fl.(type) {
	case *fakeFlash:
		s.flash = f
	case *plannedFlash:
		s.flash = &f.fakeFlash
	}
	return s
}

// serveToEOF runs the loop until the script is exhausted.
func (s *session) serveToEOF(t *testing.T) []reply {
	t.Helper()
	err := s.coord.Serve()
	require.Error(t, err)
	require.True(t, errors.Is(err, io.EOF), "Serve() = %v, want EOF", err)
	return parseReplies(t, s.link.out.Bytes())
}

func TestPingAndGetStatus(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildPingCmd()),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), status(protocol.StatusSuccess)}, replies)
	assert.Equal(t, protocol.StatusSuccess, s.coord.State().Status)
}

func TestGetStatusNotAcknowledgedKeepsServing(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildGetStatusCmd()), {0x00, protocol.Nak},
		pkt(protocol.BuildPingCmd()),
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), status(protocol.StatusSuccess), ack()}, replies)
}

func TestDownloadInvalidAddress(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x00000001, 0x400, nil)),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), status(protocol.StatusInvalidAddress)}, replies)
	assert.Empty(t, s.flash.erased)
	assert.True(t, s.coord.State().Idle())
}

func TestDownloadPastEndOfFlash(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0xFC00, 0xFFFFFF00, nil)),
	})

	s.serveToEOF(t)
	assert.Equal(t, protocol.StatusInvalidAddress, s.coord.State().Status)
	assert.Empty(t, s.flash.erased)
}

func TestDownloadWrongLength(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x400, nil)),
		pkt([]byte{protocol.CmdDownload, 0x00, 0x00, 0x20, 0x00}),
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack()}, replies)

	st := s.coord.State()
	assert.Equal(t, protocol.StatusInvalidCommand, st.Status)
	assert.Zero(t, st.TransferSize)
	assert.True(t, st.Idle())
}

func TestDownloadErasesCoveringPages(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x500, nil)),
	})

	s.serveToEOF(t)
	assert.Equal(t, []uint32{0x2000, 0x2400}, s.flash.erased)

	st := s.coord.State()
	assert.Equal(t, protocol.StatusSuccess, st.Status)
	assert.True(t, st.Downloading())
	assert.Equal(t, uint32(0x2000), st.TransferAddress)
	assert.Equal(t, uint32(0x500), st.TransferSize)
	assert.False(t, st.HasImageSize, "image size is only kept for progress hooks")
}

func TestDownloadUsesErasePlanner(t *testing.T) {
	fl := &plannedFlash{}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x10, nil)),
	})

	s.serveToEOF(t)
	assert.Len(t, s.flash.erased, (testFlashSize-DefaultAppStart)/testPageSize)
	assert.Equal(t, uint32(DefaultAppStart), s.flash.erased[0])
}

func TestDownloadEraseFailureRejectsData(t *testing.T) {
	fl := &fakeFlash{failErase: map[uint32]bool{0x2400: true}}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x800, nil)),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
		sendData([]byte{1, 2, 3, 4}),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{
		ack(),
		ack(), status(protocol.StatusFlashFail),
		ack(),
		ack(), status(protocol.StatusInvalidAddress),
	}, replies)
	assert.Empty(t, fl.programs)
	assert.Zero(t, s.coord.State().TransferSize)
}

func TestSendDataWithoutDownload(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		sendData([]byte{0xDE, 0xAD}),
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack()}, replies)
	assert.Equal(t, protocol.StatusInvalidAddress, s.coord.State().Status)
	assert.Empty(t, s.flash.programs)
}

func TestOversendIsRejected(t *testing.T) {
	fl := &fakeFlash{}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x100, nil)),
	})
	s.serveToEOF(t)
	require.True(t, s.coord.State().Downloading())

	st := &s.coord.state
	require.NoError(t, s.coord.dispatch(st, protocol.SendData{Payload: make([]byte, 0x200)}))
	assert.Equal(t, protocol.StatusInvalidAddress, st.Status)
	assert.Empty(t, fl.programs)
	assert.Equal(t, uint32(0x100), st.TransferSize)
}

func TestOversendOnTheWire(t *testing.T) {
	fl := &fakeFlash{}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x10, nil)),
		sendData(make([]byte, 0x20)),
		sendData(make([]byte, 0x10)),
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), ack()}, replies)
	require.Len(t, fl.programs, 1)
	assert.Equal(t, uint32(0x2000), fl.programs[0].addr)
	assert.Len(t, fl.programs[0].data, 0x10)
}

func TestSelfPreservingErase(t *testing.T) {
	fl := &fakeFlash{}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0, 0x400, nil)),
	})
	s.serveToEOF(t)
	assert.Empty(t, fl.erased, "download must leave the boot loader in place")
	require.True(t, s.coord.State().Downloading())

	st := &s.coord.state
	require.NoError(t, s.coord.dispatch(st, protocol.SendData{}))
	require.NoError(t, s.coord.dispatch(st, protocol.SendData{}))

	var want []uint32
	for a := uint32(0); a < DefaultAppStart; a += testPageSize {
		want = append(want, a)
	}
	assert.Equal(t, want, fl.erased, "boot region must be erased exactly once")
	assert.True(t, st.BootRegionErased())

	require.NoError(t, s.coord.dispatch(st, protocol.SendData{Payload: bytes.Repeat([]byte{0x11}, 0x400)}))
	assert.Equal(t, want, fl.erased)
	require.Len(t, fl.programs, 1)
	assert.Equal(t, uint32(0), fl.programs[0].addr)
	assert.True(t, st.Idle())
	assert.Equal(t, protocol.StatusSuccess, st.Status)
}

func TestSelfPreservingEraseFailure(t *testing.T) {
	fl := &fakeFlash{failErase: map[uint32]bool{0x400: true}}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0, 0x100, nil)),
		sendData([]byte{1, 2, 3, 4}),
	})

	s.serveToEOF(t)
	st := s.coord.State()
	assert.Equal(t, protocol.StatusFlashFail, st.Status)
	assert.Zero(t, st.TransferSize)
	assert.Empty(t, fl.programs)
}

func TestEndToEndScenario(t *testing.T) {
	fl := &fakeFlash{}
	ended := 0
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildPingCmd()),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
		pkt(protocol.BuildDownloadCmd(0x2000, 0x400, nil)),
	}, WithEndHook(func() { ended++ }))

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), status(protocol.StatusSuccess), ack()}, replies)

	st := &s.coord.state
	assert.Equal(t, protocol.StatusSuccess, st.Status)
	assert.True(t, st.Downloading())
	assert.Equal(t, uint32(0x400), st.TransferSize)

	image := bytes.Repeat([]byte{0xAA}, 0x400)
	require.NoError(t, s.coord.dispatch(st, protocol.SendData{Payload: image}))

	require.Len(t, fl.programs, 1)
	assert.Equal(t, uint32(0x2000), fl.programs[0].addr)
	assert.Equal(t, image, fl.programs[0].data)
	assert.Zero(t, st.TransferSize)
	assert.True(t, st.Idle())
	assert.Equal(t, 1, ended)
}

func TestChunkedDownloadWithHooks(t *testing.T) {
	fl := &fakeFlash{}
	var events []string
	var progress [][2]uint32

	image := make([]byte, 600)
	for i := range image {
		image[i] = byte(i)
	}
	script := [][]byte{pkt(protocol.BuildDownloadCmd(0x3000, uint32(len(image)), nil))}
	for off := 0; off < len(image); off += 200 {
		script = append(script, sendData(image[off:off+200]))
	}
	script = append(script, pkt(protocol.BuildGetStatusCmd()), hostAck)

	s := newSession(fl, script, WithHooks(Hooks{
		OnStart:    func() { events = append(events, "start") },
		OnProgress: func(done, total uint32) { progress = append(progress, [2]uint32{done, total}) },
		OnEnd:      func() { events = append(events, "end") },
	}))

	replies := s.serveToEOF(t)
	assert.Equal(t, status(protocol.StatusSuccess), replies[len(replies)-1])
	assert.Equal(t, []string{"start", "end"}, events)
	assert.Equal(t, [][2]uint32{{200, 600}, {400, 600}, {600, 600}}, progress)

	require.Len(t, fl.programs, 3)
	var written []byte
	for i, p := range fl.programs {
		assert.Equal(t, uint32(0x3000+200*i), p.addr)
		written = append(written, p.data...)
	}
	assert.Equal(t, image, written)
}

func TestDecryptHook(t *testing.T) {
	fl := &fakeFlash{}
	xor := func(b []byte) []byte {
		for i := range b {
			b[i] ^= 0x5A
		}
		return b
	}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 4, nil)),
		sendData(xor([]byte{1, 2, 3, 4})),
	}, WithDecryptHook(xor))

	s.serveToEOF(t)
	require.Len(t, fl.programs, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, fl.programs[0].data)
}

func TestProgramFailureStopsTransfer(t *testing.T) {
	fl := &fakeFlash{failProgram: true}
	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 8, nil)),
		sendData([]byte{1, 2, 3, 4}),
		sendData([]byte{5, 6, 7, 8}),
	})

	s.serveToEOF(t)
	assert.Len(t, fl.programs, 1, "no programming after a failure")
	st := s.coord.State()
	assert.Equal(t, protocol.StatusInvalidAddress, st.Status)
	assert.Zero(t, st.TransferSize)
}

func TestChecksumMismatchLeavesStateUnchanged(t *testing.T) {
	fl := &fakeFlash{}
	bad := sendData([]byte{1, 2, 3, 4})
	bad[len(bad)-1] ^= 0xFF

	s := newSession(fl, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 8, nil)),
	})
	s.serveToEOF(t)
	before := s.coord.State()

	s.link.in = bytes.NewReader(bad)
	s.link.out.Reset()
	replies := s.serveToEOF(t)

	assert.Equal(t, []reply{nak()}, replies)
	assert.Equal(t, before, s.coord.State())
	assert.Empty(t, fl.programs)
}

func TestOversizedPacketIsDropped(t *testing.T) {
	logger := &MockLogger{}
	s := newSession(&fakeFlash{}, [][]byte{
		sendData(make([]byte, 32)),
		pkt(protocol.BuildPingCmd()),
	}, WithBufferSize(16), WithLogger(logger))

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack()}, replies)
	assert.Contains(t, logger.errorMsgs, "packet dropped")
}

func TestUnknownCommand(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt([]byte{0x7E}),
		pkt(nil),
		pkt(protocol.BuildGetStatusCmd()), hostAck,
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), ack(), status(protocol.StatusUnknownCommand)}, replies)
}

func TestRunInvalidAddressKeepsServing(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildRunCmd(testFlashSize, nil)),
		pkt(protocol.BuildRunCmd(0, nil)[:3]),
		pkt(protocol.BuildPingCmd()),
	})

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack(), ack()}, replies)
	assert.Empty(t, s.boot.jumps)
	assert.False(t, s.link.closed)
}

func TestRunHandsOff(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildRunCmd(0x2000, nil)),
		pkt(protocol.BuildPingCmd()),
	})

	err := s.coord.Serve()
	var handoff *HandoffError
	require.True(t, errors.As(err, &handoff), "Serve() = %v", err)
	assert.Equal(t, uint32(0x2000), handoff.Address)
	assert.True(t, errors.Is(err, ErrRun))

	assert.Equal(t, []reply{ack()}, parseReplies(t, s.link.out.Bytes()), "exactly one ACK")
	assert.True(t, s.link.closed, "transport must be disabled before the jump")
	assert.Equal(t, []uint32{0x2000}, s.boot.jumps)
	assert.Equal(t, 1, s.boot.resets, "a returning jump falls back to reset")
}

func TestResetAcksOnce(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildResetCmd()),
		pkt(protocol.BuildPingCmd()),
	})

	err := s.coord.Serve()
	assert.ErrorIs(t, err, ErrReset)
	assert.Equal(t, []reply{ack()}, parseReplies(t, s.link.out.Bytes()))
	assert.Equal(t, 1, s.boot.resets)
	assert.Empty(t, s.boot.jumps)
}

func TestAutobaudSyncIsAcknowledged(t *testing.T) {
	link := &hostLink{in: bytes.NewReader(bytes.Join([][]byte{
		{transport.SyncByte, transport.SyncByte},
		pkt(protocol.BuildPingCmd()),
	}, nil))}
	coord := New(transport.NewSyncStream(link), &fakeFlash{}, &fakeBoot{})

	err := coord.Serve()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []reply{ack(), ack()}, parseReplies(t, link.out.Bytes()))
}

func TestLittleEndianWire(t *testing.T) {
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0x400, binary.LittleEndian)),
	}, WithByteOrder(binary.LittleEndian))

	s.serveToEOF(t)
	st := s.coord.State()
	assert.Equal(t, uint32(0x2000), st.TransferAddress)
	assert.Equal(t, uint32(0x400), st.TransferSize)
}

func TestNewPanicsWithoutCollaborators(t *testing.T) {
	assert.Panics(t, func() {
		New(nil, &fakeFlash{}, &fakeBoot{})
	})
}

func TestStateCopyReportsIdle(t *testing.T) {
	coord := New(transport.NewStream(&hostLink{in: bytes.NewReader(nil)}), &fakeFlash{}, &fakeBoot{})

	st := coord.State()
	assert.True(t, coord.State().Idle())
	assert.False(t, coord.State().Downloading())
	assert.False(t, coord.State().BootRegionErased())
	assert.Equal(t, NoTransfer, st.TransferAddress)
}

func TestEmptyDownloadStaysIdle(t *testing.T) {
	starts, ends := 0, 0
	s := newSession(&fakeFlash{}, [][]byte{
		pkt(protocol.BuildDownloadCmd(0x2000, 0, nil)),
		sendData([]byte{1}),
	}, WithStartHook(func() { starts++ }), WithEndHook(func() { ends++ }))

	replies := s.serveToEOF(t)
	assert.Equal(t, []reply{ack(), ack()}, replies)

	st := s.coord.State()
	assert.Equal(t, NoTransfer, st.TransferAddress)
	assert.True(t, st.Idle())
	assert.Equal(t, protocol.StatusInvalidAddress, st.Status, "no data is expected after an empty download")
	assert.Zero(t, starts)
	assert.Zero(t, ends)
	assert.Empty(t, s.flash.programs)
}
