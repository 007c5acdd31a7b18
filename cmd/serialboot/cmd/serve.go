package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-serialboot/bootloader"
	"github.com/moffa90/go-serialboot/config"
	"github.com/moffa90/go-serialboot/flash"
	"github.com/moffa90/go-serialboot/transport"
)

var (
	flashImage string
	once       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a simulated boot loader device",
	Long: `Run the boot loader against an in-memory flash.

The device answers one host at a time. After Run or Reset the simulated
device reboots into the boot loader and waits for the next host, so an
image can be uploaded, started and replaced repeatedly. With --flash the
flash contents are loaded at start and saved after every session.

Examples:
  # Simulated device on TCP port 5000
  serialboot serve --address :5000 --flash flash.bin

  # Device on a serial port (e.g. one end of a socat pty pair)
  serialboot serve --device /dev/pts/3 --baud 115200`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flashImage, "flash", "f", "",
		"file holding the flash contents (overrides device.image)")
	serveCmd.Flags().BoolVar(&once, "once", false,
		"exit after the first session")
}

// simBoot stands in for the jump and reset primitives of a real part.
type simBoot struct{}

func (simBoot) JumpTo(addr uint32) {
	glog.Infof("device: jumping to application at 0x%08X", addr)
}

func (simBoot) SystemReset() {
	glog.Info("device: system reset")
}

type simulator struct {
	cfg  config.Config
	mem  *flash.Memory
	fl   bootloader.Flash
	opts []bootloader.Option
}

func newSimulator(cfg config.Config) (*simulator, error) {
	d := cfg.Device
	mem, err := flash.New(d.FlashSize, d.PageSize,
		flash.WithAppStart(d.AppStart),
		flash.WithReserved(d.Reserved),
		flash.WithBootUpdate(d.AllowBootUpdate),
	)
	if err != nil {
		return nil, err
	}
	if d.Image != "" {
		if err := mem.LoadFile(d.Image); err != nil {
			return nil, err
		}
	}

	s := &simulator{cfg: cfg, mem: mem, fl: mem}
	if d.CodeProtection {
		s.fl = flash.CodeProtected(mem)
	}

	s.opts = []bootloader.Option{
		bootloader.WithLogger(glogLogger{prefix: "device"}),
		bootloader.WithAppStart(d.AppStart),
		bootloader.WithBufferSize(d.BufferSize),
		bootloader.WithByteOrder(cfg.Link.Order()),
		bootloader.WithHooks(bootloader.Hooks{
			OnStart: func() { glog.Info("device: download started") },
			OnProgress: func(done, total uint32) {
				glog.V(2).Infof("device: %d/%d bytes", done, total)
			},
			OnEnd: func() { glog.Info("device: download complete") },
		}),
	}
	return s, nil
}

// session runs the boot loader until the host leaves or the device
// "reboots".
func (s *simulator) session(rw io.ReadWriter) error {
	var t transport.Transport = transport.NewStream(rw)
	if s.cfg.Link.Autobaud {
		t = transport.NewSyncStream(rw)
	}

	err := bootloader.New(t, s.fl, simBoot{}, s.opts...).Serve()

	if s.cfg.Device.Image != "" {
		if serr := s.mem.SaveFile(s.cfg.Device.Image); serr != nil {
			return serr
		}
	}

	var handoff *bootloader.HandoffError
	switch {
	case errors.As(err, &handoff):
		glog.Infof("device: application started at 0x%08X", handoff.Address)
	case errors.Is(err, bootloader.ErrReset):
		glog.Info("device: reset")
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		glog.Info("device: host disconnected")
	default:
		return err
	}

	erases, programs := s.mem.Stats()
	glog.V(1).Infof("device: %d page erases, %d program operations so far", erases, programs)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flashImage != "" {
		cfg.Device.Image = flashImage
	}

	sim, err := newSimulator(cfg)
	if err != nil {
		return fmt.Errorf("flash: %w", err)
	}

	if cfg.Link.Device != "" {
		port, err := openSerial(cfg.Link)
		if err != nil {
			return err
		}
		defer func() { _ = port.Close() }()

		for {
			if err := sim.session(port); err != nil || once {
				return err
			}
		}
	}

	ln, err := net.Listen("tcp", cfg.Link.Address)
	if err != nil {
		return err
	}
	defer func() { _ = ln.Close() }()
	glog.Infof("device: listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		glog.Infof("device: host connected from %s", conn.RemoteAddr())

		err = sim.session(conn)
		_ = conn.Close()
		if err != nil || once {
			return err
		}
	}
}
