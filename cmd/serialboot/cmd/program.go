package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-serialboot/config"
	"github.com/moffa90/go-serialboot/image"
	"github.com/moffa90/go-serialboot/transport"
	"github.com/moffa90/go-serialboot/updater"
)

var (
	loadAddress uint32
	runAfter    bool
	quiet       bool
)

var programCmd = &cobra.Command{
	Use:   "program <image>",
	Short: "Upload a firmware image",
	Long: `Upload a firmware image to a device running the boot loader.

Intel HEX files (.hex, .ihex) carry their own addresses; any other file is
a raw binary written at --load.

Examples:
  serialboot program --address localhost:5000 app.hex
  serialboot program --device /dev/ttyUSB0 --load 0x2000 --run app.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(programCmd)

	programCmd.Flags().Uint32VarP(&loadAddress, "load", "l", 0x2000,
		"load address of raw binary images")
	programCmd.Flags().BoolVarP(&runAfter, "run", "r", false,
		"start the application after programming (overrides host.run)")
	programCmd.Flags().BoolVarP(&quiet, "quiet", "q", false,
		"do not print progress")
}

func newProgrammer(cfg config.Config, t transport.Transport, opts ...updater.Option) *updater.Programmer {
	h := cfg.Host
	base := []updater.Option{
		updater.WithLogger(glogLogger{prefix: "host"}),
		updater.WithChunkSize(h.ChunkSize),
		updater.WithRetries(h.Retries),
		updater.WithVerifyEachChunk(h.VerifyEachChunk),
		updater.WithAutobaud(cfg.Link.Autobaud),
		updater.WithByteOrder(cfg.Link.Order()),
	}
	return updater.New(t, append(base, opts...)...)
}

func runProgram(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	img, err := image.Load(args[0], loadAddress)
	if err != nil {
		return err
	}

	var opts []updater.Option
	if runAfter || cfg.Host.Run {
		opts = append(opts, updater.WithRun(runAddress(cfg.Host, img)))
	}
	if !quiet {
		opts = append(opts, updater.WithProgressCallback(printProgress))
	}

	rw, err := dial(cfg.Link)
	if err != nil {
		return err
	}
	defer func() { _ = rw.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prog := newProgrammer(cfg, transport.NewStream(rw), opts...)
	if err := prog.Program(ctx, img); err != nil {
		return err
	}

	fmt.Printf("programmed %d bytes at 0x%08X\n", img.Len(), img.Address)
	return nil
}

// runAddress picks the application entry: the configured address, else the
// start record of the image, else its first byte.
func runAddress(h config.Host, img *image.Image) uint32 {
	switch {
	case h.RunAddress != nil:
		return *h.RunAddress
	case img.HasEntry:
		return img.Entry
	default:
		return img.Address
	}
}

func printProgress(p updater.Progress) {
	fmt.Printf("\r[%-11s] %5.1f%%  %d/%d bytes", p.Phase, p.Percentage, p.BytesWritten, p.TotalBytes)
	if p.Phase == updater.PhaseComplete {
		fmt.Println()
	}
}
