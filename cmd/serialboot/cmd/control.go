package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-serialboot/transport"
	"github.com/moffa90/go-serialboot/updater"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the boot loader answers",
	Args:  cobra.NoArgs,
	RunE: withProgrammer(func(ctx context.Context, prog *updater.Programmer, args []string) error {
		if err := prog.Connect(ctx); err != nil {
			return err
		}
		status, err := prog.GetStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("boot loader ready, status %s\n", status)
		return nil
	}),
}

var runCmd = &cobra.Command{
	Use:   "run <address>",
	Short: "Start the application at address",
	Args:  cobra.ExactArgs(1),
	RunE: withProgrammer(func(ctx context.Context, prog *updater.Programmer, args []string) error {
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", args[0], err)
		}
		return prog.Run(ctx, uint32(addr))
	}),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the device",
	Args:  cobra.NoArgs,
	RunE: withProgrammer(func(ctx context.Context, prog *updater.Programmer, args []string) error {
		return prog.Reset(ctx)
	}),
}

func init() {
	rootCmd.AddCommand(pingCmd, runCmd, resetCmd)
}

// withProgrammer opens the link and hands a programmer to fn.
func withProgrammer(fn func(context.Context, *updater.Programmer, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rw, err := dial(cfg.Link)
		if err != nil {
			return err
		}
		defer func() { _ = rw.Close() }()

		return fn(cmd.Context(), newProgrammer(cfg, transport.NewStream(rw)), args)
	}
}
