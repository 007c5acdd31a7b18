package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-serialboot/config"
)

var (
	// Global flags
	configPath string
	serialDev  string
	tcpAddress string
	baud       int
)

var rootCmd = &cobra.Command{
	Use:   "serialboot",
	Short: "Serial boot loader simulator and firmware uploader",
	Long: `A host and device implementation of the serial boot loader protocol.

serve runs a simulated device with an in-memory flash, program uploads a
firmware image to a device. Both ends talk over a serial port or TCP.

Examples:
  serialboot serve --address :5000 --flash flash.bin      # Simulated device on TCP
  serialboot program --address localhost:5000 app.hex     # Upload an Intel HEX image
  serialboot program --device /dev/ttyUSB0 --load 0x2000 --run app.bin
  serialboot program --v=1 --config board.yaml app.hex    # Debug logging`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its settings from the go flag set.
		return flag.CommandLine.Parse(nil)
	},
}

// Execute runs the root command
func Execute() {
	defer glog.Flush()

	if err := rootCmd.Execute(); err != nil {
		glog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	_ = flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&serialDev, "device", "d", "", "serial port (overrides link.device)")
	rootCmd.PersistentFlags().StringVarP(&tcpAddress, "address", "a", "", "TCP address (overrides link.address)")
	rootCmd.PersistentFlags().IntVar(&baud, "baud", 0, "serial speed (overrides link.baud)")
}

// loadConfig reads the configuration file, if any, and applies the link
// flags on top.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	if serialDev != "" {
		cfg.Link.Device = serialDev
	}
	if tcpAddress != "" {
		cfg.Link.Address = tcpAddress
	}
	if baud > 0 {
		cfg.Link.Baud = baud
	}

	if cfg.Link.Device == "" && cfg.Link.Address == "" {
		return cfg, fmt.Errorf("no link: set --device or --address")
	}
	return cfg, cfg.Validate()
}
