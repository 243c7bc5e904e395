package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/FluidXR/loggrabber/internal/adb"
	"github.com/FluidXR/loggrabber/internal/platformtools"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices and whether they can be captured from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.MkdirTemp("", "log-grabber-devices-")
		if err != nil {
			return errors.Wrap(err, "create temp dir")
		}
		defer os.RemoveAll(dir)

		exe, err := platformtools.Install(dir)
		if err != nil {
			return errors.Wrap(err, "extract platform-tools")
		}
		client := adb.NewClient(exe)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.KillServer(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to stop adb server")
			}
		}()

		devices, err := client.ListDevices(cmd.Context())
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No devices connected.")
			return nil
		}
		for _, d := range devices {
			fmt.Printf("%-20s %s\n", d.Serial, d.StatusText())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
