package cmd

import (
	"fmt"
	"time"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/manifest"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent captures",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := manifest.Open(config.ConfigDir())
		if err != nil {
			return errors.Wrap(err, "open history")
		}
		defer db.Close()

		runs, err := db.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		fmt.Printf("History: %s\n\n", db.Path())
		if len(runs) == 0 {
			fmt.Println("No captures recorded yet.")
			return nil
		}

		for _, r := range runs {
			status := "ok"
			if !r.OK {
				status = "FAILED"
			}
			device := r.DeviceSerial
			if device == "" {
				device = "(no device)"
			}
			fmt.Printf("#%d  %s  %-20s [%s]", r.ID, r.StartedAt.Local().Format(time.DateTime), device, status)
			if r.ArchivePath != "" {
				fmt.Printf("  %s", r.ArchivePath)
			}
			fmt.Println()
			if r.Error != "" {
				fmt.Printf("    error: %s\n", r.Error)
			}
			for _, a := range r.Artifacts {
				if a.Error != "" {
					fmt.Printf("    x %s: %s\n", a.Name, a.Error)
				} else {
					fmt.Printf("    + %s (%d bytes)\n", a.Name, a.Size)
				}
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of captures to show")
	rootCmd.AddCommand(historyCmd)
}
