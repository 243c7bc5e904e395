package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/env"
	"github.com/FluidXR/loggrabber/internal/grabber"
	"github.com/FluidXR/loggrabber/internal/manifest"
	"github.com/FluidXR/loggrabber/internal/platformtools"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version of loggrabber.
const Version = "1.1.0"

var (
	configFile string
	verbose    bool
	overrides  = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:     "loggrabber",
	Short:   "Collect a diagnostic dump from an Android headset",
	Version: Version,
	Long: `loggrabber captures a short logcat sample, the newest game log and tombstone,
and the mod config from a connected headset over ADB, then saves everything
to a single zip archive you can attach to a bug report.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		warnMissingDeps(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		// A second Ctrl-C during teardown kills the process.
		context.AfterFunc(ctx, stop)

		g := grabber.New(cfg, platformtools.Install)
		db, err := manifest.Open(config.ConfigDir())
		if err != nil {
			log.Warn().Err(err).Msg("run history unavailable")
		} else {
			defer db.Close()
			g.History = db
		}
		g.Publisher = newPublisher(ctx, cfg)

		report, err := g.Run(ctx)
		printReport(report)
		return err
	},
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.Flags().StringP(config.KeyOutput, "o", "", "archive path (default dump.zip)")
	rootCmd.Flags().String(config.KeyDevice, "", "serial of the device to capture from")
	rootCmd.Flags().Duration(config.KeyDuration, 0, "how long to sample logcat (default 2s)")
	rootCmd.Flags().Bool(config.KeyKeepWorkspace, false, "keep the temp workspace after the run")

	for _, key := range []string{config.KeyOutput, config.KeyDevice, config.KeyDuration, config.KeyKeepWorkspace} {
		if err := overrides.BindPFlag(key, rootCmd.Flags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	env.Ensure()
}

// loadConfig reads the config file and applies flag and environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, errors.Wrap(err, "apply overrides")
	}
	return cfg, nil
}

func printReport(r grabber.Report) {
	if r.Device == "" {
		return
	}
	fmt.Printf("\nDevice: %s\n", r.Device)
	for _, a := range r.Capture.Artifacts {
		if a.Err != "" {
			fmt.Printf("  x %-24s %s\n", a.Name, a.Err)
			continue
		}
		fmt.Printf("  + %-24s %d bytes\n", a.Name, a.Size)
	}
	for _, e := range r.Capture.Errors {
		log.Debug().Str("error", e).Msg("capture step failed")
	}
	switch {
	case r.Archive != "":
		fmt.Printf("Saved %s (%d of %d files)\n", r.Archive, len(r.Capture.Pulled()), len(r.Capture.Artifacts))
	case r.ArchiveErr != nil:
		fmt.Printf("Could not save the archive: %v\n", r.ArchiveErr)
	}
	if r.KeptWorkspace {
		fmt.Printf("Captured files kept in %s\n", r.Workspace)
	}
	for _, p := range r.Published {
		if p.Err != "" {
			fmt.Printf("  -> %s: failed (%s)\n", p.Destination, p.Err)
		} else {
			fmt.Printf("  -> %s: %s\n", p.Destination, p.Location)
		}
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
