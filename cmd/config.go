package cmd

import (
	"fmt"
	"os"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/env"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("Config file: %s\n", configPathOrDefault())
		if dotenv := env.LoadedPath(); dotenv != "" {
			fmt.Printf("Environment: %s\n", dotenv)
		}
		fmt.Println()
		fmt.Printf("Output: %s\n", cfg.Output)
		if cfg.Device != "" {
			fmt.Printf("Device: %s\n", cfg.Device)
		}
		fmt.Printf("Logcat: adb %v for %s -> %s\n", cfg.LogcatArgs, cfg.LogcatDuration, cfg.LogcatFile)
		fmt.Printf("\nLatest files:\n")
		for _, r := range cfg.Latest {
			fmt.Printf("  - %s%s*\n", r.Dir, r.Prefix)
		}
		fmt.Printf("\nFiles:\n")
		if len(cfg.Files) == 0 {
			fmt.Println("  (none configured)")
		}
		for _, f := range cfg.Files {
			fmt.Printf("  - %s\n", f)
		}
		fmt.Printf("\nDestinations:\n")
		if len(cfg.Destinations) == 0 && cfg.S3.Bucket == "" {
			fmt.Println("  (none configured)")
		}
		for _, d := range cfg.Destinations {
			fmt.Printf("  - %s: %s\n", d.Name, d.RcloneRemote)
		}
		if cfg.S3.Bucket != "" {
			fmt.Printf("  - s3: s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.Prefix)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPathOrDefault()
		if _, err := os.Stat(path); err == nil && !configForce {
			return errors.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Config created at %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPathOrDefault())
	},
}

func configPathOrDefault() string {
	if configFile != "" {
		return configFile
	}
	return config.ConfigPath()
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
