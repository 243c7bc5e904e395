package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LatestRule selects the newest file in Dir whose name starts with Prefix.
type LatestRule struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// Destination represents an rclone destination the archive is copied to.
type Destination struct {
	Name         string `yaml:"name" mapstructure:"name"`
	RcloneRemote string `yaml:"rclone_remote" mapstructure:"rclone_remote"`
}

// S3Config configures an optional upload of the archive to S3.
type S3Config struct {
	Bucket string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Region string `yaml:"region,omitempty" mapstructure:"region"`
	Prefix string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// Config is the top-level configuration.
type Config struct {
	Output            string        `yaml:"output" mapstructure:"output"`
	Device            string        `yaml:"device,omitempty" mapstructure:"device"`
	LogcatArgs        []string      `yaml:"logcat_args" mapstructure:"logcat_args"`
	LogcatDuration    time.Duration `yaml:"logcat_duration" mapstructure:"logcat_duration"`
	LogcatFile        string        `yaml:"logcat_file" mapstructure:"logcat_file"`
	Latest            []LatestRule  `yaml:"latest" mapstructure:"latest"`
	Files             []string      `yaml:"files" mapstructure:"files"`
	WorkspaceName     string        `yaml:"workspace_name" mapstructure:"workspace_name"`
	WorkspaceAttempts int           `yaml:"workspace_attempts" mapstructure:"workspace_attempts"`
	KeepWorkspace     bool          `yaml:"keep_workspace,omitempty" mapstructure:"keep_workspace"`
	Destinations      []Destination `yaml:"destinations,omitempty" mapstructure:"destinations"`
	S3                S3Config      `yaml:"s3,omitempty" mapstructure:"s3"`
}

const appDataDir = "/sdcard/Android/data/com.beatgames.beatsaber/files/"

// DefaultConfig returns a config targeting Beat Saber on Quest.
func DefaultConfig() *Config {
	return &Config{
		Output:         "dump.zip",
		LogcatArgs:     []string{"logcat"},
		LogcatDuration: 2 * time.Second,
		LogcatFile:     "adb.log",
		Latest: []LatestRule{
			{Dir: appDataDir + "logs/", Prefix: "GlobalLog"},
			{Dir: appDataDir, Prefix: "tombstone"},
		},
		Files: []string{
			"/sdcard/BMBFData/config.json",
		},
		WorkspaceName:     "log-grabber",
		WorkspaceAttempts: 5,
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "loggrabber")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "loggrabber")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads the config file at path, returning defaults if it doesn't exist.
// An empty path means ConfigPath().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Save writes the config to path. An empty path means ConfigPath().
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	if len(c.LogcatArgs) == 0 {
		return fmt.Errorf("logcat_args cannot be empty")
	}
	if c.LogcatDuration <= 0 {
		return fmt.Errorf("logcat_duration must be positive")
	}
	if c.WorkspaceName == "" {
		return fmt.Errorf("workspace_name cannot be empty")
	}
	if c.WorkspaceAttempts <= 0 {
		return fmt.Errorf("workspace_attempts must be positive")
	}
	for _, r := range c.Latest {
		if r.Dir == "" || r.Prefix == "" {
			return fmt.Errorf("latest rule needs both dir and prefix: %+v", r)
		}
	}
	return nil
}
