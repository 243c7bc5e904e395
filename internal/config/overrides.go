package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. LOGGRABBER_OUTPUT.
const EnvPrefix = "LOGGRABBER"

// Override keys, shared by CLI flags and environment variables.
const (
	KeyOutput        = "output"
	KeyDevice        = "device"
	KeyDuration      = "duration"
	KeyKeepWorkspace = "keep-workspace"
)

// NewViper returns a viper instance reading LOGGRABBER_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies values that were explicitly set through v (flags or
// environment) over the ones loaded from the config file.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	if v.IsSet(KeyOutput) {
		c.Output = v.GetString(KeyOutput)
	}
	if v.IsSet(KeyDevice) {
		c.Device = v.GetString(KeyDevice)
	}
	if v.IsSet(KeyDuration) {
		c.LogcatDuration = v.GetDuration(KeyDuration)
	}
	if v.IsSet(KeyKeepWorkspace) {
		c.KeepWorkspace = v.GetBool(KeyKeepWorkspace)
	}
	return c.Validate()
}
