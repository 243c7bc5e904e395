package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/FluidXR/loggrabber/internal/config"
)

func TestLoadConfigAppliesFlags(t *testing.T) {
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configFile = "" })

	flags := rootCmd.Flags()
	set := map[string]string{
		config.KeyOutput:        "quest.zip",
		config.KeyDuration:      "5s",
		config.KeyKeepWorkspace: "true",
	}
	for key, value := range set {
		if err := flags.Set(key, value); err != nil {
			t.Fatalf("set --%s: %v", key, err)
		}
	}
	t.Cleanup(func() {
		for key := range set {
			f := flags.Lookup(key)
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Output != "quest.zip" || cfg.LogcatDuration != 5*time.Second || !cfg.KeepWorkspace {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Device != "" {
		t.Errorf("unset flag must not override: device = %q", cfg.Device)
	}
}
