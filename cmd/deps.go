package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/platformtools"

	"github.com/pkg/errors"
)

type dependency struct {
	name       string
	binary     string
	installCmd map[string]string // GOOS -> install command
}

var (
	adbDep = dependency{
		name:   "ADB (Android Debug Bridge)",
		binary: "adb",
		installCmd: map[string]string{
			"darwin":  "brew install android-platform-tools",
			"linux":   "sudo apt install android-tools-adb",
			"windows": "winget install Google.PlatformTools",
		},
	}
	rcloneDep = dependency{
		name:   "rclone",
		binary: "rclone",
		installCmd: map[string]string{
			"darwin":  "brew install rclone",
			"linux":   "curl https://rclone.org/install.sh | sudo bash",
			"windows": "winget install Rclone.Rclone",
		},
	}
)

// requiredDeps lists the external tools cfg needs that are not available.
// adb is only needed when this build carries no platform-tools archive.
func requiredDeps(cfg *config.Config, bundled bool, lookPath func(string) (string, error)) []dependency {
	var needed []dependency
	if !bundled {
		needed = append(needed, adbDep)
	}
	if len(cfg.Destinations) > 0 {
		needed = append(needed, rcloneDep)
	}

	var missing []dependency
	for _, dep := range needed {
		if _, err := lookPath(dep.binary); err != nil {
			missing = append(missing, dep)
		}
	}
	return missing
}

// warnMissingDeps prints install hints for tools the run will need.
func warnMissingDeps(cfg *config.Config) {
	_, err := platformtools.Archive()
	missing := requiredDeps(cfg, !errors.Is(err, platformtools.ErrNotBundled), exec.LookPath)
	if len(missing) == 0 {
		return
	}

	fmt.Fprintln(os.Stderr, "loggrabber needs the following tools that are not installed:")
	for _, dep := range missing {
		if cmd, ok := dep.installCmd[runtime.GOOS]; ok {
			fmt.Fprintf(os.Stderr, "  - %s (%s): %s\n", dep.name, dep.binary, cmd)
		} else {
			fmt.Fprintf(os.Stderr, "  - %s (%s): please install it manually\n", dep.name, dep.binary)
		}
	}
}
