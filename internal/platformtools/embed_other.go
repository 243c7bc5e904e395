//go:build !linux && !darwin && !windows

package platformtools

import "embed"

// Google publishes no platform-tools for this OS; Install uses adb on PATH.
var archives embed.FS
