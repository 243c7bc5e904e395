// Package platformtools bundles Google's Android platform-tools into the
// binary and unpacks the adb executable at run time.
package platformtools

//go:generate go run ../../cmd/fetch-platform-tools -dir archives

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotBundled means the binary was built without an archive for this OS.
var ErrNotBundled = errors.New("platform-tools not bundled for this platform")

// Platforms lists the GOOS values Google publishes platform-tools for.
var Platforms = []string{"linux", "darwin", "windows"}

// ArchiveName returns the upstream file name of the archive for goos.
func ArchiveName(goos string) string {
	return "platform-tools-latest-" + goos + ".zip"
}

// archivePath is where the archive for goos lives, relative to this package.
// Only the host's subdirectory is embedded.
func archivePath(goos string) string {
	return path.Join("archives", goos, ArchiveName(goos))
}

// Archive returns the embedded platform-tools zip for the running OS.
func Archive() ([]byte, error) {
	data, err := archives.ReadFile(archivePath(runtime.GOOS))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotBundled
	}
	return data, err
}

func adbName(goos string) string {
	if goos == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// Install extracts the bundled adb into dir and returns its path. When the
// build carries no archive it falls back to adb on PATH.
func Install(dir string) (string, error) {
	data, err := Archive()
	if errors.Is(err, ErrNotBundled) {
		adb, lookErr := exec.LookPath("adb")
		if lookErr != nil {
			return "", errors.Wrapf(err, "adb not found on PATH either: %v", lookErr)
		}
		log.Warn().Str("adb", adb).Msg("platform-tools not bundled, using adb from PATH")
		return adb, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read bundled platform-tools")
	}
	return Extract(data, dir, runtime.GOOS)
}

// Extract unpacks a platform-tools zip into dir and returns the path of the
// adb executable for goos.
func Extract(data []byte, dir, goos string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "open platform-tools archive")
	}
	for _, f := range zr.File {
		if err := extractFile(f, dir); err != nil {
			return "", err
		}
	}

	adb := filepath.Join(dir, "platform-tools", adbName(goos))
	if _, err := os.Stat(adb); err != nil {
		return "", errors.Wrap(err, "platform-tools archive has no adb")
	}
	if err := os.Chmod(adb, 0o755); err != nil {
		return "", errors.Wrap(err, "make adb executable")
	}
	return adb, nil
}

func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return errors.Errorf("archive entry %q escapes %s", f.Name, dir)
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(target))
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "create %s", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "extract %s", f.Name)
	}
	return out.Close()
}
