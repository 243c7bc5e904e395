package platformtools

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Download fetches the archive for goos into dir/<goos> unless it is already
// there. It returns the local path of the archive.
func Download(ctx context.Context, client *http.Client, baseURL, goos, dir string) (string, error) {
	dir = filepath.Join(dir, goos)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	dst := filepath.Join(dir, ArchiveName(goos))
	if _, err := os.Stat(dst); err == nil {
		log.Info().Str("archive", dst).Msg("platform-tools already present, skipping")
		return dst, nil
	}

	url := baseURL + ArchiveName(goos)
	log.Info().Str("url", url).Str("to", dst).Msg("downloading platform-tools")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("download %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "write %s", dst)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "write %s", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", errors.Wrapf(err, "move %s into place", dst)
	}
	return dst, nil
}
