package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ZipDir writes every regular file directly inside dir (no recursion) into
// a zip at output, named by basename. The archive is built next to output
// and renamed into place, so a failure never leaves a partial zip behind.
// It returns the names of the archived entries.
func ZipDir(dir, output string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", filepath.Dir(output))
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), filepath.Base(output)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := addFile(zw, filepath.Join(dir, entry.Name())); err != nil {
			tmp.Close()
			return nil, err
		}
		names = append(names, entry.Name())
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, errors.Wrap(err, "finish archive")
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "close archive")
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return nil, errors.Wrapf(err, "move archive to %s", output)
	}
	return names, nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "zip header for %s", path)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "add %s", header.Name)
	}
	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "compress %s", header.Name)
	}
	return nil
}
