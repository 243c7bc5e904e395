package platformtools

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	data := buildZip(t, map[string]string{
		"platform-tools/adb":             "#!/bin/sh\n",
		"platform-tools/lib64/libc++.so": "lib",
		"platform-tools/NOTICE.txt":      "notice",
	})
	dir := t.TempDir()

	adb, err := Extract(data, dir, "linux")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if adb != filepath.Join(dir, "platform-tools", "adb") {
		t.Errorf("adb path = %s", adb)
	}
	info, err := os.Stat(adb)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("adb is not executable: %s", info.Mode())
	}
	if _, err := os.Stat(filepath.Join(dir, "platform-tools", "lib64", "libc++.so")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestExtractWindowsName(t *testing.T) {
	data := buildZip(t, map[string]string{"platform-tools/adb.exe": "MZ"})
	adb, err := Extract(data, t.TempDir(), "windows")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if filepath.Base(adb) != "adb.exe" {
		t.Errorf("adb path = %s", adb)
	}
}

func TestExtractWithoutADB(t *testing.T) {
	data := buildZip(t, map[string]string{"platform-tools/fastboot": "x"})
	if _, err := Extract(data, t.TempDir(), "linux"); err == nil {
		t.Fatal("expected error for archive without adb")
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	data := buildZip(t, map[string]string{"../evil": "x"})
	if _, err := Extract(data, t.TempDir(), "linux"); err == nil {
		t.Fatal("expected error for escaping entry")
	}
}

func TestDownloadSkipsExisting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/"+ArchiveName("linux") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("zipdata"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		path, err := Download(context.Background(), srv.Client(), srv.URL+"/", "linux", dir)
		if err != nil {
			t.Fatalf("download %d: %v", i, err)
		}
		if path != filepath.Join(dir, "linux", ArchiveName("linux")) {
			t.Errorf("archive path = %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "zipdata" {
			t.Fatalf("unexpected archive content %q, err %v", data, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	if _, err := Download(context.Background(), srv.Client(), srv.URL+"/", "darwin", dir); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(dir, "darwin", ArchiveName("darwin"))); !os.IsNotExist(err) {
		t.Errorf("failed download must not leave an archive behind: %v", err)
	}
}

func TestOnlyHostArchivesEmbedded(t *testing.T) {
	if !slices.Contains(Platforms, runtime.GOOS) {
		t.Skipf("no platform-tools for %s", runtime.GOOS)
	}
	entries, err := archives.ReadDir("archives")
	if err != nil {
		t.Fatalf("read embedded archives: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != runtime.GOOS {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("embedded directories = %v, want only %s", names, runtime.GOOS)
	}
}

func TestInstallReportsPathLookupFailure(t *testing.T) {
	if _, err := Archive(); !errors.Is(err, ErrNotBundled) {
		t.Skip("platform-tools are bundled in this build")
	}
	t.Setenv("PATH", t.TempDir())

	_, err := Install(t.TempDir())
	if !errors.Is(err, ErrNotBundled) {
		t.Fatalf("expected ErrNotBundled, got %v", err)
	}
	if !strings.Contains(err.Error(), "executable file not found") {
		t.Errorf("error should explain the PATH lookup: %v", err)
	}
}
