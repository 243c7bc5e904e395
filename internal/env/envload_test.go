package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDotEnvWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, ".env")
	if err := os.WriteFile(want, []byte("LOGGRABBER_OUTPUT=x.zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := findDotEnv(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFindDotEnvIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".env"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := findDotEnv(root)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == filepath.Join(root, ".env") {
		t.Errorf("directory named .env must not be loaded")
	}
}

func TestEnsureIsNoopUnderTest(t *testing.T) {
	if err := Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if LoadedPath() != "" {
		t.Errorf("no .env should load during tests, got %s", LoadedPath())
	}
}
