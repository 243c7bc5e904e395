package rclone

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		remote, name, want string
	}{
		{"nas:", "dump.zip", "nas:dump.zip"},
		{"nas:dumps", "dump.zip", "nas:dumps/dump.zip"},
		{"gdrive:Quest/Dumps/", "dump.zip", "gdrive:Quest/Dumps/dump.zip"},
	}
	for _, tt := range tests {
		if got := Join(tt.remote, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.remote, tt.name, got, tt.want)
		}
	}
}

func fakeRclone(fail bool) *Client {
	return &Client{execCommand: func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		if fail {
			cmd.Env = append(cmd.Env, "HELPER_FAIL=1")
		}
		return cmd
	}}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_FAIL") == "1" {
		os.Stderr.WriteString("Failed to create file system: didn't find section in config file\n")
		os.Exit(1)
	}
	os.Exit(0)
}

func TestCopy(t *testing.T) {
	if err := fakeRclone(false).Copy(context.Background(), "dump.zip", "nas:dump.zip"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	err := fakeRclone(true).Copy(context.Background(), "dump.zip", "nope:dump.zip")
	if err == nil || !strings.Contains(err.Error(), "didn't find section") {
		t.Fatalf("expected rclone output in error, got %v", err)
	}
}

func TestIsReachable(t *testing.T) {
	if !fakeRclone(false).IsReachable(context.Background(), "nas:") {
		t.Error("expected reachable")
	}
	if fakeRclone(true).IsReachable(context.Background(), "nope:") {
		t.Error("expected unreachable")
	}
}
