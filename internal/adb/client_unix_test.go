//go:build unix

package adb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestRunTimedLeavesNoProcessBehind(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "logcat.pid")
	t.Setenv("HELPER_PID_FILE", pidFile)

	c := fakeADB("stream")
	c.SelectDevice("serial")
	if err := c.RunTimed(context.Background(), []string{"logcat"}, &bytes.Buffer{}, 500*time.Millisecond); err != nil {
		t.Fatalf("run timed: %v", err)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("helper did not record its pid: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("bad pid %q: %v", data, err)
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Errorf("logcat process %d still exists after RunTimed returned (kill 0: %v)", pid, err)
	}
}
