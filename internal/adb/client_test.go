package adb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// fakeADB returns a Client whose subprocesses re-enter this test binary and
// run TestHelperProcess in the given mode.
func fakeADB(mode string) *Client {
	c := NewClient("adb")
	c.execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
	return c
}

// countKills wraps the client's kill so tests can see whether a timed
// command had to be stopped.
func countKills(c *Client) *atomic.Int32 {
	var n atomic.Int32
	kill := c.kill
	c.kill = func(p *os.Process) error {
		n.Add(1)
		return kill(p)
	}
	return &n
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	mode, rest := args[0], args[1:]

	switch mode {
	case "devices":
		fmt.Print("List of devices attached\n1WMHH000000000\tdevice\n1WMHH111111111\tunauthorized\n\n")
	case "echo-args":
		fmt.Print(strings.Join(rest, " "))
	case "date":
		fmt.Println("1700000000")
	case "bad-date":
		fmt.Println("date: unknown option -- r")
	case "fail":
		fmt.Fprintln(os.Stderr, "adb: error: remote object does not exist")
		os.Exit(1)
	case "quick":
		fmt.Println("--------- beginning of main")
		os.Exit(0)
	case "stream":
		if pidFile := os.Getenv("HELPER_PID_FILE"); pidFile != "" {
			os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
		}
		for {
			fmt.Println("I/ActivityManager: still running")
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestListDevices(t *testing.T) {
	devices, err := fakeADB("devices").ListDevices(context.Background())
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d: %+v", len(devices), devices)
	}
	if devices[0].Serial != "1WMHH000000000" || !devices[0].IsReady() {
		t.Errorf("unexpected first device: %+v", devices[0])
	}
	if devices[1].Status != StatusUnauthorized {
		t.Errorf("expected second device unauthorized, got %+v", devices[1])
	}
}

func TestDeviceCommandsArePrefixedWithSerial(t *testing.T) {
	c := fakeADB("echo-args")
	c.SelectDevice("1WMHH000000000")

	entries, err := c.ListFiles(context.Background(), "/sdcard/logs/")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	want := "-s 1WMHH000000000 shell ls /sdcard/logs/"
	if len(entries) != 1 || entries[0] != want {
		t.Fatalf("got %q, want %q", entries, want)
	}
}

func TestDeviceCommandWithoutSelection(t *testing.T) {
	c := fakeADB("echo-args")
	if _, err := c.ListFiles(context.Background(), "/sdcard"); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if err := c.Pull(context.Background(), "/sdcard/a", t.TempDir()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestModTime(t *testing.T) {
	c := fakeADB("date")
	c.SelectDevice("serial")
	mtime, err := c.ModTime(context.Background(), "/sdcard/tombstone_01")
	if err != nil {
		t.Fatalf("mod time: %v", err)
	}
	if mtime.Unix() != 1700000000 {
		t.Errorf("got %d", mtime.Unix())
	}

	c = fakeADB("bad-date")
	c.SelectDevice("serial")
	if _, err := c.ModTime(context.Background(), "/sdcard/x"); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestPullFailureIsReported(t *testing.T) {
	c := fakeADB("fail")
	c.SelectDevice("serial")
	err := c.Pull(context.Background(), "/sdcard/missing.json", t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "remote object does not exist") {
		t.Errorf("error should carry adb output: %v", err)
	}
}

func TestRunTimedKillsAtDeadline(t *testing.T) {
	c := fakeADB("stream")
	c.SelectDevice("serial")
	kills := countKills(c)

	var buf bytes.Buffer
	start := time.Now()
	if err := c.RunTimed(context.Background(), []string{"logcat"}, &buf, time.Second); err != nil {
		t.Fatalf("run timed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < time.Second || elapsed > time.Second+waitDelay {
		t.Errorf("returned after %s", elapsed)
	}
	if buf.Len() == 0 {
		t.Fatal("expected streamed output")
	}
	if kills.Load() != 1 {
		t.Errorf("expected one kill at the deadline, got %d", kills.Load())
	}

	// Nothing may write to the sink once RunTimed returned.
	n := buf.Len()
	time.Sleep(100 * time.Millisecond)
	if buf.Len() != n {
		t.Errorf("sink grew after return: %d -> %d", n, buf.Len())
	}
}

func TestRunTimedReturnsWhenProcessExits(t *testing.T) {
	c := fakeADB("quick")
	c.SelectDevice("serial")
	kills := countKills(c)

	var buf bytes.Buffer
	start := time.Now()
	if err := c.RunTimed(context.Background(), []string{"logcat"}, &buf, 30*time.Second); err != nil {
		t.Fatalf("run timed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("waited %s for an exited process", elapsed)
	}
	if !strings.Contains(buf.String(), "beginning of main") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if kills.Load() != 0 {
		t.Errorf("an exited process must not be killed, got %d kills", kills.Load())
	}
}

func TestRunTimedParentCancel(t *testing.T) {
	c := fakeADB("stream")
	c.SelectDevice("serial")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	err := c.RunTimed(ctx, []string{"logcat"}, &bytes.Buffer{}, 30*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
