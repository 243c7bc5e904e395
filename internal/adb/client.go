package adb

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMalformedOutput means adb printed something the parser does not
	// understand. The environment is broken, so callers abort the run.
	ErrMalformedOutput = errors.New("malformed adb output")

	// ErrNoDevice is returned by device-scoped calls made before SelectDevice.
	ErrNoDevice = errors.New("no device selected")
)

// waitDelay bounds how long Wait keeps copying output after the process
// was killed, in case a forked adb server still holds the pipe.
const waitDelay = 2 * time.Second

// Client wraps ADB command-line calls against a single executable.
type Client struct {
	exe    string
	serial string

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	// kill stops a timed command that reached its deadline.
	kill func(p *os.Process) error
}

// NewClient creates a new ADB client for the executable at exe.
func NewClient(exe string) *Client {
	return &Client{exe: exe, execCommand: exec.CommandContext, kill: (*os.Process).Kill}
}

// Serial returns the selected device serial, or "" before selection.
func (c *Client) Serial() string {
	return c.serial
}

// SelectDevice scopes every following device command to serial.
func (c *Client) SelectDevice(serial string) {
	c.serial = serial
}

// ListDevices returns all devices known to the adb server.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	out, err := c.output(ctx, "devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out)
}

// ListFiles lists entry names in a directory on the selected device.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]string, error) {
	args, err := c.deviceArgs("shell", "ls", dir)
	if err != nil {
		return nil, err
	}
	out, err := c.output(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseListing(out), nil
}

// ModTime returns the modification time of a file on the selected device.
func (c *Client) ModTime(ctx context.Context, path string) (time.Time, error) {
	args, err := c.deviceArgs("shell", "date", "-r", path, "+%s")
	if err != nil {
		return time.Time{}, err
	}
	out, err := c.output(ctx, args...)
	if err != nil {
		return time.Time{}, err
	}
	return parseTimestamp(out)
}

// Pull copies a file from the device to the local filesystem.
func (c *Client) Pull(ctx context.Context, remotePath, localPath string) error {
	args, err := c.deviceArgs("pull", remotePath, localPath)
	if err != nil {
		return err
	}
	out, err := c.execCommand(ctx, c.exe, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "adb pull %s: %s", remotePath, strings.TrimSpace(string(out)))
	}
	return nil
}

// KillServer stops the background adb server.
func (c *Client) KillServer(ctx context.Context) error {
	_, err := c.output(ctx, "kill-server")
	return err
}

// RunTimed runs a device-scoped command and copies its stdout into sink
// until the command exits or timeout elapses, whichever comes first. When
// the timeout fires the process is killed and RunTimed returns nil. It only
// returns after the copy has finished and the process has been reaped.
func (c *Client) RunTimed(ctx context.Context, args []string, sink io.Writer, timeout time.Duration) error {
	full, err := c.deviceArgs(args...)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := c.execCommand(runCtx, c.exe, full...)
	cmd.Stdout = sink
	cmd.Cancel = func() error {
		// The process may have exited between the deadline and the kill.
		if err := c.kill(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err = cmd.Run()
	switch {
	case ctx.Err() != nil:
		return errors.Wrapf(ctx.Err(), "adb %s", strings.Join(args, " "))
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		log.Debug().Strs("args", args).Dur("elapsed", time.Since(start)).Msg("timed adb command stopped")
		return nil
	case err != nil:
		return errors.Wrapf(err, "adb %s", strings.Join(args, " "))
	}
	return nil
}

func (c *Client) deviceArgs(args ...string) ([]string, error) {
	if c.serial == "" {
		return nil, errors.Wrapf(ErrNoDevice, "adb %s", strings.Join(args, " "))
	}
	return append([]string{"-s", c.serial}, args...), nil
}

func (c *Client) output(ctx context.Context, args ...string) (string, error) {
	out, err := c.execCommand(ctx, c.exe, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", errors.Wrapf(err, "adb %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errors.Wrapf(err, "adb %s", strings.Join(args, " "))
	}
	if !utf8.Valid(out) {
		return "", errors.Wrapf(ErrMalformedOutput, "adb %s: invalid UTF-8", strings.Join(args, " "))
	}
	return string(out), nil
}

// parseDevices parses `adb devices` output. The first line is the
// "List of devices attached" header.
func parseDevices(output string) ([]Device, error) {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Wrapf(ErrMalformedOutput, "adb devices: unexpected line %q", line)
		}
		devices = append(devices, Device{
			Serial: fields[0],
			State:  fields[1],
			Status: statusFromToken(fields[1]),
		})
	}
	return devices, nil
}

// parseListing splits `ls` output into trimmed, non-empty entry names.
func parseListing(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}

// parseTimestamp parses the output of `date +%s`.
func parseTimestamp(output string) (time.Time, error) {
	epoch, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrMalformedOutput, "adb shell date: %q is not a timestamp", strings.TrimSpace(output))
	}
	return time.Unix(epoch, 0), nil
}
