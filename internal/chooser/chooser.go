// Package chooser picks the device a capture runs against, asking the user
// on standard input when that is ambiguous.
package chooser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FluidXR/loggrabber/internal/adb"

	"github.com/pkg/errors"
)

// ErrCancelled is returned when the user quits the prompt or stdin closes.
var ErrCancelled = errors.New("device selection cancelled")

// DeviceSelector is the part of the adb client the chooser needs.
type DeviceSelector interface {
	ListDevices(ctx context.Context) ([]adb.Device, error)
	SelectDevice(serial string)
}

// Chooser resolves which device to use.
type Chooser struct {
	ADB DeviceSelector
	In  *bufio.Reader
	Out io.Writer

	// Preferred is a serial chosen up front; it is used when connected and ready.
	Preferred string

	// pending carries a read that outlived a cancelled prompt.
	pending chan lineResult
}

// Choose blocks until a ready device is selected on ADB, the user quits, or
// listing devices fails.
func (c *Chooser) Choose(ctx context.Context) (adb.Device, error) {
	preferred := c.Preferred
	for {
		devices, err := c.ADB.ListDevices(ctx)
		if err != nil {
			return adb.Device{}, err
		}

		if preferred != "" {
			if d, ok := find(devices, preferred); ok {
				devices = []adb.Device{d}
			} else {
				fmt.Fprintf(c.Out, "Device %s is not connected.\n", preferred)
				preferred = ""
			}
		}

		switch len(devices) {
		case 0:
			fmt.Fprintln(c.Out, "No devices found. Please connect your headset with a USB cable.")
		case 1:
			if c.trySelect(devices[0], "The connected device", "") {
				return devices[0], nil
			}
		default:
			d, ok, err := c.menu(ctx, devices)
			if err != nil {
				return adb.Device{}, err
			}
			if ok {
				return d, nil
			}
			continue
		}

		fmt.Fprintln(c.Out, "(Press Enter to refresh, or q to quit)")
		if _, err := c.readLine(ctx); err != nil {
			return adb.Device{}, err
		}
	}
}

// menu prints the numbered device list and reads one answer. ok is false
// when the answer was invalid or picked a device that is not ready.
func (c *Chooser) menu(ctx context.Context, devices []adb.Device) (adb.Device, bool, error) {
	fmt.Fprintln(c.Out, "\nYou have multiple devices connected. Please enter the number of the one you would like to select (q to quit):")
	for i, d := range devices {
		fmt.Fprintf(c.Out, "%d) %s: %s\n", i+1, d.Serial, d.StatusText())
	}

	answer, err := c.readLine(ctx)
	if err != nil {
		return adb.Device{}, false, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(devices) {
		fmt.Fprintf(c.Out, "Invalid device number %q\n", answer)
		return adb.Device{}, false, nil
	}
	d := devices[n-1]
	return d, c.trySelect(d, "The selected device", "Alternatively, select another device."), nil
}

func (c *Chooser) trySelect(d adb.Device, name, unauthHint string) bool {
	switch d.Status {
	case adb.StatusReady:
		fmt.Fprintf(c.Out, "Chosen device: %s\n", d.Serial)
		c.ADB.SelectDevice(d.Serial)
		return true
	case adb.StatusUnauthorized:
		fmt.Fprintf(c.Out, "%s is unauthorized. Please go into your headset and press `Allow` to give your computer access. %s\n", name, unauthHint)
	default:
		fmt.Fprintf(c.Out, "%s is reporting an unknown status: %s. Please check your connection to your device and try another cable if necessary.\n", name, d.State)
	}
	return false
}

type lineResult struct {
	line string
	err  error
}

// readLine returns the trimmed next line. A closed stdin or "q" cancels;
// a cancelled ctx returns ctx.Err() without waiting for input.
func (c *Chooser) readLine(ctx context.Context) (string, error) {
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.In.ReadString('\n')
			ch <- lineResult{line, err}
		}()
	}

	var res lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-c.pending:
		c.pending = nil
	}

	line, err := res.line, res.err
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", errors.Wrap(err, "read stdin")
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
		return "", ErrCancelled
	}
	return line, nil
}

func find(devices []adb.Device, serial string) (adb.Device, bool) {
	for _, d := range devices {
		if d.Serial == serial {
			return d, true
		}
	}
	return adb.Device{}, false
}
