package rclone

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client wraps rclone command-line calls.
type Client struct {
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewClient creates a new rclone client.
func NewClient() *Client {
	return &Client{execCommand: exec.CommandContext}
}

// Available reports whether rclone is installed.
func Available() bool {
	_, err := exec.LookPath("rclone")
	return err == nil
}

// Copy uploads a local file to an rclone remote path.
// dest should be like "gdrive:QuestDumps/dump.zip"
func (c *Client) Copy(ctx context.Context, localPath, dest string) error {
	out, err := c.execCommand(ctx, "rclone", "copyto", localPath, dest).CombinedOutput()
	if err != nil {
		return fmt.Errorf("rclone copyto %s -> %s: %w\n%s", localPath, dest, err, out)
	}
	return nil
}

// IsReachable checks that a remote can be listed.
func (c *Client) IsReachable(ctx context.Context, remote string) bool {
	return c.execCommand(ctx, "rclone", "lsf", "--max-depth", "1", remote).Run() == nil
}

// Join appends name to an rclone remote, keeping the "remote:" form intact.
func Join(remote, name string) string {
	if remote == "" || strings.HasSuffix(remote, "/") || strings.HasSuffix(remote, ":") {
		return remote + name
	}
	return remote + "/" + name
}
