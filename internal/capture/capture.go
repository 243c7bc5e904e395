package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/FluidXR/loggrabber/internal/adb"
	"github.com/FluidXR/loggrabber/internal/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Bridge is the device-scoped subset of the adb client a capture uses.
type Bridge interface {
	ListFiles(ctx context.Context, dir string) ([]string, error)
	ModTime(ctx context.Context, path string) (time.Time, error)
	Pull(ctx context.Context, remotePath, localPath string) error
	RunTimed(ctx context.Context, args []string, sink io.Writer, timeout time.Duration) error
}

// Capturer pulls diagnostics from the selected device into DumpDir.
type Capturer struct {
	ADB     Bridge
	Config  *config.Config
	DumpDir string
}

// Artifact is one file the capture tried to produce.
type Artifact struct {
	Name       string
	RemotePath string
	Size       int64
	Err        string
}

// Result summarizes a capture.
type Result struct {
	Artifacts []Artifact
	Errors    []string
}

// Pulled returns the artifacts that made it into the dump directory.
func (r Result) Pulled() []Artifact {
	var ok []Artifact
	for _, a := range r.Artifacts {
		if a.Err == "" {
			ok = append(ok, a)
		}
	}
	return ok
}

func (r *Result) record(a Artifact, err error) {
	if err != nil {
		a.Err = err.Error()
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", a.Name, err))
	}
	r.Artifacts = append(r.Artifacts, a)
}

func (r *Result) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
}

// IsFatal reports whether err means the environment is broken and the run
// must stop rather than carry on with the next step.
func IsFatal(err error) bool {
	return errors.Is(err, adb.ErrMalformedOutput)
}

// Run executes every capture step. Step failures are logged and collected in
// the result; the returned error is only set for fatal errors and
// cancellation, in which case the result holds what was captured so far.
func (c *Capturer) Run(ctx context.Context) (Result, error) {
	var result Result

	err := c.saveLogcat(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to save logcat data")
	} else {
		log.Info().Msg("successfully saved logcat")
	}
	result.record(c.artifact(c.Config.LogcatFile, strings.Join(c.Config.LogcatArgs, " ")), err)
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	for _, rule := range c.Config.Latest {
		name, err := c.LatestWithPrefix(ctx, rule.Dir, rule.Prefix)
		if IsFatal(err) || ctx.Err() != nil {
			return result, firstErr(ctx.Err(), err)
		}
		if err != nil {
			log.Error().Err(err).Str("dir", rule.Dir).Msg("failed to list directory")
			result.fail("list "+rule.Dir, err)
			continue
		}
		if name == "" {
			log.Warn().Str("dir", rule.Dir).Str("prefix", rule.Prefix).Msg("no matching file found")
			continue
		}
		result.record(c.pull(ctx, path.Join(rule.Dir, name)))
	}

	for _, remote := range c.Config.Files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.record(c.pull(ctx, remote))
	}
	return result, nil
}

func (c *Capturer) saveLogcat(ctx context.Context) error {
	f, err := os.Create(filepath.Join(c.DumpDir, c.Config.LogcatFile))
	if err != nil {
		return errors.Wrap(err, "create logcat file")
	}
	w := bufio.NewWriter(f)
	runErr := c.ADB.RunTimed(ctx, c.Config.LogcatArgs, w, c.Config.LogcatDuration)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = errors.Wrap(err, "write logcat file")
	}
	if err := f.Close(); err != nil && runErr == nil {
		runErr = errors.Wrap(err, "close logcat file")
	}
	return runErr
}

// LatestWithPrefix returns the name of the most recently modified entry in
// dir whose name starts with prefix, or "" when there is none. Candidates
// whose modification time cannot be read are skipped; on equal times the
// first listed wins.
func (c *Capturer) LatestWithPrefix(ctx context.Context, dir, prefix string) (string, error) {
	names, err := c.ADB.ListFiles(ctx, dir)
	if err != nil {
		return "", err
	}

	var (
		latest     string
		latestTime time.Time
	)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		remote := path.Join(dir, name)
		mtime, err := c.ADB.ModTime(ctx, remote)
		if IsFatal(err) {
			return "", err
		}
		if err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("failed to date file")
			continue
		}
		if latest == "" || mtime.After(latestTime) {
			latest, latestTime = name, mtime
		}
	}
	return latest, nil
}

// pull copies remote into the dump directory under its basename.
func (c *Capturer) pull(ctx context.Context, remote string) (Artifact, error) {
	a := Artifact{Name: path.Base(remote), RemotePath: remote}
	local := filepath.Join(c.DumpDir, a.Name)
	if err := c.ADB.Pull(ctx, remote, local); err != nil {
		log.Error().Err(err).Str("remote", remote).Msg("failed to pull")
		return a, err
	}
	log.Info().Str("remote", remote).Str("local", local).Msg("pulled")
	if info, err := os.Stat(local); err == nil {
		a.Size = info.Size()
	}
	return a, nil
}

func (c *Capturer) artifact(name, remote string) Artifact {
	a := Artifact{Name: name, RemotePath: remote}
	if info, err := os.Stat(filepath.Join(c.DumpDir, name)); err == nil {
		a.Size = info.Size()
	}
	return a
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
