// Package grabber runs one complete capture: it sets up the temp workspace
// and adb, picks a device, captures diagnostics, archives them and tears
// everything down again.
package grabber

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/FluidXR/loggrabber/internal/adb"
	"github.com/FluidXR/loggrabber/internal/archive"
	"github.com/FluidXR/loggrabber/internal/capture"
	"github.com/FluidXR/loggrabber/internal/chooser"
	"github.com/FluidXR/loggrabber/internal/config"
	"github.com/FluidXR/loggrabber/internal/manifest"
	"github.com/FluidXR/loggrabber/internal/publish"
	"github.com/FluidXR/loggrabber/internal/workspace"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const teardownTimeout = 10 * time.Second

// Bridge is everything a run needs from the adb client.
type Bridge interface {
	chooser.DeviceSelector
	capture.Bridge
	KillServer(ctx context.Context) error
}

// Grabber holds the collaborators of a run. History and Publisher are optional.
type Grabber struct {
	Config *config.Config
	In     *bufio.Reader
	Out    io.Writer

	// TempDir is the parent of the workspace, os.TempDir() when empty.
	TempDir string
	// Install places adb inside the workspace and returns its path.
	Install func(dir string) (string, error)
	// Connect builds the bridge for an adb executable.
	Connect func(exe string) Bridge

	History   *manifest.DB
	Publisher *publish.Publisher
}

// New returns a Grabber wired to the real adb client and terminal.
func New(cfg *config.Config, install func(dir string) (string, error)) *Grabber {
	return &Grabber{
		Config:  cfg,
		In:      bufio.NewReader(os.Stdin),
		Out:     os.Stdout,
		Install: install,
		Connect: func(exe string) Bridge { return adb.NewClient(exe) },
	}
}

// Report describes what a run produced.
type Report struct {
	Device        string
	Workspace     string
	Archive       string
	ArchiveErr    error
	KeptWorkspace bool
	Capture       capture.Result
	Published     []publish.Result
}

// Run performs one capture. Step failures end up in the report; the error
// is only set when the environment is broken (workspace, adb extraction,
// malformed adb output) or ctx was cancelled.
func (g *Grabber) Run(ctx context.Context) (report Report, err error) {
	started := time.Now()
	runID := g.startHistory(started)
	defer func() { g.finishHistory(runID, report, err) }()

	base := g.TempDir
	if base == "" {
		base = os.TempDir()
	}
	log.Info().Msg("please wait while platform-tools extracts")
	ws, err := workspace.Create(base, g.Config.WorkspaceName, g.Config.WorkspaceAttempts)
	if err != nil {
		return report, err
	}
	report.Workspace = ws.Root

	exe, err := g.Install(ws.Root)
	if err != nil {
		if rmErr := ws.Remove(); rmErr != nil {
			log.Warn().Err(rmErr).Msg("failed to delete temp dir")
		}
		return report, errors.Wrap(err, "extract platform-tools")
	}
	bridge := g.Connect(exe)
	defer g.teardown(bridge, ws, &report)

	ch := &chooser.Chooser{ADB: bridge, In: g.In, Out: g.Out, Preferred: g.Config.Device}
	device, err := ch.Choose(ctx)
	switch {
	case errors.Is(err, chooser.ErrCancelled):
		log.Info().Msg("no device selected, nothing captured")
		return report, nil
	case capture.IsFatal(err) || ctx.Err() != nil:
		return report, firstErr(ctx.Err(), err)
	case err != nil:
		log.Error().Err(err).Msg("failed to set up device")
		return report, nil
	}
	report.Device = device.Serial

	log.Info().Str("device", device.Serial).Msg("creating dump")
	c := &capture.Capturer{ADB: bridge, Config: g.Config, DumpDir: ws.DumpDir()}
	report.Capture, err = c.Run(ctx)
	if err != nil {
		return report, err
	}

	if _, err := archive.ZipDir(ws.DumpDir(), g.Config.Output); err != nil {
		log.Error().Err(err).Str("output", g.Config.Output).Msg("failed to save dump")
		report.ArchiveErr = err
		return report, nil
	}
	report.Archive = g.Config.Output
	log.Info().Str("output", g.Config.Output).Msg("successfully saved dump")

	if g.Publisher != nil {
		report.Published = g.Publisher.Publish(ctx, g.Config.Output, device.Serial, started)
	}
	return report, nil
}

// teardown stops the adb server and removes the workspace. The workspace
// stays when the archive could not be written, so nothing captured is lost.
func (g *Grabber) teardown(bridge Bridge, ws *workspace.Workspace, report *Report) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := bridge.KillServer(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to stop adb server")
	}

	if report.ArchiveErr != nil || g.Config.KeepWorkspace {
		report.KeptWorkspace = true
		log.Warn().Str("dir", ws.DumpDir()).Msg("keeping captured files")
		return
	}
	if err := ws.Remove(); err != nil {
		log.Warn().Err(err).Msg("failed to delete temp dir on shutdown")
	}
}

func (g *Grabber) startHistory(at time.Time) int64 {
	if g.History == nil {
		return 0
	}
	id, err := g.History.StartRun(at)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record run")
		return 0
	}
	return id
}

func (g *Grabber) finishHistory(id int64, report Report, runErr error) {
	if g.History == nil || id == 0 {
		return
	}
	run := manifest.Run{
		DeviceSerial: report.Device,
		ArchivePath:  report.Archive,
		OK:           runErr == nil && report.Archive != "",
	}
	if runErr != nil {
		run.Error = runErr.Error()
	} else if report.ArchiveErr != nil {
		run.Error = report.ArchiveErr.Error()
	}
	for _, a := range report.Capture.Artifacts {
		run.Artifacts = append(run.Artifacts, manifest.Artifact{
			Name:       a.Name,
			RemotePath: a.RemotePath,
			Size:       a.Size,
			Error:      a.Err,
		})
	}
	if err := g.History.FinishRun(id, run); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
