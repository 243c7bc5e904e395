package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrExhausted is returned when no workspace name could be claimed.
var ErrExhausted = errors.New("no usable workspace directory")

const dumpDirName = "dump"

// removeAll is swapped in tests to simulate a locked stale workspace.
var removeAll = os.RemoveAll

// Workspace is the temp directory a run owns: the extracted platform-tools
// plus the dump directory pulled files accumulate in.
type Workspace struct {
	Root string
}

// Create claims <base>/<name>, falling back to <name>-1, <name>-2, ... for up
// to attempts names. A stale directory left by a previous run is removed
// first; if that fails another instance probably still uses it.
func Create(base, name string, attempts int) (*Workspace, error) {
	for i := 0; i < attempts; i++ {
		dir := filepath.Join(base, name)
		if i > 0 {
			dir = filepath.Join(base, fmt.Sprintf("%s-%d", name, i))
		}

		if err := removeAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove existing temp folder, is another instance running? trying another one")
			continue
		}
		if err := os.Mkdir(dir, 0o700); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to create temp folder, trying another one")
			continue
		}
		ws := &Workspace{Root: dir}
		if err := os.Mkdir(ws.DumpDir(), 0o700); err != nil {
			return nil, errors.Wrap(err, "create dump directory")
		}
		return ws, nil
	}
	return nil, errors.Wrapf(ErrExhausted, "tried %d names under %s", attempts, base)
}

// DumpDir is where pulled artifacts are stored.
func (w *Workspace) DumpDir() string {
	return filepath.Join(w.Root, dumpDirName)
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	if err := removeAll(w.Root); err != nil {
		return errors.Wrapf(err, "remove %s", w.Root)
	}
	return nil
}
