/*
DESCRIPTION
  watch.go implements the MMSOLVER_DEFAULT_SOLVER process-wide
  override as an explicitly constructed SolverTypeWatcher rather than
  a package-level global, so the override is visible configuration at
  solve-driver construction instead of hidden singleton state. It
  reads the environment variable once at construction and, if a file
  path is supplied, also watches that file with fsnotify so a host can
  update the override without restarting the process.

AUTHORS
  The mmsolver Authors.
*/

package solve

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/logging"
)

// SolverTypeWatcher holds the current solver_type override, refreshed
// from MMSOLVER_DEFAULT_SOLVER at construction and, optionally, from a
// watched file afterward.
type SolverTypeWatcher struct {
	current  *atomic.Int32
	fallback SolverType
	watcher  *fsnotify.Watcher
	logger   logging.Logger
}

// NewSolverTypeWatcher reads MMSOLVER_DEFAULT_SOLVER once and returns
// a SolverTypeWatcher defaulting to fallback on an empty or
// unrecognised value; an unrecognised value logs a warning and leaves
// the current value unchanged rather than failing construction. If
// path is non-empty, the file itself is watched for write and create
// events; the file's trimmed contents are parsed the same way as the
// environment variable on every such event.
func NewSolverTypeWatcher(path string, fallback SolverType, logger logging.Logger) (*SolverTypeWatcher, error) {
	w := &SolverTypeWatcher{current: new(atomic.Int32), fallback: fallback, logger: logger}
	w.current.Store(int32(fallback))

	if env := os.Getenv("MMSOLVER_DEFAULT_SOLVER"); env != "" {
		w.apply(env, "MMSOLVER_DEFAULT_SOLVER")
	}

	if path == "" {
		return w, nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "solve: creating solver-type file watcher")
	}
	w.watcher = fw
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "solve: watching %s", path)
	}
	go w.loop(path)
	return w, nil
}

func (w *SolverTypeWatcher) apply(raw, source string) {
	name := strings.TrimSpace(strings.ToLower(raw))
	t, ok := ParseSolverType(name)
	if !ok {
		if w.logger != nil {
			w.logger.Warning("solve: unrecognised solver type override, using default", "source", source, "value", raw)
		}
		return
	}
	w.current.Store(int32(t))
}

func (w *SolverTypeWatcher) loop(path string) {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			w.apply(string(data), path)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Current returns the solver_type override currently in effect.
// Solve does not read the watcher; a solve uses the SolverType in its
// Options, which stays fixed even if the override changes while it
// runs.
func (w *SolverTypeWatcher) Current() SolverType { return SolverType(w.current.Load()) }

// Close stops the file watcher, if one was started.
func (w *SolverTypeWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}
