// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds on change: it tracks the files a build read and
// invokes a callback after a debounce period once any of them changes.
// Events within the debounce window are coalesced so the callback fires once
// with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce applies when Config.Debounce is not positive.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores are always excluded, whatever the user configures. They
// cover VCS metadata, editor swap files and OS metadata files that generate
// high-frequency noise next to tracked sources.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Files are the paths whose changes trigger the callback. The
		// watcher registers their parent directories so that editors which
		// replace files by renaming are still observed.
		Files []string

		// Ignore are doublestar globs, matched against slash-separated
		// absolute paths without the leading slash, for files that never
		// trigger the callback. They are merged with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated list of changed paths.
		// It may call SetFiles to update the tracked set for the next round.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watcher diagnostics. nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors a set of files and fires a debounced callback when any
	// of them changes. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool

		mu    sync.Mutex
		files map[string]struct{}
		dirs  map[string]struct{}
	}
)

// New validates cfg, creates the fsnotify watcher and registers the
// directories of cfg.Files.
func New(cfg Config) (*Watcher, error) {
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		logger:   logger,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}

	if err := w.SetFiles(cfg.Files); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// SetFiles replaces the tracked file set. Directories that no longer hold a
// tracked file are unregistered.
func (w *Watcher) SetFiles(files []string) error {
	nextFiles := make(map[string]struct{}, len(files))
	nextDirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watch: resolve %q: %w", f, err)
		}
		nextFiles[abs] = struct{}{}
		nextDirs[filepath.Dir(abs)] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range nextDirs {
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
	}
	for dir := range w.dirs {
		if _, ok := nextDirs[dir]; ok {
			continue
		}
		if err := w.fsw.Remove(dir); err != nil {
			w.logger.Debug("remove watched directory", "dir", dir, "err", err)
		}
	}

	w.files = nextFiles
	w.dirs = nextDirs
	return nil
}

// Files returns the tracked files, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.files))
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on cancellation and
// propagates fatal watcher errors.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		pendingMu sync.Mutex
		pending   = make(map[string]struct{})
		timer     *time.Timer
		running   atomic.Bool
	)

	// fire may be scheduled after ctx is cancelled, so it re-checks ctx. A
	// callback still running when the timer fires again is not re-entered;
	// the timer is re-armed so pending changes are picked up afterwards.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still in progress, deferring")
			pendingMu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			pendingMu.Unlock()
			return
		}
		defer running.Store(false)

		pendingMu.Lock()
		if len(pending) == 0 {
			pendingMu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		pendingMu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "err", err)
			}
		}
	}

	defer func() {
		pendingMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		pendingMu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Clean(evt.Name)
			if !w.tracks(name) || w.isIgnored(name) {
				continue
			}
			w.logger.Debug("change detected", "path", name, "op", evt.Op.String())

			pendingMu.Lock()
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			pendingMu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			// isFatalFsnotifyError is platform-specific (see watcher_fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) tracks(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

// isIgnored reports whether path matches any ignore pattern.
func (w *Watcher) isIgnored(path string) bool {
	return matchesAny(w.ignores, path)
}

func matchesAny(patterns []string, path string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	return nil
}
