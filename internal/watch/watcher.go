// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"commodore-cli/internal/fragment"
	"commodore-cli/internal/manifest"
)

// defaultDebounce is the quiet period before the callback fires. Editors
// commonly write a temp file and rename it, which produces several events.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores lists paths that never trigger callbacks.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrInvalidConfig is returned by New when Config fails validation.
var ErrInvalidConfig = errors.New("invalid watch config")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the development environment root containing apps/.
		Root string

		// Prefix is the commodity fragment prefix, e.g. "db2-community".
		Prefix string

		// Ignore are extra doublestar patterns, relative to Root, merged
		// with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative falls back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated names of the apps whose
		// fragments changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, apps []string) error

		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Watcher monitors the fragment directories of every app and fires a
	// debounced callback when a fragment is created or edited. Run must be
	// called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		pattern  string
		ignores  []string
		logger   *slog.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// Validate checks that the config names a root and a prefix and that all
// ignore patterns are valid globs.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root directory is required"))
	}
	if strings.TrimSpace(c.Prefix) == "" {
		errs = append(errs, errors.New("fragment prefix is required"))
	}
	if strings.ContainsAny(c.Prefix, "/\\*?[") {
		errs = append(errs, fmt.Errorf("fragment prefix %q contains path or glob characters", c.Prefix))
	}
	if err := validatePatterns(c.Ignore); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Pattern returns the doublestar pattern, relative to the root, that matches
// fragment files for prefix.
func Pattern(prefix string) string {
	return manifest.AppsDirName + "/*/" + fragment.DirName + "/" + prefix + "-init-fragment.*"
}

// New creates a Watcher and registers the apps tree with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root directory: %w", err)
	}

	appsDir := filepath.Join(absRoot, manifest.AppsDirName)
	info, err := os.Stat(appsDir)
	if err != nil {
		return nil, fmt.Errorf("watch: apps directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", appsDir)
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
		logger = slog.Default()
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		pattern:  Pattern(cfg.Prefix),
		ignores:  ignores,
		logger:   logger,
		debounce: debounce,
		root:     absRoot,
	}

	if _, err := w.addTree(appsDir); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close fsnotify after init failure", "error", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and propagates fatal watcher errors.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after cancellation because it is scheduled by AfterFunc.
	// Only one callback runs at a time; a busy callback reschedules.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("provisioning still in progress, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		apps := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Info("fragments changed", "apps", apps)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, apps); err != nil {
				w.logger.Error("watch callback failed", "error", err)
			}
		}
	}

	enqueue := func(apps ...string) {
		if len(apps) == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, app := range apps {
			pending[app] = struct{}{}
		}
		if timer == nil {
			timer = time.AfterFunc(w.debounce, fire)
		} else {
			timer.Reset(w.debounce)
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil {
			localTimer.Stop()
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "error", closeErr)
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

			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil || w.isIgnored(rel) {
				continue
			}

			// Apps and fragment directories created after startup are
			// registered, and any fragments already inside are picked up.
			if evt.Has(fsnotify.Create) {
				if info, statErr := os.Stat(evt.Name); statErr == nil && info.IsDir() {
					found, addErr := w.addTree(evt.Name)
					if addErr != nil {
						w.logger.Warn("watch new directory", "path", evt.Name, "error", addErr)
					}
					enqueue(found...)
					continue
				}
			}

			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			if app, ok := w.appFor(rel); ok {
				enqueue(app)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// addTree registers dir and every non-ignored directory beneath it, and
// returns the apps owning any fragment files found along the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	found := make(map[string]struct{})
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkDirErr)
			return nil //nolint:nilerr // inaccessible paths are skipped
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // paths outside the root are skipped
		}

		if !d.IsDir() {
			if app, ok := w.appFor(rel); ok {
				found[app] = struct{}{}
			}
			return nil
		}

		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return slices.Sorted(maps.Keys(found)), nil
}

// appFor returns the app owning rel when rel is a fragment file.
func (w *Watcher) appFor(rel string) (string, bool) {
	normalized := filepath.ToSlash(rel)
	matched, err := doublestar.Match(w.pattern, normalized)
	if err != nil || !matched {
		return "", false
	}
	parts := strings.Split(normalized, "/")
	return parts[1], true
}

func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
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
		if pat == "" || !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid ignore pattern %q", pat)
		}
	}
	return nil
}
