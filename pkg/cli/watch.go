package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/modgen/pkg/codegen/cache"
	defaults "github.com/platinummonkey/modgen/pkg/codegen/config"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
	"github.com/platinummonkey/modgen/pkg/observability"
)

func newWatchCommand() *Command {
	cmd := &Command{
		Name:        "watch",
		Description: "Run generate again whenever a schema file changes",
		Flags:       flag.NewFlagSet("watch", flag.ExitOnError),
		Run:         runWatch,
	}

	cmd.Flags.Duration("debounce", defaults.DefaultWatchDebounce, "Quiet period before a burst of changes triggers a run")

	return cmd
}

func runWatch(args []string) error {
	cmd := newWatchCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	debounce, err := time.ParseDuration(cmd.Flags.Lookup("debounce").Value.String())
	if err != nil {
		return fmt.Errorf("invalid debounce: %w", err)
	}

	ctx, stop := commandContext()
	defer stop()

	env, err := setup(ctx, overrides{})
	if err != nil {
		return err
	}
	defer env.Close()

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}
	defer orch.Close()

	runCfg := orch.Config()
	files, err := protopath.Resolve(runCfg.Layout, runCfg.Extra)
	if err != nil {
		return err
	}

	w, err := newWatcher(func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	}, env.log, debounce, runCfg.Layout.Suffix)
	if err != nil {
		return err
	}
	w.seed(files)

	// A failing first run is reported like any later one; the watch goes on.
	w.regenerate(ctx)

	schemaDir, err := schemaDirOf(runCfg.Layout)
	if err != nil {
		return err
	}
	return w.Watch(ctx, watchDirs(schemaDir, files))
}

// schemaDirOf returns the absolute primary schema directory
func schemaDirOf(layout protopath.Layout) (string, error) {
	dir := layout.SchemaDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(layout.Root, dir)
	}
	return filepath.Abs(dir)
}

// watchDirs returns the primary schema directory followed by the other
// directories holding resolved schema files. The schema directory is watched
// even when it holds no schema yet.
func watchDirs(schemaDir string, files *protopath.FileSet) []string {
	dirs := []string{schemaDir}
	seen := map[string]bool{schemaDir: true}
	for _, f := range files.Files {
		dir := filepath.Dir(f.Path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// watcher re-runs the pipeline when watched files change. Events for files
// that are neither schemas nor resolved inputs, and for files whose content
// hash did not change, are ignored.
type watcher struct {
	run      func(ctx context.Context) error
	log      *logrus.Logger
	debounce time.Duration
	suffix   string
	tracked  map[string]bool
	hashes   *cache.FingerprintCache
}

func newWatcher(run func(ctx context.Context) error, log *logrus.Logger, debounce time.Duration, suffix string) (*watcher, error) {
	hashes, err := cache.NewFingerprintCache(cache.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaults.DefaultWatchDebounce
	}
	return &watcher{
		run:      run,
		log:      log,
		debounce: debounce,
		suffix:   suffix,
		tracked:  make(map[string]bool),
		hashes:   hashes,
	}, nil
}

// seed records the current content hash of every resolved file
func (w *watcher) seed(files *protopath.FileSet) {
	paths := make([]string, len(files.Files))
	for i, f := range files.Files {
		paths[i] = f.Path
		w.tracked[f.Path] = true
	}
	w.hashes.Seed(paths)
}

// changed reports whether an event may have changed the content of path
func (w *watcher) changed(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !w.tracked[event.Name] && !strings.HasSuffix(event.Name, w.suffix) {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.hashes.Forget(event.Name)
		return true
	}

	changed, err := w.hashes.Changed(event.Name)
	return err != nil || changed
}

// Watch blocks until ctx is done, running the pipeline after every burst of
// changes in dirs
func (w *watcher) Watch(ctx context.Context, dirs []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.log.WithField("dirs", dirs).Info("Watching for schema changes")

	triggers := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer observability.RecoverPanic(w.log, "watch event loop")
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				w.log.WithError(err).Warn("File watcher error")
			case event, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				if !w.changed(event) {
					continue
				}
				w.log.WithFields(logrus.Fields{
					"file": event.Name,
					"op":   event.Op.String(),
				}).Debug("Schema change detected")
				select {
				case triggers <- struct{}{}:
				default:
				}
			}
		}
	})

	g.Go(func() error {
		timer := time.NewTimer(w.debounce)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-triggers:
				timer.Reset(w.debounce)
			case <-timer.C:
				w.regenerate(ctx)
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// regenerate runs the pipeline once. Failures, panics included, are logged
// and do not stop the watch.
func (w *watcher) regenerate(ctx context.Context) (err error) {
	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			err = perr
		}
		if err != nil && ctx.Err() == nil {
			w.log.WithError(err).Error("Regeneration failed")
		}
	}()
	return w.run(ctx)
}
