package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tebeka/atexit"

	"github.com/opal-lang/bfi/runtime/executor"
)

// watch runs path and runs it again each time the file is written, until
// ctx is done. A change cancels the running execution first; cancellation
// takes effect at the next loop iteration, so a run blocked reading input
// finishes that read before the restart.
func (a *app) watch(ctx context.Context, path string, opts runOptions, mode executor.EOFMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	atexit.Register(func() { _ = watcher.Close() })
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	useColor := ShouldUseColor(a.noColor, a.stderr)
	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- a.runOnce(runCtx, path, opts, mode) }()

		changed := false
		for !changed {
			select {
			case <-ctx.Done():
				cancel()
				if done != nil {
					<-done
				}
				return nil

			case err := <-done:
				done = nil
				if err != nil && runCtx.Err() == nil {
					FormatError(a.stderr, err, useColor)
				}
				a.logger.Info("waiting for changes", "file", path)

			case event, ok := <-watcher.Events:
				if !ok {
					cancel()
					return nil
				}
				if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					a.logger.Debug("file changed", "file", path, "op", event.Op.String())
					changed = true
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					cancel()
					return nil
				}
				a.logger.Warn("watch error", "error", err)
			}
		}

		cancel()
		if done != nil {
			<-done
		}
	}
}
