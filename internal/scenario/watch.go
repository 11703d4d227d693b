package scenario

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agusx1211/scamsim/internal/debug"
)

const watchDebounce = 200 * time.Millisecond

// Watch reloads the catalog at path every time the file is written and
// passes the result to onChange. Saves closer together than the debounce
// window produce one reload. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Catalog, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	// Editors often replace the file through a rename, which drops a watch
	// on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	debug.LogKV("scenario", "watching catalog", "path", abs)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			settle = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			debug.LogKV("scenario", "watch error", "path", abs, "error", err)
		case <-settle:
			settle = nil
			c, err := LoadFile(abs)
			debug.LogKV("scenario", "catalog reloaded", "path", abs, "ok", err == nil)
			onChange(c, err)
		}
	}
}
