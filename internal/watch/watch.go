// Package watch implements SPEC_FULL.md §4.11's --watch mode: re-run a
// build whenever the entry file or its mvsc.jsonc manifest changes.
//
// Grounded directly on Heliodex-coputer/wallflower/watch.go's watchPath:
// the same github.com/syncthing/notify subscription plus a resettable
// time.Timer debounce, so a burst of writes from one save collapses into a
// single rebuild instead of one per fsnotify event.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/syncthing/notify"
)

// debounce is how long to wait after the last filesystem event before
// treating the burst as settled — the same interval wallflower's own
// watchPath uses.
const debounce = 100 * time.Millisecond

// Path watches path (and, if manifestPath is non-empty, that file too) and
// calls rebuild once per debounced burst of changes, until ctx is done.
// rebuild's own errors are not watch's concern — the caller decides
// whether to log them and keep watching or to stop.
func Path(ctx context.Context, path, manifestPath string, rebuild func()) error {
	c := make(chan notify.EventInfo, 8)
	if err := notify.Watch(path, c, notify.All); err != nil {
		return err
	}
	defer notify.Stop(c)

	if manifestPath != "" {
		if _, err := os.Stat(manifestPath); err == nil {
			if err := notify.Watch(manifestPath, c, notify.All); err != nil {
				return err
			}
		}
	}

	var timer *time.Timer
	timeout := func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
		case <-timeout():
			rebuild()
			timer = nil
		}
	}
}

// ManifestPath returns the mvsc.jsonc path that would sit alongside entry,
// whether or not it currently exists (manifest.Load tolerates a missing
// file). watch.Path watches it only if it exists when Path starts; a
// manifest created later is not tracked.
func ManifestPath(entry string) string {
	return filepath.Join(filepath.Dir(entry), "mvsc.jsonc")
}
