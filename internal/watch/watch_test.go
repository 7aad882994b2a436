package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestPathRebuildsAfterABurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.mvs")
	if err := os.WriteFile(entry, []byte("1"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var rebuilds int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Path(ctx, dir, ManifestPath(entry), func() {
			atomic.AddInt32(&rebuilds, 1)
		})
	}()

	// Give notify.Watch time to subscribe before generating events.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(entry, []byte("2"), 0o644); err != nil {
			t.Fatalf("failed to touch fixture: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Path did not return after ctx cancellation")
	}

	if n := atomic.LoadInt32(&rebuilds); n == 0 {
		t.Fatalf("expected at least one debounced rebuild, got %d", n)
	}
}

func TestManifestPathSitsNextToEntry(t *testing.T) {
	got := ManifestPath("/a/b/main.mvs")
	want := filepath.Join("/a/b", "mvsc.jsonc")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
