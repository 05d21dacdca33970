package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
`)

	w, err := NewWatcher(path, slog.Default())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if w.Config().Pool.Size != 3 {
		t.Errorf("Config().Pool.Size = %d, want 3", w.Config().Pool.Size)
	}
}

func TestWatcherSwapsOnValidReload(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
`)

	w, err := NewWatcher(path, slog.Default())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	SetConfig(w.Config())

	if err := os.WriteFile(path, []byte("pool:\n  size: 7\n"), 0o600); err != nil {
		t.Fatalf("write updated config: %v", err)
	}

	waitForCondition(t, time.Second, func() bool {
		return w.Config().Pool.Size == 7
	})

	if got := GetConfig().Pool.Size; got != 7 {
		t.Errorf("GetConfig().Pool.Size = %d after reload, want 7 (Watcher should swap the global singleton)", got)
	}
}

func TestWatcherRejectsInvalidReload(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
`)

	w, err := NewWatcher(path, slog.Default())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	SetConfig(w.Config())

	if err := os.WriteFile(path, []byte("pool:\n  size: -1\n"), 0o600); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	// A rejected reload never happens, so there's nothing to poll for;
	// give the watcher loop a chance to process the event and confirm
	// nothing changed.
	time.Sleep(200 * time.Millisecond)

	if got := w.Config().Pool.Size; got != 3 {
		t.Errorf("Config().Pool.Size = %d after invalid reload, want unchanged 3", got)
	}
	if got := GetConfig().Pool.Size; got != 3 {
		t.Errorf("GetConfig().Pool.Size = %d after invalid reload, want unchanged 3", got)
	}
}
