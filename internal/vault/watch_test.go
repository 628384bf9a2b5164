package vault_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/vault"
)

// startWatcher runs w until the test ends and returns the channel of
// reported paths plus the Run error channel.
func startWatcher(t *testing.T, w *vault.Watcher, fn func(string) error) (<-chan string, <-chan error, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) error {
			got <- path
			if fn != nil {
				return fn(path)
			}
			return nil
		})
	}()

	// Give the watcher a moment to register before the test writes files.
	time.Sleep(100 * time.Millisecond)
	return got, done, cancel
}

func waitFor(t *testing.T, got <-chan string, want string) {
	t.Helper()
	select {
	case p := <-got:
		require.Equal(t, want, p)
	case <-time.After(5 * time.Second):
		t.Fatalf("%s was never reported", want)
	}
}

func TestWatcherReportsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	w := vault.NewWatcher(dir, 25*time.Millisecond, nil)
	got, done, cancel := startWatcher(t, w, nil)

	path := filepath.Join(dir, "morning-run.fit")
	require.NoError(t, os.WriteFile(path, []byte("not a real activity"), 0o644))

	waitFor(t, got, path)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := vault.NewWatcher(dir, 25*time.Millisecond, nil)
	got, _, _ := startWatcher(t, w, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	ride := filepath.Join(dir, "ride.FIT")
	require.NoError(t, os.WriteFile(ride, []byte("y"), 0o644))

	waitFor(t, got, ride)

	select {
	case p := <-got:
		t.Fatalf("unexpected report for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCallbackErrorDoesNotStopWatch(t *testing.T) {
	dir := t.TempDir()
	w := vault.NewWatcher(dir, 25*time.Millisecond, nil)
	got, _, _ := startWatcher(t, w, func(string) error {
		return errors.New("decode failed")
	})

	first := filepath.Join(dir, "a.fit")
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o644))
	waitFor(t, got, first)

	second := filepath.Join(dir, "b.fit")
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o644))
	waitFor(t, got, second)
}

func TestWatcherMissingDir(t *testing.T) {
	w := vault.NewWatcher(filepath.Join(t.TempDir(), "gone"), time.Second, nil)
	err := w.Run(context.Background(), func(string) error { return nil })
	require.Error(t, err)
	require.Contains(t, err.Error(), "watching")
}
