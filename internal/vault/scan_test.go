package vault_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/vault"
)

func TestIsActivityFile(t *testing.T) {
	require.True(t, vault.IsActivityFile("morning-run.fit"))
	require.True(t, vault.IsActivityFile("2024-05-01.FIT"))
	require.True(t, vault.IsActivityFile("ride.Fit"))
	require.False(t, vault.IsActivityFile("ride.fit.gz"))
	require.False(t, vault.IsActivityFile("notes.txt"))
	require.False(t, vault.IsActivityFile("fit"))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, mod, mod))
		return path
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	newest := write("c.fit", base.Add(2*time.Hour))
	oldest := write("b.FIT", base)
	middle := write("a.fit", base.Add(time.Hour))
	write("notes.txt", base)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.fit"), 0o755))

	paths, err := vault.Scan(dir)
	require.NoError(t, err)
	require.Equal(t, []string{oldest, middle, newest}, paths)
}

func TestScanEmptyDir(t *testing.T) {
	paths, err := vault.Scan(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestScanMissingDir(t *testing.T) {
	_, err := vault.Scan(filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
}
