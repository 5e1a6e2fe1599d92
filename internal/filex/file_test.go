package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a", "b", "ledger.json")

	require.NoError(t, EnsureParentDir(path))

	fi, err := os.Stat(filepath.Join(tmp, "a", "b"))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_BareName(t *testing.T) {
	require.NoError(t, EnsureParentDir("ledger.json"))
}

func TestWriteFileAtomic_ReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestReadLine_Missing(t *testing.T) {
	line, ok, err := ReadLine(filepath.Join(t.TempDir(), "banking_device.txt"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, line)
}

func TestWriteLineReadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banking_device.txt")

	require.NoError(t, WriteLine(path, "AB12cd34"))
	line, ok, err := ReadLine(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "AB12cd34", line)

	require.NoError(t, os.WriteFile(path, []byte("  XY98zz11 \r\nignored\n"), 0o600))
	line, _, err = ReadLine(path)
	require.NoError(t, err)
	require.Equal(t, "XY98zz11", line)
}

func TestReadLine_Directory(t *testing.T) {
	_, _, err := ReadLine(t.TempDir())
	require.Error(t, err)
}
