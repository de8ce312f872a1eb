package jsondoc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestWriteAtomicThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "items.json")

	require.NoError(t, WriteAtomic(path, []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}))

	var got []item
	require.NoError(t, Read(path, &got))
	assert.Equal(t, []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestReadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	var got []item
	assert.ErrorIs(t, Read(path, &got), ErrMissing)
	assert.NoError(t, ReadOrEmpty(path, &got))
	assert.Empty(t, got)
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))

	var got []item
	err := Read(path, &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissing)
}

func TestWriteAtomicKeepsOldDocumentOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, WriteAtomic(path, []item{{ID: "1"}}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Channels cannot be encoded, so the write fails before touching disk.
	err = WriteAtomic(path, map[string]any{"bad": make(chan int)})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBackupIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	original := []byte("[\n  {\"id\": \"x\"}\n]\n")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	backupPath, err := Backup(path, now)
	require.NoError(t, err)
	assert.Equal(t, path+".backup-20240301T123000.000Z", backupPath)

	copied, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	_, err = Backup(filepath.Join(t.TempDir(), "none.json"), now)
	assert.ErrorIs(t, err, ErrMissing)
}
