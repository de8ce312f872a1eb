package uploads

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedName = regexp.MustCompile(`^1714557600000-[0-9a-f]{8}-myphoto1\.png$`)

func TestPlaceMovesIntoTypeFolder(t *testing.T) {
	staging := t.TempDir()
	root := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	files := []StagedFile{stageFile(t, staging, "my photo (1).PNG", "image/png")}
	placed, err := Place(root, files, SingleImage, now)
	require.NoError(t, err)
	require.Len(t, placed, 1)

	u := placed[0]
	assert.Regexp(t, placedName, u.FileName)
	assert.Equal(t, filepath.Join(root, "single-image", u.FileName), u.FilePath)
	assert.Equal(t, "image/png", u.FileType)
	assert.Equal(t, SingleImage, u.UploadType)
	assert.NotEmpty(t, u.ID)

	body, err := os.ReadFile(u.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "data:my photo (1).PNG", string(body))

	_, err = os.Stat(files[0].Path)
	assert.True(t, os.IsNotExist(err), "staged file must be moved")
}

func TestPlaceUniqueNames(t *testing.T) {
	staging := t.TempDir()
	root := t.TempDir()
	now := time.Now()

	files := []StagedFile{
		stageFile(t, staging, "same.png", "image/png"),
		stageFile(t, staging, "same.png", "image/png"),
	}
	placed, err := Place(root, files, MultipleImages, now)
	require.NoError(t, err)
	require.Len(t, placed, 2)
	assert.NotEqual(t, placed[0].FilePath, placed[1].FilePath)
}

func TestMoveFileCopyFallback(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, copyFile(src, filepath.Join(t.TempDir(), "dst.bin")))

	existing := filepath.Join(t.TempDir(), "exists.bin")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	assert.Error(t, copyFile(src, existing), "copy must not overwrite")
}

func TestPlaceFailureRemovesWholeBatch(t *testing.T) {
	staging := t.TempDir()
	root := t.TempDir()

	good := stageFile(t, staging, "a.png", "image/png")
	gone := StagedFile{Path: filepath.Join(staging, "vanished"), OriginalName: "b.png", ContentType: "image/png"}

	placed, err := Place(root, []StagedFile{good, gone}, MultipleImages, time.Now())
	require.Error(t, err)
	assert.Nil(t, placed)

	left, readErr := os.ReadDir(filepath.Join(root, "multiple-images"))
	require.NoError(t, readErr)
	assert.Empty(t, left, "no file of a failed batch may stay placed")
	staged, readErr := os.ReadDir(staging)
	require.NoError(t, readErr)
	assert.Empty(t, staged)
}
