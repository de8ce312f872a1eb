package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"visionreport/internal/shared/telemetry"
	"visionreport/internal/shared/util"
)

// Place moves staged files into <root>/<type folder>/ under collision-free
// names. A batch is placed whole or not at all: on failure every staged file
// and every file already moved is removed.
func Place(root string, files []StagedFile, t UploadType, now time.Time) ([]Upload, error) {
	dir := filepath.Join(root, t.Folder())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		Discard(files)
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	placed := make([]Upload, 0, len(files))
	for i, f := range files {
		name := util.UniqueFileName(f.OriginalName, now)
		dst := filepath.Join(dir, name)
		if err := moveFile(f.Path, dst); err != nil {
			Discard(files[i:])
			removePlaced(placed)
			return nil, fmt.Errorf("place %s: %w", f.OriginalName, err)
		}
		placed = append(placed, Upload{
			ID:         uuid.NewString(),
			FileName:   name,
			FileType:   normalizeMIME(f.ContentType),
			FilePath:   dst,
			UploadType: t,
			UploadedAt: now.UTC(),
		})
	}
	return placed, nil
}

func removePlaced(placed []Upload) {
	for _, u := range placed {
		if err := os.Remove(u.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			telemetry.Warn("uploads.place.cleanup_failed", map[string]any{"path": u.FilePath, "error": err})
		}
	}
}

// moveFile renames src to dst, copying when the two are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
