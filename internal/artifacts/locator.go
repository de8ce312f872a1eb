// Package artifacts picks which file on disk belongs to a point in time.
//
// All "newest file" decisions in the service go through FindBestMatch so that
// upload selection, report association and backfill agree on one policy.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileRef is a candidate file and its modification time.
type FileRef struct {
	Path    string
	ModTime time.Time
}

// Filter decides whether a directory entry is a candidate.
type Filter func(name string) bool

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".webp": {},
}

// ImageFilter accepts common still-image extensions.
func ImageFilter(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AnyFile accepts every regular file.
func AnyFile(string) bool { return true }

// FindBestMatch returns the candidate with the latest modification time at or
// before reference. If every candidate is newer than reference it falls back to
// the one closest in time. Times are compared at millisecond resolution and
// ties keep the earliest candidate in input order.
func FindBestMatch(candidates []FileRef, reference time.Time) (FileRef, bool) {
	if len(candidates) == 0 {
		return FileRef{}, false
	}
	ref := reference.UnixMilli()

	bestPrior := -1
	for i, c := range candidates {
		mt := c.ModTime.UnixMilli()
		if mt > ref {
			continue
		}
		if bestPrior < 0 || mt > candidates[bestPrior].ModTime.UnixMilli() {
			bestPrior = i
		}
	}
	if bestPrior >= 0 {
		return candidates[bestPrior], true
	}

	nearest := 0
	nearestDiff := absDiff(candidates[0].ModTime.UnixMilli(), ref)
	for i := 1; i < len(candidates); i++ {
		if d := absDiff(candidates[i].ModTime.UnixMilli(), ref); d < nearestDiff {
			nearest, nearestDiff = i, d
		}
	}
	return candidates[nearest], true
}

// Latest returns the most recently modified candidate as of now.
func Latest(candidates []FileRef) (FileRef, bool) {
	return FindBestMatch(candidates, time.Now())
}

// ScanDir lists regular files directly inside dir that pass filter.
// A missing directory yields no candidates and no error.
func ScanDir(dir string, filter Filter) ([]FileRef, error) {
	if filter == nil {
		filter = AnyFile
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	out := make([]FileRef, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") || !filter(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, FileRef{Path: filepath.Join(dir, entry.Name()), ModTime: info.ModTime()})
	}
	return out, nil
}

// Stat builds FileRefs for explicit paths, skipping ones that no longer exist.
func Stat(paths []string) []FileRef {
	out := make([]FileRef, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, FileRef{Path: p, ModTime: info.ModTime()})
	}
	return out
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
