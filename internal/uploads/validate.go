package uploads

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"visionreport/internal/shared/telemetry"
)

type rule struct {
	mimes    map[string]struct{}
	exts     map[string]struct{}
	maxFiles int
}

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

var (
	imageMIMEs = set("image/jpeg", "image/png")
	imageExts  = set(".jpg", ".jpeg", ".png")
)

var rules = map[UploadType]rule{
	SingleImage:    {mimes: imageMIMEs, exts: imageExts, maxFiles: 1},
	MultipleImages: {mimes: imageMIMEs, exts: imageExts, maxFiles: 10},
	Video: {
		mimes:    set("video/mp4", "video/quicktime", "video/x-msvideo", "video/x-matroska", "video/webm"),
		exts:     set(".mp4", ".mov", ".avi", ".mkv", ".webm"),
		maxFiles: 1,
	},
}

// ParseUploadType resolves a client-supplied type name.
func ParseUploadType(raw string) (UploadType, error) {
	t := UploadType(strings.TrimSpace(raw))
	if _, ok := rules[t]; !ok {
		return "", &ValidationError{Err: ErrInvalidType, Reason: fmt.Sprintf("unknown type %q", raw)}
	}
	return t, nil
}

// Validate checks the batch against the allow-list for uploadType. Both the
// MIME type and the extension of every file must be allowed. On any violation
// every staged file is removed.
func Validate(uploadType string, files []StagedFile) (UploadType, error) {
	t, err := validate(uploadType, files)
	if err != nil {
		Discard(files)
		return "", err
	}
	return t, nil
}

func validate(uploadType string, files []StagedFile) (UploadType, error) {
	t, err := ParseUploadType(uploadType)
	if err != nil {
		return "", err
	}
	r := rules[t]
	if len(files) == 0 {
		return "", &ValidationError{Err: ErrNoFiles}
	}
	if len(files) > r.maxFiles {
		return "", &ValidationError{
			Err:    ErrTooManyFiles,
			Reason: fmt.Sprintf("%s accepts at most %d, got %d", t, r.maxFiles, len(files)),
		}
	}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.OriginalName))
		if _, ok := r.exts[ext]; !ok {
			return "", &ValidationError{Err: ErrInvalidFile, File: f.OriginalName, Reason: "extension not allowed"}
		}
		if _, ok := r.mimes[normalizeMIME(f.ContentType)]; !ok {
			return "", &ValidationError{Err: ErrInvalidFile, File: f.OriginalName, Reason: "content type not allowed"}
		}
	}
	return t, nil
}

// Discard removes staged files, ignoring ones already gone.
func Discard(files []StagedFile) {
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			telemetry.Warn("uploads.staging.cleanup_failed", map[string]any{"path": f.Path, "error": err})
		}
	}
}

func normalizeMIME(raw string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mt
}
