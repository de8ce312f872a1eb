package reports

import (
	"path/filepath"
	"strings"
)

// NormalizeImagePath canonicalizes a processed-image path for grouping.
func NormalizeImagePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.ToSlash(filepath.Clean(strings.ReplaceAll(p, "\\", "/")))
	return strings.TrimPrefix(p, "./")
}

// Dedupe groups reports by (user, normalized processed image) and keeps only
// the newest report of each group. Equal CreatedAt values keep the one that
// appears later in the collection. Reports without a processed image are never
// grouped. Kept reports retain their original order.
func Dedupe(all []Report) (kept, removed []Report) {
	winner := make(map[string]int)
	for i, r := range all {
		key, ok := dedupeKey(r)
		if !ok {
			continue
		}
		cur, seen := winner[key]
		if !seen || !r.CreatedAt.Before(all[cur].CreatedAt) {
			winner[key] = i
		}
	}

	kept = make([]Report, 0, len(all))
	for i, r := range all {
		key, ok := dedupeKey(r)
		if !ok || winner[key] == i {
			kept = append(kept, r)
			continue
		}
		removed = append(removed, r)
	}
	return kept, removed
}

func dedupeKey(r Report) (string, bool) {
	if !r.HasProcessedImage() {
		return "", false
	}
	return r.UserID + "\x00" + NormalizeImagePath(*r.ProcessedImage), true
}
