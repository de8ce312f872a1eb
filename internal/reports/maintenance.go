package reports

import (
	"fmt"
	"time"

	"visionreport/internal/shared/storage/jsondoc"
)

// LoadDocument reads a reports document for offline maintenance. Unlike
// OpenFileStore a missing file is an error.
func LoadDocument(path string) ([]Report, error) {
	var all []Report
	if err := jsondoc.Read(path, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// RewriteDocument backs up the current document and atomically replaces it
// with all. The backup path is returned.
func RewriteDocument(path string, all []Report, now time.Time) (string, error) {
	backupPath, err := jsondoc.Backup(path, now)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if all == nil {
		all = []Report{}
	}
	if err := jsondoc.WriteAtomic(path, all); err != nil {
		return backupPath, fmt.Errorf("rewrite: %w", err)
	}
	return backupPath, nil
}
