package uploads

import (
	"visionreport/internal/artifacts"
)

// SelectForProcessing returns the single newest placed file. Only one file per
// request is processed even for multi-file batches. Without placed records the
// newest file already in folder is used.
func SelectForProcessing(placed []Upload, folder string) ([]string, error) {
	if len(placed) > 0 {
		paths := make([]string, 0, len(placed))
		for _, u := range placed {
			paths = append(paths, u.FilePath)
		}
		if best, ok := artifacts.Latest(artifacts.Stat(paths)); ok {
			return []string{best.Path}, nil
		}
	}

	onDisk, err := artifacts.ScanDir(folder, artifacts.AnyFile)
	if err != nil {
		return nil, err
	}
	if best, ok := artifacts.Latest(onDisk); ok {
		return []string{best.Path}, nil
	}
	return nil, nil
}
