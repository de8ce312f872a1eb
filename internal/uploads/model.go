package uploads

import "time"

// UploadType selects the validation rules and the processing script.
type UploadType string

const (
	SingleImage    UploadType = "single-image"
	MultipleImages UploadType = "multiple-images"
	Video          UploadType = "video"
)

// Upload is a file that passed validation and was placed in its type folder.
type Upload struct {
	ID         string     `json:"id"`
	FileName   string     `json:"fileName"`
	FileType   string     `json:"fileType"`
	FilePath   string     `json:"filePath"`
	UploadType UploadType `json:"uploadType"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// StagedFile is a received file sitting in the staging area.
type StagedFile struct {
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

// Folder is the directory name placed files of this type live in.
func (t UploadType) Folder() string { return string(t) }
