package reports

import "time"

// Report is one immutable entry in a user's processing history.
type Report struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	Filename       string    `json:"filename"`
	PDFPath        string    `json:"pdfPath"`
	ProcessedImage *string   `json:"processedImage"`
	Pages          int       `json:"pages,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasProcessedImage reports whether an association was recorded.
func (r Report) HasProcessedImage() bool {
	return r.ProcessedImage != nil && *r.ProcessedImage != ""
}
