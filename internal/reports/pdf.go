package reports

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFInfo is the metadata read from a generated report.
type PDFInfo struct {
	Pages int
	Title string
}

// InspectPDF reads the page count and document title of a PDF.
func InspectPDF(path string) (info PDFInfo, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("inspect pdf %s: %v", path, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info.Pages = r.NumPage()
	info.Title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())
	return info, nil
}
