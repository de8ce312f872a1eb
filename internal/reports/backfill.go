package reports

import (
	"visionreport/internal/artifacts"
)

// Proposal is a suggested processed-image association for a report that has none.
type Proposal struct {
	ReportID       string `json:"reportId"`
	UserID         string `json:"userId"`
	ProcessedImage string `json:"processedImage"`
}

// Backfill proposes associations for reports lacking a processed image, using
// the report creation time as the reference for the locator.
func Backfill(all []Report, candidates []artifacts.FileRef) []Proposal {
	var out []Proposal
	for _, r := range all {
		if r.HasProcessedImage() {
			continue
		}
		match, ok := artifacts.FindBestMatch(candidates, r.CreatedAt)
		if !ok {
			continue
		}
		out = append(out, Proposal{ReportID: r.ID, UserID: r.UserID, ProcessedImage: match.Path})
	}
	return out
}

// ApplyProposals returns a copy of all with the proposed images filled in.
// Reports that already have an association are never changed.
func ApplyProposals(all []Report, proposals []Proposal) []Report {
	byID := make(map[string]string, len(proposals))
	for _, p := range proposals {
		byID[p.ReportID] = p.ProcessedImage
	}
	out := make([]Report, len(all))
	for i, r := range all {
		if img, ok := byID[r.ID]; ok && !r.HasProcessedImage() {
			img := img
			r.ProcessedImage = &img
		}
		out[i] = r
	}
	return out
}
