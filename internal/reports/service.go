package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"visionreport/internal/shared/metrics"
	"visionreport/internal/shared/storage/object"
	"visionreport/internal/shared/telemetry"
	"visionreport/internal/shared/util"
)

// Service contains business logic for reports.
type Service struct {
	Store Store
	// Archive optionally mirrors report PDFs. Nil disables mirroring.
	Archive object.ObjectStore
}

// Record persists a new report and mirrors its PDF into the archive. Archive
// failures are logged and never fail the call.
func (s *Service) Record(ctx context.Context, report Report) (Report, error) {
	created, err := s.Store.Create(ctx, report)
	if err != nil {
		return Report{}, err
	}
	metrics.IncReportsCreated()
	telemetry.Info("reports.created", map[string]any{
		"report_id":       created.ID,
		"user_id":         created.UserID,
		"processed_image": created.HasProcessedImage(),
		"pages":           created.Pages,
	})
	s.mirror(ctx, created)
	return created, nil
}

// List returns the user's reports, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	all, err := s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// Get returns a report owned by userID. Reports owned by someone else look
// exactly like missing ones.
func (s *Service) Get(ctx context.Context, userID, reportID string) (Report, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(reportID) == "" {
		return Report{}, ErrInvalidInput
	}
	report, err := s.Store.Get(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	if report.UserID != userID {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// Delete removes an owned report, then tries to remove its PDF.
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return err
	}
	removed, err := s.Store.Delete(ctx, reportID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	if report.PDFPath != "" {
		if err := os.Remove(report.PDFPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			telemetry.Warn("reports.pdf.remove_failed", map[string]any{
				"report_id": report.ID,
				"path":      report.PDFPath,
				"error":     err,
			})
		}
	}
	telemetry.Info("reports.deleted", map[string]any{"report_id": report.ID, "user_id": userID})
	return nil
}

// OpenPDF opens the PDF of an owned report, falling back to the archive when
// the local copy is gone.
func (s *Service) OpenPDF(ctx context.Context, userID, reportID string) (Report, io.ReadCloser, error) {
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return Report{}, nil, err
	}
	f, err := os.Open(report.PDFPath)
	if err == nil {
		return report, f, nil
	}
	if !errors.Is(err, os.ErrNotExist) || s.Archive == nil {
		return Report{}, nil, fmt.Errorf("open report pdf: %w", err)
	}
	rc, archErr := s.Archive.Open(ctx, ArchiveKey(report))
	if archErr != nil {
		return Report{}, nil, fmt.Errorf("open archived report pdf: %w", archErr)
	}
	return report, rc, nil
}

// ArchiveKey is the object key a report PDF is mirrored under.
func ArchiveKey(r Report) string {
	return util.HashUserKey(r.UserID) + "/" + r.ID + ".pdf"
}

func (s *Service) mirror(ctx context.Context, r Report) {
	if s.Archive == nil || r.PDFPath == "" {
		return
	}
	f, err := os.Open(r.PDFPath)
	if err != nil {
		telemetry.Warn("reports.archive.failed", map[string]any{"report_id": r.ID, "error": err})
		return
	}
	defer f.Close()

	size, err := s.Archive.Put(ctx, ArchiveKey(r), "application/pdf", f)
	if err != nil {
		telemetry.Warn("reports.archive.failed", map[string]any{"report_id": r.ID, "error": err})
		return
	}
	telemetry.Info("reports.archived", map[string]any{
		"report_id": r.ID,
		"key":       ArchiveKey(r),
		"bytes":     size,
		"file":      filepath.Base(r.PDFPath),
	})
}
