package uploads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"visionreport/internal/artifacts"
	"visionreport/internal/processrunner"
	"visionreport/internal/reports"
	"visionreport/internal/shared/metrics"
	"visionreport/internal/shared/telemetry"
	"visionreport/internal/shared/util"
)

const recentLimit = 100

// ScriptRunner runs one external processing script against input paths.
type ScriptRunner interface {
	RunScript(ctx context.Context, executable, script string, argPaths ...string) (processrunner.Result, error)
}

// ReportRecorder persists a report produced by a processing run.
type ReportRecorder interface {
	Record(ctx context.Context, report reports.Report) (reports.Report, error)
}

// Config holds the filesystem layout and processing commands.
type Config struct {
	UploadsDir   string
	ReportsDir   string
	Executable   string
	ArtifactPath string
	Scripts      map[UploadType]string
}

// Request is one client submission. An empty UserID means unauthenticated.
type Request struct {
	UploadType string
	Files      []StagedFile
	UserID     string
}

// Result summarizes a completed run.
type Result struct {
	UploadType UploadType       `json:"uploadType"`
	Uploads    []Upload         `json:"uploads"`
	Processed  []string         `json:"processed"`
	Reports    []reports.Report `json:"reports"`
}

type recentUpload struct {
	upload Upload
	userID string
}

// Pipeline validates, places and processes uploads, then records reports.
type Pipeline struct {
	cfg      Config
	runner   ScriptRunner
	recorder ReportRecorder
	now      func() time.Time

	// runSlot serializes script runs with the artifact copy; every run
	// writes the same ArtifactPath.
	runSlot chan struct{}

	mu     sync.Mutex
	recent []recentUpload
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cfg Config, runner ScriptRunner, recorder ReportRecorder) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		now:      time.Now,
		runSlot:  make(chan struct{}, 1),
	}
}

// Run executes the whole pipeline for one request. A failed external process
// fails the request; placed files are kept. Reports are only created for
// authenticated requests whose run left an artifact behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	t, err := Validate(req.UploadType, req.Files)
	if err != nil {
		metrics.ObserveUpload(typeLabel(req.UploadType), "rejected")
		return Result{}, err
	}

	placed, err := Place(p.cfg.UploadsDir, req.Files, t, p.now())
	if err != nil {
		metrics.ObserveUpload(string(t), "failed")
		return Result{UploadType: t}, err
	}
	p.remember(placed, req.UserID)
	telemetry.Info("uploads.placed", map[string]any{
		"upload_type": t,
		"count":       len(placed),
		"user_id":     req.UserID,
	})

	res := Result{UploadType: t, Uploads: placed, Processed: []string{}, Reports: []reports.Report{}}

	targets, err := SelectForProcessing(placed, filepath.Join(p.cfg.UploadsDir, t.Folder()))
	if err != nil {
		metrics.ObserveUpload(string(t), "failed")
		return res, fmt.Errorf("select target: %w", err)
	}

	script := p.cfg.Scripts[t]
	for _, target := range targets {
		report, ran, ok, err := p.process(ctx, t, script, target, req.UserID, placed)
		if ran {
			res.Processed = append(res.Processed, target)
		}
		if err != nil {
			metrics.ObserveUpload(string(t), "failed")
			return res, err
		}
		if ok {
			res.Reports = append(res.Reports, report)
		}
	}

	metrics.ObserveUpload(string(t), "processed")
	return res, nil
}

// Recent returns up to limit of the user's most recent uploads, newest first.
func (p *Pipeline) Recent(userID string, limit int) []Upload {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []Upload{}
	for i := len(p.recent) - 1; i >= 0 && len(out) < limit; i-- {
		if p.recent[i].userID == userID {
			out = append(out, p.recent[i].upload)
		}
	}
	return out
}

func (p *Pipeline) remember(placed []Upload, userID string) {
	if len(placed) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range placed {
		p.recent = append(p.recent, recentUpload{upload: u, userID: userID})
	}
	if over := len(p.recent) - recentLimit; over > 0 {
		p.recent = append([]recentUpload(nil), p.recent[over:]...)
	}
}

// process runs the script for one target and records the resulting report.
// Only one run holds ArtifactPath at a time. ran reports whether the script
// finished successfully.
func (p *Pipeline) process(ctx context.Context, t UploadType, script, target, userID string, placed []Upload) (report reports.Report, ran, ok bool, err error) {
	select {
	case p.runSlot <- struct{}{}:
	case <-ctx.Done():
		return reports.Report{}, false, false, fmt.Errorf("%w: %v", processrunner.ErrBusy, ctx.Err())
	}
	defer func() { <-p.runSlot }()

	if err := os.Remove(p.cfg.ArtifactPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("uploads.artifact.clear_failed", map[string]any{"path": p.cfg.ArtifactPath, "error": err})
	}
	// Filesystems with coarse mtimes round down to the second.
	started := time.Now().Truncate(time.Second)

	if _, err := p.runner.RunScript(ctx, p.cfg.Executable, script, target); err != nil {
		telemetry.Error("uploads.process.failed", map[string]any{
			"upload_type": t,
			"target":      target,
			"error":       err,
		})
		return reports.Report{}, false, false, err
	}

	report, ok, err = p.recordReport(ctx, t, userID, started, placed)
	return report, true, ok, err
}

// recordReport turns the artifact of a successful run into a report. ok is
// false when no report was created for a reason that does not fail the request.
// Artifacts older than started were left by an earlier run and are ignored.
func (p *Pipeline) recordReport(ctx context.Context, t UploadType, userID string, started time.Time, placed []Upload) (reports.Report, bool, error) {
	artifact, err := os.Stat(p.cfg.ArtifactPath)
	if err != nil {
		telemetry.Warn("uploads.artifact.missing", map[string]any{"path": p.cfg.ArtifactPath, "error": err})
		return reports.Report{}, false, nil
	}
	if artifact.ModTime().Before(started) {
		telemetry.Warn("uploads.artifact.stale", map[string]any{
			"path":     p.cfg.ArtifactPath,
			"mod_time": artifact.ModTime().UTC(),
			"started":  started.UTC(),
		})
		return reports.Report{}, false, nil
	}
	if strings.TrimSpace(userID) == "" {
		telemetry.Info("uploads.report.skipped", map[string]any{"reason": "unauthenticated", "upload_type": t})
		return reports.Report{}, false, nil
	}

	now := p.now()
	destDir := filepath.Join(p.cfg.ReportsDir, util.HashUserKey(userID))
	name := fmt.Sprintf("%d-%s.pdf", now.UnixMilli(), util.RandomHex(4))
	dest := filepath.Join(destDir, name)
	err = os.MkdirAll(destDir, 0o755)
	if err == nil {
		err = copyFile(p.cfg.ArtifactPath, dest)
	}
	if err != nil {
		telemetry.Error("uploads.artifact.copy_failed", map[string]any{
			"user_id": userID,
			"source":  p.cfg.ArtifactPath,
			"dest":    dest,
			"error":   err,
		})
		return reports.Report{}, false, nil
	}

	report := reports.Report{
		UserID:         userID,
		Filename:       name,
		PDFPath:        dest,
		ProcessedImage: p.associate(t, placed, artifact.ModTime()),
	}

	info, err := reports.InspectPDF(dest)
	if err != nil {
		telemetry.Warn("uploads.pdf.inspect_failed", map[string]any{"path": dest, "error": err})
	}
	report.Pages = info.Pages
	report.Title = info.Title
	if report.Title == "" {
		report.Title = "Report " + now.UTC().Format("2006-01-02 15:04")
	}

	created, err := p.recorder.Record(ctx, report)
	if err != nil {
		var perr *reports.PersistenceError
		if errors.As(err, &perr) {
			telemetry.Error("uploads.report.persist_failed", map[string]any{"user_id": userID, "error": err})
		}
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			telemetry.Warn("uploads.artifact.cleanup_failed", map[string]any{"path": dest, "error": rmErr})
		}
		return reports.Report{}, false, err
	}
	return created, true, nil
}

// associate picks the source image for an artifact from the request's own
// uploads, scanning the type folder only when none of them is an image. A nil
// result is logged and tolerated.
func (p *Pipeline) associate(t UploadType, placed []Upload, artifactTime time.Time) *string {
	paths := make([]string, 0, len(placed))
	for _, u := range placed {
		if artifacts.ImageFilter(u.FilePath) {
			paths = append(paths, u.FilePath)
		}
	}
	images := artifacts.Stat(paths)

	folder := filepath.Join(p.cfg.UploadsDir, t.Folder())
	if len(images) == 0 {
		scanned, err := artifacts.ScanDir(folder, artifacts.ImageFilter)
		if err != nil {
			telemetry.Warn("reports.association.skipped", map[string]any{"folder": folder, "error": err})
			metrics.IncAssociationSkipped()
			return nil
		}
		images = scanned
	}
	match, ok := artifacts.FindBestMatch(images, artifactTime)
	if !ok {
		telemetry.Warn("reports.association.skipped", map[string]any{"folder": folder, "reason": "no images"})
		metrics.IncAssociationSkipped()
		return nil
	}
	path := match.Path
	return &path
}

func typeLabel(raw string) string {
	if _, ok := rules[UploadType(raw)]; ok {
		return raw
	}
	return "unknown"
}
