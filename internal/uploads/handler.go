package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"visionreport/internal/processrunner"
	"visionreport/internal/reports"
	"visionreport/internal/shared/server/middleware"
	"visionreport/internal/shared/server/respond"
	"visionreport/internal/shared/telemetry"
)

const recentPageSize = 20

// Handler wires HTTP handlers to the pipeline.
type Handler struct {
	Pipeline   *Pipeline
	StagingDir string
	MaxBytes   int64
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, stagingDir string, maxBytes int64) *Handler {
	return &Handler{Pipeline: p, StagingDir: stagingDir, MaxBytes: maxBytes}
}

// RegisterRoutes attaches the upload route. guards run before the handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.POST("/uploads", append(guards, h.upload)...)
}

// RegisterHistoryRoutes attaches routes that need an authenticated group.
func (h *Handler) RegisterHistoryRoutes(rg *gin.RouterGroup) {
	rg.GET("/uploads/recent", h.recent)
}

func (h *Handler) upload(c *gin.Context) {
	if h.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart form", nil)
		return
	}
	defer form.RemoveAll()

	uploadType := ""
	if v := form.Value["uploadType"]; len(v) > 0 {
		uploadType = v[0]
	}

	staged, err := h.stage(form.File["files"])
	if err != nil {
		telemetry.Error("uploads.staging.failed", map[string]any{
			"error":      err,
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to receive files", nil)
		return
	}

	res, err := h.Pipeline.Run(c.Request.Context(), Request{
		UploadType: uploadType,
		Files:      staged,
		UserID:     middleware.UserIDFromContext(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	reportIDs := make([]string, 0, len(res.Reports))
	for _, r := range res.Reports {
		reportIDs = append(reportIDs, r.ID)
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"success":    true,
		"uploadType": res.UploadType,
		"uploads":    res.Uploads,
		"processed":  len(res.Processed),
		"reportIds":  reportIDs,
	})
}

func (h *Handler) recent(c *gin.Context) {
	respond.OK(c, h.Pipeline.Recent(middleware.UserIDFromContext(c), recentPageSize))
}

// stage copies multipart parts into the staging directory.
func (h *Handler) stage(headers []*multipart.FileHeader) ([]StagedFile, error) {
	if err := os.MkdirAll(h.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure staging dir: %w", err)
	}
	staged := make([]StagedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := stageOne(h.StagingDir, fh)
		if err != nil {
			Discard(staged)
			return nil, err
		}
		staged = append(staged, f)
	}
	return staged, nil
}

func stageOne(dir string, fh *multipart.FileHeader) (StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("open part %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staging file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst.Name())
		return StagedFile{}, fmt.Errorf("write staging file: %w", err)
	}
	return StagedFile{
		Path:         dst.Name(),
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         n,
	}, nil
}

func writeError(c *gin.Context, err error) {
	var (
		verr    *ValidationError
		nferr   *processrunner.NotFoundError
		perr    *processrunner.ProcessError
		terr    *processrunner.TimeoutError
		persist *reports.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		details := gin.H{"reason": verr.Err.Error()}
		if verr.File != "" {
			details["file"] = verr.File
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", verr.Error(), details)
	case errors.As(err, &nferr):
		respond.Error(c, http.StatusInternalServerError, "configuration_error", "processing is not configured", gin.H{"path": nferr.Path})
	case errors.As(err, &perr):
		respond.Error(c, http.StatusBadGateway, "processing_failed", "image processing failed", gin.H{
			"exitCode": perr.ExitCode,
			"stderr":   perr.Stderr,
		})
	case errors.As(err, &terr):
		respond.Error(c, http.StatusGatewayTimeout, "processing_timeout", "image processing timed out", gin.H{
			"timeout": terr.Timeout.String(),
		})
	case errors.Is(err, processrunner.ErrBusy):
		respond.Error(c, http.StatusServiceUnavailable, "busy", "processing capacity exhausted", nil)
	case errors.As(err, &persist):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save report", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "upload failed", nil)
	}
}
