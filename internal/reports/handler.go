package reports

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"visionreport/internal/shared/server/middleware"
	"visionreport/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group. The group must
// already require an authenticated identity.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reports", h.list)
	rg.GET("/reports/:id", h.get)
	rg.GET("/reports/:id/download", h.download)
	rg.DELETE("/reports/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	all, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]gin.H, 0, len(all))
	for _, r := range all {
		resp = append(resp, toResponse(r))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	report, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("reportId", report.ID)
	respond.OK(c, toResponse(report))
}

func (h *Handler) download(c *gin.Context) {
	report, rc, err := h.Svc.OpenPDF(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	name := report.Filename
	if name == "" {
		name = filepath.Base(report.PDFPath)
	}
	c.Set("reportId", report.ID)
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var perr *PersistenceError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.As(err, &perr):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save reports", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load report", nil)
	}
}

func toResponse(r Report) gin.H {
	return gin.H{
		"id":             r.ID,
		"title":          r.Title,
		"filename":       r.Filename,
		"processedImage": r.ProcessedImage,
		"pages":          r.Pages,
		"createdAt":      r.CreatedAt,
	}
}
