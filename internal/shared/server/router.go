package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visionreport/internal/contacts"
	"visionreport/internal/reports"
	"visionreport/internal/services/health"
	"visionreport/internal/sessions"
	"visionreport/internal/shared/config"
	"visionreport/internal/shared/metrics"
	"visionreport/internal/shared/server/middleware"
	"visionreport/internal/shared/server/respond"
	"visionreport/internal/uploads"
	"visionreport/internal/users"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps holds the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	Sessions       sessions.Store
	ReportHandler  *reports.Handler
	UploadHandler  *uploads.Handler
	UserHandler    *users.Handler
	ContactHandler *contacts.Handler
	RateLimiter    *middleware.RateLimiter
	Health         *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Metrics(),
		middleware.Recovery(),
		middleware.Session(deps.Sessions, deps.Config.SessionCookie),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.Health != nil {
		api.GET("/health/ready", func(c *gin.Context) {
			checks, ok := deps.Health.Status(c.Request.Context())
			status := http.StatusOK
			if !ok {
				status = http.StatusServiceUnavailable
			}
			respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
		})
	}

	private := api.Group("", middleware.RequireAuth())

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
		deps.UserHandler.RegisterPrivateRoutes(private)
	}
	if deps.ContactHandler != nil {
		deps.ContactHandler.RegisterRoutes(api)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(api, uploadRateLimit(deps))
		deps.UploadHandler.RegisterHistoryRoutes(private)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(private)
	}

	return r
}

func uploadRateLimit(deps RouterDeps) gin.HandlerFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: uploadRateGroup,
		Limiter:      deps.RateLimiter,
		Rules: map[string]middleware.RateLimitRule{
			uploadRateGroup: {
				Rate:  deps.Config.UploadRatePerMinute / 60,
				Burst: deps.Config.UploadRateBurst,
			},
		},
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
