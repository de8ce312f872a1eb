package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"visionreport/internal/contacts"
	"visionreport/internal/processrunner"
	"visionreport/internal/reports"
	"visionreport/internal/services/health"
	"visionreport/internal/sessions"
	"visionreport/internal/shared/config"
	"visionreport/internal/shared/server"
	"visionreport/internal/shared/server/middleware"
	"visionreport/internal/shared/storage/object"
	localstore "visionreport/internal/shared/storage/object/local"
	miniostore "visionreport/internal/shared/storage/object/minio"
	s3store "visionreport/internal/shared/storage/object/s3"
	"visionreport/internal/shared/telemetry"
	"visionreport/internal/uploads"
	"visionreport/internal/users"
)

// App holds shared dependencies and the router built from them.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	Sessions        sessions.Store
	Runner          *processrunner.Runner
	Archive         object.ObjectStore
	ReportStore     *reports.FileStore
	ReportsService  *reports.Service
	Pipeline        *uploads.Pipeline
	UsersService    *users.Service
	ContactsService *contacts.Service
	ReportHandler   *reports.Handler
	UploadHandler   *uploads.Handler
	UserHandler     *users.Handler
	ContactHandler  *contacts.Handler
}

// Build opens the JSON stores, the optional report archive and wires handlers.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	cfg = cfg.Normalize()

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reportStore, err := reports.OpenFileStore(cfg.ReportsFile())
	if err != nil {
		return nil, err
	}
	userRepo, err := users.OpenFileRepo(cfg.UsersFile())
	if err != nil {
		return nil, err
	}
	contactRepo, err := contacts.OpenFileRepo(cfg.ContactsFile())
	if err != nil {
		return nil, err
	}

	sessionStore := sessions.NewMemoryStore()
	runner := processrunner.New(cfg.ProcessConcurrency, cfg.ProcessTimeout)
	reportSvc := &reports.Service{Store: reportStore, Archive: archive}
	pipeline := uploads.NewPipeline(uploads.Config{
		UploadsDir:   cfg.UploadsDir,
		ReportsDir:   cfg.ReportsDir,
		Executable:   cfg.PythonBin,
		ArtifactPath: cfg.ArtifactPath,
		Scripts: map[uploads.UploadType]string{
			uploads.SingleImage:    cfg.ScriptPath(cfg.ScriptSingleImage),
			uploads.MultipleImages: cfg.ScriptPath(cfg.ScriptMultipleImages),
			uploads.Video:          cfg.ScriptPath(cfg.ScriptVideo),
		},
	}, runner, reportSvc)
	userSvc := users.NewService(userRepo, sessionStore)
	contactSvc := &contacts.Service{Repo: contactRepo}

	app := &App{
		Config:          cfg,
		Sessions:        sessionStore,
		Runner:          runner,
		Archive:         archive,
		ReportStore:     reportStore,
		ReportsService:  reportSvc,
		Pipeline:        pipeline,
		UsersService:    userSvc,
		ContactsService: contactSvc,
		ReportHandler:   reports.NewHandler(reportSvc),
		UploadHandler:   uploads.NewHandler(pipeline, filepath.Join(cfg.UploadsDir, ".staging"), cfg.MaxUploadBytes),
		UserHandler:     users.NewHandler(userSvc, cfg.SessionCookie, cfg.Env == "production"),
		ContactHandler:  contacts.NewHandler(contactSvc),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Sessions:       sessionStore,
		ReportHandler:  app.ReportHandler,
		UploadHandler:  app.UploadHandler,
		UserHandler:    app.UserHandler,
		ContactHandler: app.ContactHandler,
		RateLimiter:    middleware.NewRateLimiter(nil),
		Health:         readiness(cfg),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":           cfg.Env,
		"archive_store": cfg.ArchiveStore,
		"reports_file":  cfg.ReportsFile(),
	})
	return app, nil
}

func readiness(cfg config.Config) *health.Service {
	return health.NewService(map[string]health.Check{
		"python":                 health.FileExists(cfg.PythonBin),
		"data_dir":               health.DirWritable(cfg.DataDir),
		"reports_dir":            health.DirWritable(cfg.ReportsDir),
		"script_single_image":    health.FileExists(cfg.ScriptPath(cfg.ScriptSingleImage)),
		"script_multiple_images": health.FileExists(cfg.ScriptPath(cfg.ScriptMultipleImages)),
		"script_video":           health.FileExists(cfg.ScriptPath(cfg.ScriptVideo)),
	})
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "local":
		return localstore.New(cfg.ArchiveDir), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("ARCHIVE_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		store, err := miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio archive: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}
