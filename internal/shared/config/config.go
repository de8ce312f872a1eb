package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"dev"`

	DataDir    string `envconfig:"DATA_DIR" default:"./data"`
	UploadsDir string `envconfig:"UPLOADS_DIR" default:"./uploads"`
	ReportsDir string `envconfig:"REPORTS_DIR" default:"./reports"`

	PythonBin            string        `envconfig:"PYTHON_BIN" default:"/usr/bin/python3"`
	ScriptsDir           string        `envconfig:"SCRIPTS_DIR" default:"./scripts"`
	ScriptSingleImage    string        `envconfig:"SCRIPT_SINGLE_IMAGE" default:"process_single_image.py"`
	ScriptMultipleImages string        `envconfig:"SCRIPT_MULTIPLE_IMAGES" default:"process_multiple_images.py"`
	ScriptVideo          string        `envconfig:"SCRIPT_VIDEO" default:"process_video.py"`
	ArtifactPath         string        `envconfig:"ARTIFACT_PATH" default:"./scripts/output/merged_report.pdf"`
	ProcessTimeout       time.Duration `envconfig:"PROCESS_TIMEOUT" default:"10m"`
	ProcessConcurrency   int           `envconfig:"PROCESS_CONCURRENCY" default:"2"`
	MaxUploadBytes       int64         `envconfig:"MAX_UPLOAD_BYTES" default:"209715200"`

	ArchiveStore   string `envconfig:"ARCHIVE_STORE" default:"none"`
	ArchiveDir     string `envconfig:"ARCHIVE_DIR" default:"./archive"`
	AWSRegion      string `envconfig:"AWS_REGION"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Prefix       string `envconfig:"S3_PREFIX" default:"reports/"`
	SSEKMSKeyID    string `envconfig:"SSE_KMS_KEY_ID"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	UploadRatePerMinute float64 `envconfig:"UPLOAD_RATE_PER_MINUTE" default:"30"`
	UploadRateBurst     int     `envconfig:"UPLOAD_RATE_BURST" default:"5"`
	SessionCookie       string  `envconfig:"SESSION_COOKIE" default:"session_id"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg = cfg.Normalize()
	if cfg.Env == "production" && cfg.PythonBin == "" {
		log.Printf("PYTHON_BIN is required in production")
	}
	return cfg
}

// Normalize canonicalizes free-form values.
func (c Config) Normalize() Config {
	c.Env = normalizeEnv(c.Env)
	c.ArchiveStore = normalizeArchiveStore(c.ArchiveStore)
	if c.ProcessConcurrency <= 0 {
		c.ProcessConcurrency = 1
	}
	if c.SessionCookie == "" {
		c.SessionCookie = "session_id"
	}
	return c
}

// ScriptPath resolves a script name against ScriptsDir unless it is already absolute.
func (c Config) ScriptPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ScriptsDir, name)
}

// ReportsFile is the JSON document backing the report store.
func (c Config) ReportsFile() string { return filepath.Join(c.DataDir, "reports.json") }

// UsersFile is the JSON document backing the user store.
func (c Config) UsersFile() string { return filepath.Join(c.DataDir, "users.json") }

// ContactsFile is the JSON document backing contact submissions.
func (c Config) ContactsFile() string { return filepath.Join(c.DataDir, "contacts.json") }

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeArchiveStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local":
		return "local"
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "none"
	}
}
