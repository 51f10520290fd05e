package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"doculens"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"doculens"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Document analysis service (full-text extraction for non-text formats).
	AnalyzerURL string `envconfig:"ANALYZER_URL"`
	// Optional classification model. Empty disables classification and every
	// document is stored with type "unknown".
	ClassifierModel string `envconfig:"CLASSIFIER_MODEL"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`

	BlobDir        string `envconfig:"BLOB_DIR" default:"./data/blobs"`
	BlobSigningKey string `envconfig:"BLOB_SIGNING_KEY" default:"dev-only-signing-key"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8082"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	IngestConcurrency   int `envconfig:"INGEST_CONCURRENCY" default:"4"`
	ReindexConcurrency  int `envconfig:"REINDEX_CONCURRENCY" default:"8"`
	QueryTimeoutSeconds int `envconfig:"QUERY_TIMEOUT_SECONDS" default:"45"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.BlobDir == "" {
		return fmt.Errorf("%w: BLOB_DIR", ErrMissingRequired)
	}
	return nil
}
