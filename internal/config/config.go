// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ClassifierModeProcess   = "process"
	ClassifierModeSimulated = "simulated"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	AppEnv          string        `env:"APP_ENV" envDefault:"dev"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	Classifier ClassifierConfig
	Upload     UploadConfig
	MinIO      MinIOConfig `envPrefix:"MINIO_"`
}

type ClassifierConfig struct {
	Mode             string        `env:"CLASSIFIER_MODE" envDefault:"process"`
	PythonExecutable string        `env:"PYTHON_EXECUTABLE" envDefault:"python3"`
	PredictScript    string        `env:"PREDICT_SCRIPT" envDefault:"scripts/predict.py"`
	Timeout          time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"30s"`
	ModelVersion     string        `env:"MODEL_VERSION" envDefault:"1.0.0"`
}

type UploadConfig struct {
	Dir                string   `env:"UPLOAD_DIR"`
	MaxBytes           int64    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AcceptedMediaTypes []string `env:"ACCEPTED_MEDIA_TYPES" envSeparator:"," envDefault:"image/png"`
}

type MinIOConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"cardiopredict"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Enabled reports whether uploaded images should be archived to object storage.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// Load reads an optional .env file and then parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = filepath.Join(os.TempDir(), "cardiopredict")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Classifier.Mode {
	case ClassifierModeProcess, ClassifierModeSimulated:
	default:
		return fmt.Errorf("CLASSIFIER_MODE must be %q or %q (got %q)",
			ClassifierModeProcess, ClassifierModeSimulated, c.Classifier.Mode)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be > 0 (got %s)", c.Classifier.Timeout)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0 (got %d)", c.Upload.MaxBytes)
	}

	types := make([]string, 0, len(c.Upload.AcceptedMediaTypes))
	for _, t := range c.Upload.AcceptedMediaTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return errors.New("ACCEPTED_MEDIA_TYPES must list at least one media type")
	}
	c.Upload.AcceptedMediaTypes = types

	if c.MinIO.Enabled() && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "prod") || strings.EqualFold(c.AppEnv, "production")
}
