package common

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MinRasterDPI is the lowest DPI used when rasterizing scanned PDFs.
const MinRasterDPI = 400

// Config holds all application configuration
type Config struct {
	Loader   LoaderConfig
	Remote   RemoteConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
	Server   ServerConfig
	LogLevel string
}

// LoaderConfig holds document acquisition configuration
type LoaderConfig struct {
	DPI                int
	TextNativeMinChars int
	TempDir            string
	TempRetention      time.Duration
	SweepInterval      time.Duration
	TesseractLang      string
	TessdataDir        string
}

// RemoteConfig holds the recognition/AI collaborator configuration
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig holds scoring and fallback configuration
type PipelineConfig struct {
	ConfidenceThreshold float64
	AIFallbackEnabled   bool
}

// DatabaseConfig holds result-store configuration; an empty DSN disables it
type DatabaseConfig struct {
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	dpi := getEnvAsInt("RASTER_DPI", MinRasterDPI)
	if dpi < MinRasterDPI {
		dpi = MinRasterDPI
	}
	return &Config{
		Loader: LoaderConfig{
			DPI:                dpi,
			TextNativeMinChars: getEnvAsInt("TEXT_NATIVE_MIN_CHARS", 200),
			TempDir:            getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "invoice-extract")),
			TempRetention:      getEnvAsDuration("TEMP_RETENTION", time.Hour),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 10*time.Minute),
			TesseractLang:      getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:        getEnv("TESSDATA_PREFIX", ""),
		},
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(getEnv("AI_SERVICE_URL", "http://localhost:8000"), "/"),
			Timeout: getEnvAsDuration("COLLABORATOR_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold: float64(getEnvAsFloat32("CONFIDENCE_THRESHOLD", 60)),
			AIFallbackEnabled:   getEnvAsBool("AI_FALLBACK_ENABLED", true),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 4),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("AI_SERVICE_URL", c.Remote.BaseURL, Required, HTTPURL).
		Field("CONFIDENCE_THRESHOLD", c.Pipeline.ConfidenceThreshold, InRange(0, 100)).
		Field("RASTER_DPI", c.Loader.DPI, InRange(MinRasterDPI, 1200)).
		Field("TEMP_DIR", c.Loader.TempDir, Required).
		Field("TEMP_RETENTION", c.Loader.TempRetention, PositiveDuration).
		Field("COLLABORATOR_TIMEOUT", c.Remote.Timeout, PositiveDuration)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
