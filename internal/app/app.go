// Package app wires configuration into a ready pipeline for the commands.
package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/confidence"
	"github.com/joseph-ayodele/invoice-extract/internal/loader"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/remote"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// App holds the long-lived parts of a process.
type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Remote   *remote.Client
	Temp     *loader.TempArea
	Sweeper  *loader.Sweeper
	Pipeline *pipeline.Pipeline
	DB       *repository.DB // nil without DB_URL
	Repo     repository.ExtractionRepository
}

type Options struct {
	EnvFile  string // loaded if present; default ".env"
	JSONLogs bool
	InMemory bool // use an in-memory sqlite store when DB_URL is unset
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig(envFile string) (*common.Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, common.WrapError(err, "load "+envFile)
		}
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the process logger and installs it as the default.
func NewLogger(cfg *common.Config, jsonLogs bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if jsonLogs {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Build loads configuration and wires every component.
func Build(ctx context.Context, opts Options) (*App, error) {
	cfg, err := LoadConfig(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, opts.JSONLogs)

	temp, err := loader.NewTempArea(cfg.Loader.TempDir, logger)
	if err != nil {
		return nil, err
	}
	client := remote.NewClient(remote.Config{BaseURL: cfg.Remote.BaseURL, Timeout: cfg.Remote.Timeout}, logger)

	runner := loader.ExecRunner{Logger: logger}
	ld := loader.New(loader.Config{
		DPI:                cfg.Loader.DPI,
		TextNativeMinChars: cfg.Loader.TextNativeMinChars,
	}, temp, logger,
		loader.WithRunner(runner),
		loader.WithRecognizers(
			remote.Recognizer{Client: client},
			loader.NewTesseract(loader.TesseractConfig{
				Lang:          cfg.Loader.TesseractLang,
				TessdataDir:   cfg.Loader.TessdataDir,
				TSVConfidence: true,
			}, runner, logger),
		),
	)

	pcfg := pipeline.DefaultConfig()
	pcfg.AIFallbackEnabled = cfg.Pipeline.AIFallbackEnabled
	pcfg.FallbackTimeout = cfg.Remote.Timeout
	pcfg.Confidence = confidence.DefaultConfig()
	pcfg.Confidence.Threshold = cfg.Pipeline.ConfidenceThreshold

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Remote:   client,
		Temp:     temp,
		Sweeper:  loader.NewSweeper(temp, cfg.Loader.TempRetention, cfg.Loader.SweepInterval),
		Pipeline: pipeline.New(pcfg, ld, client, logger),
	}

	dsn := cfg.Database.DSN
	if dsn == "" && opts.InMemory {
		dsn = ":memory:"
	}
	if dsn != "" {
		db, err := repository.Open(ctx, repository.Config{
			DSN:             dsn,
			MaxConns:        int32(cfg.Database.MaxConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			DialTimeout:     3 * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.HealthCheck(ctx, 5*time.Second, logger); err != nil {
			db.Close(logger)
			return nil, err
		}
		a.DB = db
		a.Repo = repository.NewExtractionRepository(db, logger)
	}
	return a, nil
}

// Close releases the result store.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close(a.Logger)
	}
}
