package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote/extractor"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/history"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/pricing"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/service"
	"github.com/FACorreiaa/pumpquote/pkg/config"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Repositories
	FileStorage storage.Storage
	HistoryRepo *history.Repository

	// Services
	Extractor    *extractor.Extractor
	Calculator   *pricing.Calculator
	QuoteService *service.Service
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("all dependencies initialized successfully")

	return deps, nil
}

// initRepositories sets up the file store and the history file
func (d *Dependencies) initRepositories() error {
	uploadDir := ""
	if d.Config.Storage.ArchiveUploads {
		uploadDir = d.Config.Storage.UploadDir
	}

	fileStorage, err := storage.New(&storage.Config{
		CalcPath:   d.Config.Storage.CalcDir,
		UploadPath: uploadDir,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.HistoryRepo = history.NewRepository(d.Config.Storage.HistoryFile, d.Logger)

	d.Logger.Debug("repositories initialized",
		slog.String("history", d.Config.Storage.HistoryFile),
		slog.String("calculations", d.Config.Storage.CalcDir),
	)
	return nil
}

// initServices wires the extraction, pricing and quote services
func (d *Dependencies) initServices() error {
	d.Extractor = extractor.New(d.Logger)

	d.Calculator = pricing.New(
		pricing.WithRounding(pricing.Rounding(d.Config.Pricing.Rounding)),
		pricing.WithServiceAllowance(d.Config.Pricing.FreeServiceMinutes, d.Config.Pricing.ServiceIncrementMinutes),
	)

	d.QuoteService = service.New(d.Extractor, d.Calculator, d.HistoryRepo, d.FileStorage, d.Logger).
		WithArchiving(d.Config.Storage.ArchiveUploads)

	d.Logger.Debug("services initialized", slog.String("rounding", string(d.Calculator.Rounding())))
	return nil
}

// newLogger builds the process logger from the log configuration
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
