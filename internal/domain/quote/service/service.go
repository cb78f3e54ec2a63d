// Package service runs the quote pipeline: extract prices from a document,
// compute the breakdown and record it in the history.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/history"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/pricing"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

// Extractor reads the price table out of document bytes
type Extractor interface {
	ExtractPDF(content []byte) (*quote.PriceTable, error)
}

// HistoryStore is the calculation history
type HistoryStore interface {
	Load(ctx context.Context) ([]history.Record, error)
	Exists(ctx context.Context, key quote.Key) (bool, error)
	Append(ctx context.Context, records []history.Record) (int, error)
}

// Result is the outcome of processing one document
type Result struct {
	Key           quote.Key
	CalculationID string
	Prices        *quote.PriceTable
	Rows          []pricing.BreakdownRow

	// Duplicate is set when the history already held this calculation; nothing
	// was written in that case.
	Duplicate       bool
	CalculationFile string
	ArchivedUpload  string
	HistoryAdded    int
}

// Service coordinates extraction, pricing and history
type Service struct {
	extractor  Extractor
	calculator *pricing.Calculator
	history    HistoryStore
	store      storage.Storage
	logger     *slog.Logger
	now        func() time.Time
	archive    bool
}

// New creates a quote service
func New(extractor Extractor, calculator *pricing.Calculator, hist HistoryStore, store storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor:  extractor,
		calculator: calculator,
		history:    hist,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for history timestamps
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithArchiving enables keeping a copy of every processed document
func (s *Service) WithArchiving(enabled bool) *Service {
	s.archive = enabled
	return s
}

// Extract returns the price table of a document without computing anything
func (s *Service) Extract(ctx context.Context, content []byte) (*quote.PriceTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.extractor.ExtractPDF(content)
	if err != nil {
		if !errors.Is(err, quote.ErrNoPrices) {
			err = fmt.Errorf("%w: %w", quote.ErrNoPrices, err)
		}
		return nil, err
	}
	return table, nil
}

// Process prices a document for the given job. When saving fails the computed
// result is still returned, together with an error wrapping
// quote.ErrPersistence.
func (s *Service) Process(ctx context.Context, documentName string, content []byte, params quote.JobParameters) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	documentName = filepath.Base(documentName)

	table, err := s.Extract(ctx, content)
	if err != nil {
		s.logger.Warn("extraction failed", slog.String("document", documentName), slog.Any("error", err))
		return nil, err
	}

	rows, err := s.calculator.Calculate(table, params)
	if err != nil {
		return nil, err
	}

	key := quote.KeyFor(documentName, params)
	result := &Result{
		Key:           key,
		CalculationID: history.CalculationID(key),
		Prices:        table,
		Rows:          rows,
	}

	logger := s.logger.With(
		slog.String("document", documentName),
		slog.String("calculation_id", result.CalculationID),
	)

	exists, err := s.history.Exists(ctx, key)
	if err != nil {
		return result, fmt.Errorf("%w: %w", quote.ErrPersistence, err)
	}
	if exists {
		result.Duplicate = true
		logger.Info("calculation already in history, not saved")
		return result, nil
	}

	if s.archive {
		info, err := s.store.Upload(ctx, documentName, "application/pdf", bytes.NewReader(content))
		switch {
		case err == nil:
			result.ArchivedUpload = info.Path
		case errors.Is(err, storage.ErrArchivingDisabled):
		default:
			logger.Warn("failed to archive document", slog.Any("error", err))
		}
	}

	path, err := history.WriteCalculation(ctx, s.store, key, rows)
	if err != nil {
		logger.Error("failed to save calculation file", slog.Any("error", err))
		return result, fmt.Errorf("%w: %w", quote.ErrPersistence, err)
	}

	added, err := s.history.Append(ctx, history.NewRecords(s.now(), key, rows, path))
	if err != nil {
		logger.Error("failed to update history", slog.Any("error", err))
		// A calculation file exists only alongside its history rows
		if rmErr := s.store.Delete(ctx, path); rmErr != nil {
			logger.Warn("failed to remove calculation file", slog.String("file", path), slog.Any("error", rmErr))
		}
		return result, fmt.Errorf("%w: %w", quote.ErrPersistence, err)
	}
	result.CalculationFile = path
	result.HistoryAdded = added

	logger.Info("calculation saved",
		slog.Int("grades", len(rows)),
		slog.String("file", path),
	)
	return result, nil
}

// History returns the grouped history, optionally filtered by a search query
func (s *Service) History(ctx context.Context, query string) ([]history.Group, error) {
	records, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	return history.Listing(ctx, history.Filter(records, query), s.store), nil
}

// ExportHistory writes the full history as CSV or, with format "xlsx", as a
// workbook.
func (s *Service) ExportHistory(ctx context.Context, format string, w io.Writer) error {
	records, err := s.history.Load(ctx)
	if err != nil {
		return err
	}
	switch format {
	case "", "csv":
		return history.ExportCSV(w, records)
	case "xlsx":
		return history.ExportXLSX(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportCalculation writes the saved calculation file with the given id and
// returns its path.
func (s *Service) ExportCalculation(ctx context.Context, id string, w io.Writer) (string, error) {
	records, err := s.history.Load(ctx)
	if err != nil {
		return "", err
	}
	return history.ExportCalculation(ctx, s.store, records, id, w)
}
