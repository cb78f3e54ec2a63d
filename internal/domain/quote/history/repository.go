package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

// Repository reads and rewrites the history CSV file. The file is read in
// full and replaced in full on every save; there is no locking.
type Repository struct {
	path   string
	logger *slog.Logger
}

// NewRepository creates a repository for the history file at path
func NewRepository(path string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{path: path, logger: logger}
}

// Path returns the history file location
func (r *Repository) Path() string {
	return r.path
}

// Load returns all records in file order. A missing or empty file is an empty
// history.
func (r *Repository) Load(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []Record
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return records, nil
}

// Exists reports whether the history already holds the calculation of key
func (r *Repository) Exists(ctx context.Context, key quote.Key) (bool, error) {
	records, err := r.Load(ctx)
	if err != nil {
		return false, err
	}
	return containsKey(records, key), nil
}

// Append adds records to the history and returns how many were written.
// Records of a calculation already in the history are skipped, so the first
// computation of a key is the one kept.
func (r *Repository) Append(ctx context.Context, records []Record) (int, error) {
	existing, err := r.Load(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	all := existing
	for _, rec := range records {
		key, err := rec.Key()
		if err == nil && containsKey(existing, key) {
			r.logger.Debug("skipping duplicate history record",
				slog.String("document", rec.DocumentName),
				slog.String("calculation_id", rec.CalculationID),
			)
			continue
		}
		all = append(all, rec)
		added++
	}

	if added == 0 {
		return 0, nil
	}

	if err := r.save(all); err != nil {
		return 0, err
	}

	r.logger.Info("history updated", slog.Int("added", added), slog.Int("total", len(all)))
	return added, nil
}

func (r *Repository) save(records []Record) error {
	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := storage.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func containsKey(records []Record, key quote.Key) bool {
	for _, rec := range records {
		if rec.HasKey(key) {
			return true
		}
	}
	return false
}
