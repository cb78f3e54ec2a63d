package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

// ExportFileName is the suggested name of a full history export
const ExportFileName = "rudus_laskuhistoria"

const exportSheet = "Laskuhistoria"

var (
	// ErrCalculationNotFound means no history record carries the calculation id
	ErrCalculationNotFound = errors.New("calculation not found")
	// ErrCalculationFileMissing means the calculation file is no longer on disk
	ErrCalculationFileMissing = errors.New("calculation file missing")
)

var exportHeader = []string{
	"Aika", "PDF_nimi", "m3", "Pumppausaika_h", "Palveluaika_min",
	"Betonilaatu", "Yhteensä_€_m3", "Laskenta_ID", "Laskenta_tiedosto",
}

// exportColumnWidths widen the time, document and grade columns
var exportColumnWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "B", 22},
	{"F", "F", 30},
}

// ExportCSV writes records in the history file format
func ExportCSV(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	return nil
}

// ExportXLSX writes records as a single-sheet workbook. Numeric columns are
// stored as numbers when they parse.
func ExportXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			rec.Time,
			rec.DocumentName,
			numberOrText(rec.Volume),
			numberOrText(rec.PumpingHours),
			numberOrText(rec.ServiceMinutes),
			rec.Grade,
			numberOrText(rec.Total),
			rec.CalculationID,
			rec.CalculationFile,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	for _, cw := range exportColumnWidths {
		if err := f.SetColWidth(exportSheet, cw.from, cw.to, cw.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportCalculation copies the calculation file with the given id to w and
// returns the file's path.
func ExportCalculation(ctx context.Context, store storage.Storage, records []Record, id string, w io.Writer) (string, error) {
	var path string
	for _, rec := range records {
		if rec.CalculationID == id {
			path = rec.CalculationFile
			break
		}
	}
	if path == "" {
		return "", fmt.Errorf("%w: %s", ErrCalculationNotFound, id)
	}
	if !store.Exists(ctx, path) {
		return path, fmt.Errorf("%w: %s", ErrCalculationFileMissing, path)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		return path, err
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return path, fmt.Errorf("failed to copy calculation: %w", err)
	}
	return path, nil
}

func numberOrText(s string) interface{} {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
