// Package history keeps the flat-file record of every quote calculation: the
// history CSV, the per-calculation CSV files and their exports.
package history

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/pricing"
	"github.com/FACorreiaa/pumpquote/pkg/money"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

const (
	// TimeLayout is how timestamps are written to the history file
	TimeLayout = "2006-01-02 15:04:05"
	// DisplayTimeLayout is how timestamps are shown to people
	DisplayTimeLayout = "02.01.2006 15:04"

	idLength        = 10
	maxFileBaseName = 80
	// minStemLength is the part of a file name always left to the document
	minStemLength   = 16
	maxParamsLength = maxFileBaseName - idLength - minStemLength - 2
)

// timeLayouts are accepted when reading, newest writer first
var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05.999999",
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// Record is one history row as stored. Column names match the
// history files already in use.
type Record struct {
	Time            string `csv:"Aika"`
	DocumentName    string `csv:"PDF_nimi"`
	Volume          string `csv:"m3"`
	PumpingHours    string `csv:"Pumppausaika_h"`
	ServiceMinutes  string `csv:"Palveluaika_min"`
	Grade           string `csv:"Betonilaatu"`
	Total           string `csv:"Yhteensä_€_m3"`
	CalculationID   string `csv:"Laskenta_ID"`
	CalculationFile string `csv:"Laskenta_tiedosto"`
}

// NewRecords builds the history rows of one calculation, one per grade
func NewRecords(at time.Time, key quote.Key, rows []pricing.BreakdownRow, calcFile string) []Record {
	id := CalculationID(key)
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			Time:            at.Format(TimeLayout),
			DocumentName:    key.DocumentName,
			Volume:          key.Volume.String(),
			PumpingHours:    key.PumpingHours.String(),
			ServiceMinutes:  strconv.Itoa(key.ServiceMinutes),
			Grade:           row.Grade,
			Total:           money.Fixed(row.Total),
			CalculationID:   id,
			CalculationFile: calcFile,
		})
	}
	return records
}

// ParseTime reads the record timestamp in any of the accepted layouts
func (r Record) ParseTime() (time.Time, error) {
	s := strings.TrimSpace(r.Time)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", r.Time)
}

// TotalValue is the stored total, or zero when it does not parse
func (r Record) TotalValue() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(r.Total))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Key parses the duplicate-suppression key of the record
func (r Record) Key() (quote.Key, error) {
	volume, err := decimal.NewFromString(strings.TrimSpace(r.Volume))
	if err != nil {
		return quote.Key{}, fmt.Errorf("invalid volume %q: %w", r.Volume, err)
	}
	hours, err := decimal.NewFromString(strings.TrimSpace(r.PumpingHours))
	if err != nil {
		return quote.Key{}, fmt.Errorf("invalid pumping hours %q: %w", r.PumpingHours, err)
	}
	minutes, err := parseMinutes(r.ServiceMinutes)
	if err != nil {
		return quote.Key{}, err
	}
	return quote.Key{
		DocumentName:   r.DocumentName,
		Volume:         volume,
		PumpingHours:   hours,
		ServiceMinutes: minutes,
	}, nil
}

// HasKey reports whether the record belongs to the calculation identified by
// key. Records whose parameters do not parse are compared as text.
func (r Record) HasKey(key quote.Key) bool {
	rk, err := r.Key()
	if err != nil {
		return r.DocumentName == key.DocumentName &&
			r.Volume == key.Volume.String() &&
			r.PumpingHours == key.PumpingHours.String() &&
			r.ServiceMinutes == strconv.Itoa(key.ServiceMinutes)
	}
	return rk.Equal(key)
}

// parseMinutes accepts "120" as well as "120.0" written by older versions
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid service minutes %q", s)
	}
	return int(d.IntPart()), nil
}

// CalculationID is the first 10 hex characters of the MD5 of the key
func CalculationID(key quote.Key) string {
	sum := md5.Sum([]byte(key.String()))
	return hex.EncodeToString(sum[:])[:idLength]
}

// CalcFileName names the calculation file of key, e.g.
// "tarjous_12m3_2h_120min_1a2b3c4d5e.csv". The name without extension stays
// within 80 characters and always ends with the identifier; the job
// parameters and then the document stem are shortened to fit.
func CalcFileName(key quote.Key) string {
	id := CalculationID(key)
	stem := strings.TrimSuffix(key.DocumentName, filepath.Ext(key.DocumentName))

	params := storage.SanitizeFilename(fmt.Sprintf("%sm3_%sh_%dmin",
		key.Volume.String(), key.PumpingHours.String(), key.ServiceMinutes), maxParamsLength)
	suffix := params + "_" + id

	stemBudget := maxFileBaseName - utf8.RuneCountInString(suffix) - 1
	return storage.SanitizeFilename(stem, stemBudget) + "_" + suffix + ".csv"
}
