package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/pricing"
	"github.com/FACorreiaa/pumpquote/pkg/money"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

// CalcRow is one grade row of a calculation file
type CalcRow struct {
	Grade          string `csv:"Betonilaatu"`
	Base           string `csv:"Perushinta_€_m3"`
	Environmental  string `csv:"Ympäristölisä_€_m3"`
	Transport      string `csv:"Kuljetus_€_m3"`
	PumpPerM3      string `csv:"Pumppaus_€_m3"`
	PumpHourly     string `csv:"Pumppausaika_€_m3"`
	Service        string `csv:"Palveluaikalisä_€_m3"`
	Increments     string `csv:"Palveluaika_jaksot"`
	Total          string `csv:"Yhteensä_€_m3"`
	Volume         string `csv:"m3"`
	PumpingHours   string `csv:"Pumppausaika_h"`
	ServiceMinutes string `csv:"Palveluaika_min"`
}

// NewCalcRows converts breakdown rows into calculation file rows
func NewCalcRows(key quote.Key, rows []pricing.BreakdownRow) []CalcRow {
	out := make([]CalcRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, CalcRow{
			Grade:          r.Grade,
			Base:           money.Fixed(r.Base),
			Environmental:  money.Fixed(r.Environmental),
			Transport:      money.Fixed(r.Transport),
			PumpPerM3:      money.Fixed(r.PumpPerM3),
			PumpHourly:     money.Fixed(r.PumpHourly),
			Service:        money.Fixed(r.Service),
			Increments:     strconv.Itoa(r.ServiceIncrements),
			Total:          money.Fixed(r.Total),
			Volume:         key.Volume.String(),
			PumpingHours:   key.PumpingHours.String(),
			ServiceMinutes: strconv.Itoa(key.ServiceMinutes),
		})
	}
	return out
}

// WriteCalculation saves the calculation file of key and returns its path
func WriteCalculation(ctx context.Context, store storage.Storage, key quote.Key, rows []pricing.BreakdownRow) (string, error) {
	calcRows := NewCalcRows(key, rows)
	data, err := gocsv.MarshalBytes(&calcRows)
	if err != nil {
		return "", fmt.Errorf("failed to encode calculation: %w", err)
	}

	info, err := store.Put(ctx, CalcFileName(key), "text/csv", data)
	if err != nil {
		return "", fmt.Errorf("failed to write calculation file: %w", err)
	}
	return info.Path, nil
}
