package history

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/pumpquote/pkg/money"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

const maxLabelLength = 25

// Line is one grade of a listed calculation
type Line struct {
	Time            time.Time
	Grade           string
	Label           string // Grade shortened for download links
	Total           decimal.Decimal
	TotalDisplay    string
	CalculationID   string
	CalculationFile string
	FileExists      bool
}

// Group collects the history lines of one document. The caption shows the
// parameters of its newest calculation.
type Group struct {
	DocumentName string
	Caption      string
	Latest       time.Time
	Lines        []Line
}

// Listing builds the grouped history view: records with a valid timestamp,
// newest first, grouped by document in order of their newest calculation.
func Listing(ctx context.Context, records []Record, store storage.Storage) []Group {
	type dated struct {
		rec Record
		at  time.Time
	}

	rows := make([]dated, 0, len(records))
	for _, rec := range records {
		at, err := rec.ParseTime()
		if err != nil {
			continue
		}
		rows = append(rows, dated{rec: rec, at: at})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })

	var groups []Group
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.rec.DocumentName]
		if !ok {
			i = len(groups)
			index[row.rec.DocumentName] = i
			groups = append(groups, Group{
				DocumentName: row.rec.DocumentName,
				Caption:      Caption(row.rec),
				Latest:       row.at,
			})
		}

		total := row.rec.TotalValue()
		groups[i].Lines = append(groups[i].Lines, Line{
			Time:            row.at,
			Grade:           row.rec.Grade,
			Label:           DownloadLabel(row.rec.Grade),
			Total:           total,
			TotalDisplay:    money.Display(total),
			CalculationID:   row.rec.CalculationID,
			CalculationFile: row.rec.CalculationFile,
			FileExists:      store != nil && store.Exists(ctx, row.rec.CalculationFile),
		})
	}
	return groups
}

// Caption summarises the job parameters, e.g. "12 m³ | 2 h | 120 min"
func Caption(rec Record) string {
	return fmt.Sprintf("%s m³ | %s h | %s min", rec.Volume, rec.PumpingHours, rec.ServiceMinutes)
}

// DownloadLabel shortens a grade to 25 characters, marking cut labels with "..."
func DownloadLabel(grade string) string {
	if utf8.RuneCountInString(grade) <= maxLabelLength {
		return grade
	}
	return string([]rune(grade)[:maxLabelLength]) + "..."
}
