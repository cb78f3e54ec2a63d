package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/history"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/service"
	"github.com/FACorreiaa/pumpquote/pkg/money"
)

var breakdownHeader = []string{
	"Grade", "Base", "Environmental", "Transport", "Pump €/m³", "Pump time", "Service", "Total €/m³",
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printResult writes the breakdown table of a processed document
func printResult(w io.Writer, r *service.Result) {
	fmt.Fprintf(w, "%s: %s m³, %s h, %d min\n\n",
		r.Key.DocumentName, r.Key.Volume, r.Key.PumpingHours, r.Key.ServiceMinutes)

	table := newTable(w, breakdownHeader)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range r.Rows {
		table.Append([]string{
			row.Grade,
			money.Fixed(row.Base),
			money.Fixed(row.Environmental),
			money.Fixed(row.Transport),
			money.Fixed(row.PumpPerM3),
			money.Fixed(row.PumpHourly),
			money.Fixed(row.Service),
			money.Fixed(row.Total),
		})
	}
	table.Render()

	if len(r.Rows) > 0 {
		fmt.Fprintf(w, "\nBilled service increments: %d\n", r.Rows[0].ServiceIncrements)
	}

	switch {
	case r.Duplicate:
		fmt.Fprintf(w, "Calculation %s is already in the history; not saved again.\n", r.CalculationID)
	case r.CalculationFile != "":
		fmt.Fprintf(w, "Saved calculation %s to %s\n", r.CalculationID, r.CalculationFile)
	}
}

// printPriceTable writes the extracted fields in document order
func printPriceTable(w io.Writer, prices *quote.PriceTable) {
	table := newTable(w, []string{"Field", "€"})
	for _, k := range prices.Keys() {
		table.Append([]string{k, money.Fixed(prices.Value(k))})
	}
	table.Render()
}

// printHistory writes the grouped history listing
func printHistory(w io.Writer, groups []history.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No calculation history yet.")
		return
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "PDF: %s\n", g.DocumentName)
		fmt.Fprintf(w, "%s | %s\n", g.Latest.Format(history.DisplayTimeLayout), g.Caption)

		table := newTable(w, []string{"Grade", "Total €/m³", "Id", "File"})
		for _, line := range g.Lines {
			file := line.Label + " -> " + line.CalculationFile
			if !line.FileExists {
				file = "file missing"
			}
			table.Append([]string{line.Grade, line.TotalDisplay, line.CalculationID, file})
		}
		table.Render()
	}
	fmt.Fprintf(w, "\n%d document(s)\n", len(groups))
}
