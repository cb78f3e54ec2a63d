package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/history"
	"github.com/FACorreiaa/pumpquote/pkg/money"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

func (a *app) calcCommand() *cobra.Command {
	var (
		volume  string
		hours   string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "calc [flags] quote.pdf",
		Short: "Compute the per-m³ price of every grade in a quote and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseJobParameters(volume, hours, minutes)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			result, err := a.deps.QuoteService.Process(cmd.Context(), args[0], content, params)
			if result != nil {
				printResult(a.stdout, result)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&volume, "volume", "v", "", "concrete volume in m³ (required)")
	cmd.Flags().StringVar(&hours, "hours", "0", "pumping time in hours")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "on-site service time in minutes")
	_ = cmd.MarkFlagRequired("volume")
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract quote.pdf",
		Short: "Show the prices read from a quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			table, err := a.deps.QuoteService.Extract(cmd.Context(), content)
			if err != nil {
				return err
			}
			printPriceTable(a.stdout, table)
			return nil
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved calculations grouped by document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.deps.QuoteService.History(cmd.Context(), query)
			if err != nil {
				return err
			}
			printHistory(a.stdout, groups)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy filter on document name or grade")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full history as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = history.ExportFileName + "." + format
			}

			var buf bytes.Buffer
			if err := a.deps.QuoteService.ExportHistory(cmd.Context(), format, &buf); err != nil {
				return err
			}
			return writeOutput(a, out, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default rudus_laskuhistoria.<format>)")
	return cmd
}

func (a *app) exportCalcCommand() *cobra.Command {
	var (
		id  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "export-calc",
		Short: "Export one saved calculation file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			path, err := a.deps.QuoteService.ExportCalculation(cmd.Context(), id, &buf)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Base(path)
			}
			return writeOutput(a, out, buf.Bytes())
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "calculation id (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default: the saved file name)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// parseJobParameters reads the job flags, accepting comma decimals
func parseJobParameters(volume, hours string, minutes int) (quote.JobParameters, error) {
	v, err := money.ParseEuropean(volume)
	if err != nil {
		return quote.JobParameters{}, fmt.Errorf("%w: volume: %w", quote.ErrInvalidParameters, err)
	}
	h, err := money.ParseEuropean(hours)
	if err != nil {
		return quote.JobParameters{}, fmt.Errorf("%w: hours: %w", quote.ErrInvalidParameters, err)
	}

	params := quote.JobParameters{Volume: v, PumpingHours: h, ServiceMinutes: minutes}
	return params, params.Validate()
}

func writeOutput(a *app, out string, data []byte) error {
	if out == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := storage.WriteFileAtomic(out, data); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Wrote %s\n", out)
	return nil
}
