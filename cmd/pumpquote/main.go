// Command pumpquote prices concrete pumping jobs from a vendor's quote PDF and
// keeps a local history of every calculation.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/history"
	"github.com/FACorreiaa/pumpquote/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the output streams and the dependencies built before each command
type app struct {
	stdout io.Writer
	stderr io.Writer
	deps   *Dependencies
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, userMessage(err))
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pumpquote",
		Short:         "Price concrete pumping jobs from vendor quote PDFs",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, a.stderr)

			deps, err := InitDependencies(cfg, logger)
			if err != nil {
				return err
			}
			a.deps = deps
			return nil
		},
	}

	root.AddCommand(
		a.calcCommand(),
		a.extractCommand(),
		a.historyCommand(),
		a.exportCommand(),
		a.exportCalcCommand(),
	)
	return root
}

// userMessage turns an error into the text shown to the user
func userMessage(err error) string {
	switch {
	case errors.Is(err, quote.ErrNoPrices):
		return "No prices found. Check that the document is the vendor's price quote.\n  " + err.Error()
	case errors.Is(err, quote.ErrNoGrades):
		return "Calculation error: " + err.Error()
	case errors.Is(err, quote.ErrPersistence):
		return "History could not be saved (result shown above): " + err.Error()
	case errors.Is(err, quote.ErrInvalidParameters):
		return err.Error()
	case errors.Is(err, history.ErrCalculationNotFound), errors.Is(err, history.ErrCalculationFileMissing):
		return err.Error()
	default:
		return "Error: " + err.Error()
	}
}
