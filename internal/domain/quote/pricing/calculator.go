// Package pricing computes the per-m³ price of every concrete grade in a quote
// for a given pumping job.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/pkg/money"
)

// Rounding selects where the two rate-derived components are rounded
type Rounding string

const (
	// RoundLegacy rounds the pump hourly and service components to cents before
	// they are summed, matching totals already stored in existing histories.
	RoundLegacy Rounding = "legacy"
	// RoundSingle sums exact components and rounds the total only.
	RoundSingle Rounding = "single"
)

const (
	DefaultFreeServiceMinutes      = 25
	DefaultServiceIncrementMinutes = 5
)

// labelSeparators end the grade name in a grade description
const labelSeparators = "#("

// BreakdownRow is the per-m³ price of one grade. Component values are rounded
// to cents; Total is computed according to the calculator's Rounding.
type BreakdownRow struct {
	Grade             string
	Description       string
	Base              decimal.Decimal
	Environmental     decimal.Decimal
	Transport         decimal.Decimal
	PumpPerM3         decimal.Decimal
	PumpHourly        decimal.Decimal
	Service           decimal.Decimal
	ServiceIncrements int
	Total             decimal.Decimal
}

// Calculator turns a price table and job parameters into breakdown rows
type Calculator struct {
	rounding         Rounding
	freeMinutes      int
	incrementMinutes int
}

// Option configures a Calculator
type Option func(*Calculator)

// WithRounding sets the rounding mode. Unknown modes fall back to RoundLegacy.
func WithRounding(r Rounding) Option {
	return func(c *Calculator) {
		if r == RoundSingle {
			c.rounding = RoundSingle
			return
		}
		c.rounding = RoundLegacy
	}
}

// WithServiceAllowance sets the free service minutes and the billing increment.
// Non-positive increments are ignored.
func WithServiceAllowance(freeMinutes, incrementMinutes int) Option {
	return func(c *Calculator) {
		if freeMinutes >= 0 {
			c.freeMinutes = freeMinutes
		}
		if incrementMinutes > 0 {
			c.incrementMinutes = incrementMinutes
		}
	}
}

// New creates a Calculator with the vendor defaults: 25 free minutes, billed
// per started 5 minutes, legacy rounding.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		rounding:         RoundLegacy,
		freeMinutes:      DefaultFreeServiceMinutes,
		incrementMinutes: DefaultServiceIncrementMinutes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rounding returns the configured rounding mode
func (c *Calculator) Rounding() Rounding {
	return c.rounding
}

// Calculate returns one row per grade in table order. It fails with
// quote.ErrNoGrades when the table has no grade field.
func (c *Calculator) Calculate(table *quote.PriceTable, params quote.JobParameters) ([]BreakdownRow, error) {
	grades := table.Grades()
	if len(grades) == 0 {
		return nil, quote.ErrNoGrades
	}

	env := table.Value(quote.FieldEnvironmental)
	transport := table.Value(quote.FieldTransport)
	pumpPerM3 := table.Value(quote.FieldPumpPerM3)

	increments := c.ServiceIncrements(params.ServiceMinutes)
	pumpHourly := decimal.Zero
	service := decimal.Zero
	if params.Volume.IsPositive() {
		pumpHourly = table.Value(quote.FieldPumpHourly).Mul(params.PumpingHours).Div(params.Volume)
		service = table.Value(quote.FieldServiceRate).Mul(decimal.NewFromInt(int64(increments))).Div(params.Volume)
	}
	if c.rounding == RoundLegacy {
		pumpHourly = money.Round2(pumpHourly)
		service = money.Round2(service)
	}

	rows := make([]BreakdownRow, 0, len(grades))
	for _, g := range grades {
		base := table.Value(g)
		total := base.Add(env).Add(transport).Add(pumpPerM3).Add(pumpHourly).Add(service)

		rows = append(rows, BreakdownRow{
			Grade:             Label(g),
			Description:       g,
			Base:              money.Round2(base),
			Environmental:     money.Round2(env),
			Transport:         money.Round2(transport),
			PumpPerM3:         money.Round2(pumpPerM3),
			PumpHourly:        money.Round2(pumpHourly),
			Service:           money.Round2(service),
			ServiceIncrements: increments,
			Total:             money.Round2(total),
		})
	}
	return rows, nil
}

// ServiceIncrements is the number of billed increments for the given on-site
// minutes. A started increment is billed in full.
func (c *Calculator) ServiceIncrements(minutes int) int {
	billable := max(0, minutes-c.freeMinutes)
	return (billable + c.incrementMinutes - 1) / c.incrementMinutes
}

// Label is the grade name without its annotations, e.g. "Betoni C25/30" for
// "Betoni C25/30 #S3 16 mm".
func Label(description string) string {
	if i := strings.IndexAny(description, labelSeparators); i > 0 {
		description = description[:i]
	}
	return strings.TrimSpace(description)
}
