// Package money provides the decimal helpers used for quote prices: parsing the
// comma-decimal figures printed on vendor documents, rounding to cents and
// formatting euro amounts for display.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// EUR is the only currency quotes are priced in.
const EUR = "EUR"

// Cents is the number of decimal places prices are rounded to.
const Cents int32 = 2

// ErrEmptyAmount is returned when there is nothing to parse.
var ErrEmptyAmount = errors.New("empty amount")

// ParseEuropean parses an amount written with a comma decimal separator, such as
// "45,50" or "1 234,50 €". Spaces (including non-breaking ones), the euro sign
// and dot thousands separators are dropped before parsing.
func ParseEuropean(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	s = strings.NewReplacer(
		" ", "",
		"\u00a0", "",
		"\u202f", "",
		"€", "",
	).Replace(s)

	if strings.Contains(s, ",") {
		// 1.234,56 -> 1234.56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	return d, nil
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// Fixed formats d with exactly two decimals and a period separator, the form
// written to CSV files.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(Cents)
}

// Display formats a euro amount for people, e.g. "€1,234.56".
func Display(d decimal.Decimal) string {
	return toMoney(d).Display()
}

// CentsOf returns d in minor units, rounded to the nearest cent.
func CentsOf(d decimal.Decimal) int64 {
	return d.Shift(Cents).Round(0).IntPart()
}

func toMoney(d decimal.Decimal) *money.Money {
	return money.New(CentsOf(d), EUR)
}
