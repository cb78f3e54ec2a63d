// Package extractor reads the price figures out of a concrete vendor's pumping
// quote. The rules are keyed to the vendor's fixed document layout: anchor
// phrases locate each figure and a short forward scan picks up its value.
package extractor

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/pkg/money"
)

// lookahead is how many lines, the anchor line included, a forward scan covers
const lookahead = 5

const number = `(\d+(?:[.,]\d+)?)`

var (
	perCubicPrice  = regexp.MustCompile(`(?i)` + number + `\s*€\s*/\s*m(?:³|3)`)
	perHourPrice   = regexp.MustCompile(`(?i)` + number + `\s*€\s*/\s*h\b`)
	perVolumePrice = regexp.MustCompile(`(?i)` + number + `\s*€\s*/\s*m(?:³|3)?(?:[^\p{L}\d]|$)`)
	currencyAmount = regexp.MustCompile(number + `\s*€`)
	volumeMarker   = regexp.MustCompile(`(?i)\b(?:alle|yli)\s+\d+(?:[.,]\d+)?\s*m(?:³|3)`)
)

// Extractor turns quote text into a price table
type Extractor struct {
	anchors *anchorMatcher
	logger  *slog.Logger
}

// New creates an Extractor
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		anchors: newAnchorMatcher(),
		logger:  logger,
	}
}

// ExtractPDF decodes a PDF and extracts its price table. Both an undecodable
// document and a document without grade prices yield quote.ErrNoPrices.
func (e *Extractor) ExtractPDF(content []byte) (*quote.PriceTable, error) {
	lines, err := TextLines(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", quote.ErrNoPrices, err)
	}
	e.logger.Debug("decoded quote document", slog.Int("lines", len(lines)))
	return e.Extract(lines)
}

// Extract scans the document lines once, top to bottom, and returns the price
// table. It fails with quote.ErrNoPrices when no grade price was found.
func (e *Extractor) Extract(lines []string) (*quote.PriceTable, error) {
	table := quote.NewPriceTable()

	var (
		inGrades bool
		grades   []string
		prices   []decimal.Decimal
	)

	for i, line := range lines {
		hits := e.anchors.match(line)

		if hits.has(anchorEnvironmental) {
			e.setOnce(table, quote.FieldEnvironmental, scanForward(lines, i, perCubicPrice))
		}

		if hits.has(anchorServiceSurcharge) || (hits.has(anchorServiceTime) && hits.has(anchorCurrency)) {
			e.setOnce(table, quote.FieldServiceRate, firstPrice(line, currencyAmount))
		}

		if hits.has(anchorNetPrices) {
			inGrades = true
			continue
		}
		if inGrades && (hits.has(anchorTransport) || hits.has(anchorEnvironmental)) {
			inGrades = false
		}

		if inGrades {
			loc := perCubicPrice.FindStringSubmatchIndex(line)
			if hits.has(anchorConcrete) && quote.StrengthClass.MatchString(line) {
				grades = append(grades, gradeDescription(line, loc))
			}
			if loc != nil {
				if v, err := money.ParseEuropean(line[loc[2]:loc[3]]); err == nil {
					prices = append(prices, v)
				}
			}
		}

		if hits.has(anchorTransport) || volumeMarker.MatchString(line) {
			e.setOnce(table, quote.FieldTransport, scanForward(lines, i, perCubicPrice))
		}

		if hits.has(anchorPumping) && hits.has(anchorCurrency) {
			e.setOnce(table, quote.FieldPumpHourly, firstPrice(line, perHourPrice))
			e.setOnce(table, quote.FieldPumpPerM3, firstPrice(line, perVolumePrice))
		}
	}

	if len(grades) != len(prices) {
		e.logger.Warn("grade and price counts differ, skipping grades",
			slog.Int("grades", len(grades)),
			slog.Int("prices", len(prices)),
		)
	} else {
		for i, g := range grades {
			table.Set(g, prices[i])
		}
	}

	found := table.Grades()
	if len(found) == 0 {
		return nil, quote.ErrNoPrices
	}

	e.logger.Info("extracted quote prices",
		slog.Int("fields", table.Len()),
		slog.Int("grades", len(found)),
	)
	return table, nil
}

// setOnce stores v under name unless name already has a value or v is nil
func (e *Extractor) setOnce(table *quote.PriceTable, name string, v *decimal.Decimal) {
	if v == nil || table.Has(name) {
		return
	}
	table.Set(name, *v)
	e.logger.Debug("extracted field", slog.String("field", name), slog.String("value", v.String()))
}

// scanForward returns the first price matching re on lines[from] or the lines
// right after it.
func scanForward(lines []string, from int, re *regexp.Regexp) *decimal.Decimal {
	end := min(from+lookahead, len(lines))
	for j := from; j < end; j++ {
		if v := firstPrice(lines[j], re); v != nil {
			return v
		}
	}
	return nil
}

// firstPrice parses the first submatch of re in line
func firstPrice(line string, re *regexp.Regexp) *decimal.Decimal {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	v, err := money.ParseEuropean(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// gradeDescription is the grade line without its price, whitespace collapsed
func gradeDescription(line string, priceLoc []int) string {
	if priceLoc != nil {
		if head := strings.TrimSpace(line[:priceLoc[0]]); head != "" {
			line = head
		}
	}
	return strings.Join(strings.Fields(line), " ")
}
