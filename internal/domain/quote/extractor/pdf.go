package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyDocument is returned for zero-length input
var ErrEmptyDocument = errors.New("empty PDF content")

const (
	// gapFactor is the horizontal gap, relative to font size, above which two
	// text runs on the same row are treated as separate words.
	gapFactor = 0.15
	// avgGlyphWidth estimates a glyph's advance, relative to font size, for
	// fonts without a widths table.
	avgGlyphWidth = 0.5
	// rowTolerance is the baseline distance, in points, within which glyphs
	// share a row.
	rowTolerance = 1.0
)

// TextLines decodes a PDF and returns its text as trimmed, non-blank lines in
// reading order, page by page.
func TextLines(content []byte) (lines []string, err error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}

	// The PDF reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, pageLines(page)...)
	}

	return lines, nil
}

// pageLines reads a page as rows of glyphs. Producers whose content stream
// cannot be interpreted fall back to the library's row grouping and then to
// the plain text stream.
func pageLines(page pdf.Page) []string {
	if rows := contentRows(page); len(rows) > 0 {
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			out = appendLine(out, joinRow(row))
		}
		return out
	}

	rows, err := page.GetTextByRow()
	if err == nil && positioned(rows) {
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			out = appendLine(out, joinRow(row.Content))
		}
		return out
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil
	}
	return SplitLines(text)
}

// contentRows interprets the page content and groups its glyphs into rows
func contentRows(page pdf.Page) (rows [][]pdf.Text) {
	// Content panics on operators with unexpected operands
	defer func() {
		if r := recover(); r != nil {
			rows = nil
		}
	}()
	return groupRows(page.Content().Text)
}

// groupRows orders glyphs top to bottom and collects those whose baselines
// are within rowTolerance into one row. Control glyphs are dropped.
func groupRows(texts []pdf.Text) [][]pdf.Text {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimFunc(t.S, unicode.IsControl) == "" {
			continue
		}
		glyphs = append(glyphs, t)
	}
	// Stable, so glyphs sharing a position keep stream order
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var rows [][]pdf.Text
	for _, g := range glyphs {
		if n := len(rows); n > 0 && math.Abs(rows[n-1][0].Y-g.Y) <= rowTolerance {
			rows[n-1] = append(rows[n-1], g)
			continue
		}
		rows = append(rows, []pdf.Text{g})
	}
	return rows
}

// positioned reports whether rows carry usable coordinates. GetTextByRow
// ignores relative text moves, so such pages come back with every run of a
// row stacked on one point.
func positioned(rows pdf.Rows) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if stacked(row.Content) {
			return false
		}
	}
	return true
}

func stacked(texts []pdf.Text) bool {
	if len(texts) < 2 {
		return false
	}
	for _, t := range texts[1:] {
		if t.X != texts[0].X || t.Y != texts[0].Y {
			return false
		}
	}
	return true
}

// joinRow concatenates the text runs of one row left to right, inserting a
// space where runs are visibly apart.
func joinRow(texts []pdf.Text) string {
	runs := make([]pdf.Text, len(texts))
	copy(runs, texts)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	for i, t := range runs {
		if i > 0 && separated(runs[i-1], t) &&
			!strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
	}
	return b.String()
}

// separated reports whether next starts a new word after prev. Runs without
// a font size are whole strings from GetTextByRow, so any advance separates
// them. A missing width is estimated from the font size.
func separated(prev, next pdf.Text) bool {
	if prev.FontSize <= 0 {
		return next.X > prev.X
	}
	width := prev.W
	if width <= 0 {
		width = prev.FontSize * avgGlyphWidth * float64(utf8.RuneCountInString(prev.S))
	}
	return next.X-(prev.X+width) > prev.FontSize*gapFactor
}

// SplitLines splits text on line breaks and normalises each line the same way
// TextLines does.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		out = appendLine(out, line)
	}
	return out
}

func appendLine(lines []string, line string) []string {
	// Some producers emit decomposed umlauts; anchors are written precomposed
	line = strings.TrimSpace(norm.NFC.String(line))
	if line == "" {
		return lines
	}
	return append(lines, line)
}
