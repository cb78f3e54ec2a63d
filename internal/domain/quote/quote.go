// Package quote holds the types shared by the quote pipeline: the price table
// extracted from a vendor document, the job parameters supplied by the user and
// the error kinds surfaced to them.
package quote

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Fixed price table field names. Grade entries use their description from the
// document as the key.
const (
	FieldEnvironmental = "Ympäristölisä €/m³"
	FieldTransport     = "Kuljetus €/m³"
	FieldPumpHourly    = "Pumppaus €/h"
	FieldPumpPerM3     = "Pumppaus €/m³"
	FieldServiceRate   = "Palveluaikalisä €/5 min"
)

// GradeKeyword marks a concrete product line ("betoni" is concrete).
const GradeKeyword = "betoni"

// StrengthClass matches a concrete strength class such as C25/30.
var StrengthClass = regexp.MustCompile(`C\d{2}/\d{2}`)

var (
	// ErrNoPrices means the document yielded no grade prices.
	ErrNoPrices = errors.New("no prices found in document")
	// ErrNoGrades means the price table has no field recognised as a grade.
	ErrNoGrades = errors.New("no concrete grades in price table")
	// ErrPersistence wraps failures to write the history or calculation files.
	ErrPersistence = errors.New("failed to save calculation")
	// ErrInvalidParameters wraps job parameter validation failures.
	ErrInvalidParameters = errors.New("invalid job parameters")
)

// IsGrade reports whether a price table field names a concrete grade.
func IsGrade(name string) bool {
	return strings.Contains(strings.ToLower(name), GradeKeyword) || StrengthClass.MatchString(name)
}

// PriceTable maps field names to prices in €. Keys keep their insertion order,
// so grades come out in the order they appear in the document.
type PriceTable struct {
	keys   []string
	values map[string]decimal.Decimal
}

// NewPriceTable creates an empty table
func NewPriceTable() *PriceTable {
	return &PriceTable{values: make(map[string]decimal.Decimal)}
}

// Set stores a value. Re-setting an existing key replaces the value but keeps
// its original position.
func (t *PriceTable) Set(name string, value decimal.Decimal) {
	if _, ok := t.values[name]; !ok {
		t.keys = append(t.keys, name)
	}
	t.values[name] = value
}

// Get returns the value for name and whether it is present
func (t *PriceTable) Get(name string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	v, ok := t.values[name]
	return v, ok
}

// Value returns the value for name, or zero when absent
func (t *PriceTable) Value(name string) decimal.Decimal {
	v, _ := t.Get(name)
	return v
}

// Has reports whether name is present
func (t *PriceTable) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Keys returns the field names in insertion order
func (t *PriceTable) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Len returns the number of fields
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Grades returns the grade field names in insertion order
func (t *PriceTable) Grades() []string {
	var grades []string
	for _, k := range t.Keys() {
		if IsGrade(k) {
			grades = append(grades, k)
		}
	}
	return grades
}

// Equal reports whether both tables hold the same keys in the same order with
// equal values.
func (t *PriceTable) Equal(other *PriceTable) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i, k := range t.Keys() {
		if other.keys[i] != k || !other.values[k].Equal(t.values[k]) {
			return false
		}
	}
	return true
}

// JobParameters are the per-job inputs supplied alongside the document
type JobParameters struct {
	Volume         decimal.Decimal // m³
	PumpingHours   decimal.Decimal
	ServiceMinutes int
}

// Validate checks the parameter ranges
func (p JobParameters) Validate() error {
	if !p.Volume.IsPositive() {
		return fmt.Errorf("%w: volume must be positive, got %s", ErrInvalidParameters, p.Volume)
	}
	if p.PumpingHours.IsNegative() {
		return fmt.Errorf("%w: pumping hours must not be negative, got %s", ErrInvalidParameters, p.PumpingHours)
	}
	if p.ServiceMinutes < 0 {
		return fmt.Errorf("%w: service minutes must not be negative, got %d", ErrInvalidParameters, p.ServiceMinutes)
	}
	return nil
}

// Key identifies a computation for duplicate suppression
type Key struct {
	DocumentName   string
	Volume         decimal.Decimal
	PumpingHours   decimal.Decimal
	ServiceMinutes int
}

// KeyFor builds the duplicate-suppression key for a document and parameters
func KeyFor(documentName string, p JobParameters) Key {
	return Key{
		DocumentName:   documentName,
		Volume:         p.Volume,
		PumpingHours:   p.PumpingHours,
		ServiceMinutes: p.ServiceMinutes,
	}
}

// Equal compares keys numerically, so 12 and 12.0 are the same volume
func (k Key) Equal(other Key) bool {
	return k.DocumentName == other.DocumentName &&
		k.Volume.Equal(other.Volume) &&
		k.PumpingHours.Equal(other.PumpingHours) &&
		k.ServiceMinutes == other.ServiceMinutes
}

// String renders the key as "document|volume|hours|minutes"
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.DocumentName, k.Volume.String(), k.PumpingHours.String(), k.ServiceMinutes)
}
