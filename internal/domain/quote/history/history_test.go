package history

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/pumpquote/internal/domain/quote"
	"github.com/FACorreiaa/pumpquote/internal/domain/quote/pricing"
	"github.com/FACorreiaa/pumpquote/pkg/storage"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testKey = quote.Key{
	DocumentName:   "Tarjous Rudus.pdf",
	Volume:         d("12.0"),
	PumpingHours:   d("2"),
	ServiceMinutes: 120,
}

var testRows = []pricing.BreakdownRow{
	{
		Grade: "Betoni C25/30", Description: "Betoni C25/30 #S3",
		Base: d("45.50"), Environmental: d("2.20"), Transport: d("12.47"),
		PumpHourly: d("1.67"), Service: d("5.54"), ServiceIncrements: 19, Total: d("67.38"),
	},
	{
		Grade: "Betoni C30/37", Description: "Betoni C30/37",
		Base: d("52.10"), Environmental: d("2.20"), Transport: d("12.47"),
		PumpHourly: d("1.67"), Service: d("5.54"), ServiceIncrements: 19, Total: d("73.98"),
	},
}

func newTestStore(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "calc"), "")
	require.NoError(t, err)
	return store
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(filepath.Join(t.TempDir(), "laskuhistoria.csv"), nil)
}

// ============================================================================
// Identifiers and file names
// ============================================================================

func TestCalculationID(t *testing.T) {
	sum := md5.Sum([]byte("Tarjous Rudus.pdf|12|2|120"))
	want := hex.EncodeToString(sum[:])[:10]

	assert.Equal(t, want, CalculationID(testKey))
	assert.Len(t, CalculationID(testKey), 10)

	other := testKey
	other.ServiceMinutes = 121
	assert.NotEqual(t, CalculationID(testKey), CalculationID(other))
}

func TestCalcFileName(t *testing.T) {
	name := CalcFileName(testKey)
	assert.Equal(t, "Tarjous_Rudus_12m3_2h_120min_"+CalculationID(testKey)+".csv", name)
}

func TestCalcFileName_Sanitised(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unsafe characters", "asiakas/työmaa: Tarjous   2024.pdf"},
		{"long name", strings.Repeat("Pitkä tarjousnimi ", 20) + ".pdf"},
		{"only punctuation", "///.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := testKey
			key.DocumentName = tt.doc
			key.Volume = d("12.5")
			name := CalcFileName(key)

			assert.NotContains(t, name, "/")
			assert.NotContains(t, name, ":")
			assert.NotContains(t, name, " ")
			assert.NotContains(t, name, "__")
			assert.Equal(t, ".csv", filepath.Ext(name))
			assert.LessOrEqual(t, len([]rune(name)), 84)
			assert.True(t, strings.HasSuffix(name, "_12_5m3_2h_120min_"+CalculationID(key)+".csv"), name)
		})
	}
}

func TestCalcFileName_LongParameters(t *testing.T) {
	tests := []struct {
		name   string
		volume string
		hours  string
	}{
		{"long volume", "12.3456789012345678901234567890123456789012345678901234567890123", "2"},
		{"long volume and hours", "12." + strings.Repeat("7", 60), "1." + strings.Repeat("3", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := testKey
			key.DocumentName = strings.Repeat("Pitkä tarjousnimi ", 20) + ".pdf"
			key.Volume = d(tt.volume)
			key.PumpingHours = d(tt.hours)
			name := CalcFileName(key)

			assert.LessOrEqual(t, len([]rune(name)), 84, name)
			assert.True(t, strings.HasSuffix(name, "_"+CalculationID(key)+".csv"), name)
			assert.True(t, strings.HasPrefix(name, "Pitkä_tarjousnim"), name)
		})
	}
}

// ============================================================================
// Records
// ============================================================================

func TestNewRecords(t *testing.T) {
	at := time.Date(2024, 5, 3, 14, 30, 0, 0, time.Local)
	records := NewRecords(at, testKey, testRows, "data/laskennat/x.csv")
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Time:            "2024-05-03 14:30:00",
		DocumentName:    "Tarjous Rudus.pdf",
		Volume:          "12",
		PumpingHours:    "2",
		ServiceMinutes:  "120",
		Grade:           "Betoni C25/30",
		Total:           "67.38",
		CalculationID:   CalculationID(testKey),
		CalculationFile: "data/laskennat/x.csv",
	}, records[0])
	assert.Equal(t, "73.98", records[1].Total)
}

func TestRecord_HasKey(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"same", Record{DocumentName: "Tarjous Rudus.pdf", Volume: "12", PumpingHours: "2", ServiceMinutes: "120"}, true},
		{"float formatting", Record{DocumentName: "Tarjous Rudus.pdf", Volume: "12.0", PumpingHours: "2.0", ServiceMinutes: "120.0"}, true},
		{"other document", Record{DocumentName: "toinen.pdf", Volume: "12", PumpingHours: "2", ServiceMinutes: "120"}, false},
		{"other minutes", Record{DocumentName: "Tarjous Rudus.pdf", Volume: "12", PumpingHours: "2", ServiceMinutes: "125"}, false},
		{"unparsable", Record{DocumentName: "Tarjous Rudus.pdf", Volume: "n/a", PumpingHours: "2", ServiceMinutes: "120"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.HasKey(testKey))
		})
	}
}

func TestRecord_ParseTime(t *testing.T) {
	for _, s := range []string{"2024-05-03 14:30:00", "2024-05-03 14:30:00.123456", "2024-05-03T14:30:00+03:00"} {
		_, err := Record{Time: s}.ParseTime()
		assert.NoError(t, err, s)
	}
	_, err := Record{Time: "eilen"}.ParseTime()
	assert.Error(t, err)
}

// ============================================================================
// Repository
// ============================================================================

func TestRepository_LoadMissingFile(t *testing.T) {
	records, err := newTestRepo(t).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepository_LoadEmptyFile(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.WriteFile(repo.Path(), []byte("\n"), 0644))

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepository_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	records := NewRecords(time.Now(), testKey, testRows, "x.csv")

	added, err := repo.Append(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Aika,PDF_nimi,m3,Pumppausaika_h,Palveluaika_min,Betonilaatu,Yhteensä_€_m3,Laskenta_ID,Laskenta_tiedosto"))
}

func TestRepository_DuplicateSuppression(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := NewRecords(time.Now(), testKey, testRows, "x.csv")
	_, err := repo.Append(ctx, first)
	require.NoError(t, err)

	// Same parameters written differently, recomputed later
	again := testKey
	again.Volume = d("12")
	again.PumpingHours = d("2.00")
	second := NewRecords(time.Now().Add(time.Hour), again, testRows, "y.csv")
	added, err := repo.Append(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, added)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	exists, err := repo.Exists(ctx, again)
	require.NoError(t, err)
	assert.True(t, exists)

	other := testKey
	other.DocumentName = "toinen.pdf"
	exists, err = repo.Exists(ctx, other)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_AppendFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	repo := NewRepository(filepath.Join(blocker, "laskuhistoria.csv"), nil)
	_, err := repo.Append(context.Background(), NewRecords(time.Now(), testKey, testRows, ""))
	assert.Error(t, err)
}

// ============================================================================
// Calculation files
// ============================================================================

func TestWriteCalculation(t *testing.T) {
	store := newTestStore(t)

	path, err := WriteCalculation(context.Background(), store, testKey, testRows)
	require.NoError(t, err)
	assert.Equal(t, CalcFileName(testKey), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []CalcRow
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, CalcRow{
		Grade:          "Betoni C25/30",
		Base:           "45.50",
		Environmental:  "2.20",
		Transport:      "12.47",
		PumpPerM3:      "0.00",
		PumpHourly:     "1.67",
		Service:        "5.54",
		Increments:     "19",
		Total:          "67.38",
		Volume:         "12",
		PumpingHours:   "2",
		ServiceMinutes: "120",
	}, rows[0])
}

// ============================================================================
// Listing
// ============================================================================

func TestListing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path, err := WriteCalculation(ctx, store, testKey, testRows[:1])
	require.NoError(t, err)

	records := []Record{
		{Time: "2024-05-01 08:00:00", DocumentName: "vanha.pdf", Volume: "8", PumpingHours: "1", ServiceMinutes: "30", Grade: "Betoni C25/30", Total: "70.10", CalculationID: "aaaaaaaaaa", CalculationFile: "missing.csv"},
		{Time: "ei aikaa", DocumentName: "rikki.pdf", Grade: "Betoni C25/30", Total: "1"},
		{Time: "2024-05-03 14:30:00", DocumentName: "Tarjous Rudus.pdf", Volume: "12", PumpingHours: "2", ServiceMinutes: "120", Grade: "Betoni C25/30 pakkasenkestävä erikois", Total: "67.38", CalculationID: CalculationID(testKey), CalculationFile: path},
		{Time: "2024-05-02 09:00:00", DocumentName: "vanha.pdf", Volume: "6", PumpingHours: "1", ServiceMinutes: "0", Grade: "Betoni C30/37", Total: "n/a"},
	}

	groups := Listing(ctx, records, store)
	require.Len(t, groups, 2)

	assert.Equal(t, "Tarjous Rudus.pdf", groups[0].DocumentName)
	assert.Equal(t, "12 m³ | 2 h | 120 min", groups[0].Caption)
	require.Len(t, groups[0].Lines, 1)
	line := groups[0].Lines[0]
	assert.Equal(t, "Betoni C25/30 pakkasenkes...", line.Label)
	assert.True(t, line.FileExists)
	assert.Contains(t, line.TotalDisplay, "67.38")

	assert.Equal(t, "vanha.pdf", groups[1].DocumentName)
	assert.Equal(t, "6 m³ | 1 h | 0 min", groups[1].Caption, "caption comes from the newest calculation")
	require.Len(t, groups[1].Lines, 2)
	assert.Equal(t, "Betoni C30/37", groups[1].Lines[0].Grade)
	assert.True(t, groups[1].Lines[0].Total.IsZero())
	assert.False(t, groups[1].Lines[1].FileExists)
}

func TestDownloadLabel(t *testing.T) {
	assert.Equal(t, "Betoni C25/30", DownloadLabel("Betoni C25/30"))
	assert.Equal(t, strings.Repeat("ä", 25), DownloadLabel(strings.Repeat("ä", 25)))
	assert.Equal(t, strings.Repeat("ä", 25)+"...", DownloadLabel(strings.Repeat("ä", 26)))
}

// ============================================================================
// Search
// ============================================================================

func TestFilter(t *testing.T) {
	records := []Record{
		{DocumentName: "Tarjous Rudus.pdf", Grade: "Betoni C25/30"},
		{DocumentName: "Työmaa Espoo.pdf", Grade: "Betoni C30/37"},
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"rudus", 1},
		{"tyomaa", 1},
		{"c30/37", 1},
		{"betoni", 2},
		{"helsinki", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Len(t, Filter(records, tt.query), tt.want)
		})
	}
}

// ============================================================================
// Export
// ============================================================================

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	records := NewRecords(time.Now(), testKey, testRows, "x.csv")
	require.NoError(t, ExportCSV(&buf, records))

	var back []Record
	require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &back))
	assert.Equal(t, records, back)

	buf.Reset()
	require.NoError(t, ExportCSV(&buf, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "Aika,"))
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	records := NewRecords(time.Date(2024, 5, 3, 14, 30, 0, 0, time.Local), testKey, testRows, "x.csv")
	require.NoError(t, ExportXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "Tarjous Rudus.pdf", rows[1][1])
	assert.Equal(t, "67.38", rows[1][6])
	assert.Equal(t, "Betoni C30/37", rows[2][5])

	styleID, err := f.GetCellStyle(exportSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	for col, want := range map[string]float64{"A": 22, "B": 22, "F": 30} {
		width, err := f.GetColWidth(exportSheet, col)
		require.NoError(t, err)
		assert.Equal(t, want, width, col)
	}
}

func TestExportCalculation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path, err := WriteCalculation(ctx, store, testKey, testRows)
	require.NoError(t, err)
	records := NewRecords(time.Now(), testKey, testRows, path)

	var buf bytes.Buffer
	got, err := ExportCalculation(ctx, store, records, CalculationID(testKey), &buf)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())

	_, err = ExportCalculation(ctx, store, records, "0000000000", &buf)
	assert.ErrorIs(t, err, ErrCalculationNotFound)

	require.NoError(t, os.Remove(path))
	_, err = ExportCalculation(ctx, store, records, CalculationID(testKey), &buf)
	assert.ErrorIs(t, err, ErrCalculationFileMissing)
}
