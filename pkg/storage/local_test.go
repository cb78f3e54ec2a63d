package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "tarjous", "tarjous"},
		{"path separators", "a/b\\c", "a_b_c"},
		{"colon and spaces", "Tarjous:  Rudus   2024", "Tarjous_Rudus_2024"},
		{"punctuation runs", "quote -- final (v2).pdf", "quote_final_v2_pdf"},
		{"leading and trailing", "  __hello__  ", "hello"},
		{"unicode letters kept", "Työmaa Ää", "Työmaa_Ää"},
		{"nothing left", "///", "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input, 80))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("Betoni C25/30 : ", 20)

	got := SanitizeFilename(long, 80) + ".csv"

	assert.LessOrEqual(t, utf8.RuneCountInString(got), 84)
	assert.True(t, strings.HasSuffix(got, ".csv"))
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, ":")
	assert.NotContains(t, got, " ")
	assert.NotContains(t, got, "__")
}

func TestLocalStorage_Put(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStorage(filepath.Join(dir, "calc"), "")
	require.NoError(t, err)

	info, err := s.Put(ctx, "result.csv", "text/csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "result.csv", info.Name)
	assert.Equal(t, int64(8), info.Size)
	assert.True(t, s.Exists(ctx, info.Path))

	// Overwrite keeps a single file with the new content
	_, err = s.Put(ctx, "result.csv", "text/csv", []byte("x\n"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, info.Path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "calc"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLocalStorage_PutStripsDirectories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStorage(dir, "")
	require.NoError(t, err)

	info, err := s.Put(ctx, "../../escape.csv", "text/csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.csv"), info.Path)
}

func TestLocalStorage_Upload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStorage(filepath.Join(dir, "calc"), filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	info, err := s.Upload(ctx, "Tarjous: Rudus.PDF", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "Tarjous: Rudus.PDF", info.Name)
	assert.Equal(t, int64(8), info.Size)
	assert.True(t, strings.HasSuffix(info.Path, "_Tarjous_Rudus.pdf"), info.Path)
	assert.True(t, s.Exists(ctx, info.Path))

	meta := filepath.Join(dir, "uploads", ".meta", info.ID.String()+".json")
	assert.FileExists(t, meta)
}

func TestLocalStorage_UploadDisabled(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "a.pdf", "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrArchivingDisabled)
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	info, err := s.Put(ctx, "result.csv", "text/csv", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, info.Path))
	assert.False(t, s.Exists(ctx, info.Path))

	// Deleting again is fine
	assert.NoError(t, s.Delete(ctx, info.Path))
}

func TestLocalStorage_Exists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "")
	require.NoError(t, err)

	assert.False(t, s.Exists(ctx, ""))
	assert.False(t, s.Exists(ctx, filepath.Join(dir, "missing.csv")))
	assert.False(t, s.Exists(ctx, dir), "directories are not files")
}
