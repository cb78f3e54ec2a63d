package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrArchivingDisabled is returned by Upload when no upload directory is configured
var ErrArchivingDisabled = errors.New("upload archiving is disabled")

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	calcPath   string
	uploadPath string
}

// NewLocalStorage creates a new local filesystem storage. uploadPath may be
// empty, in which case Upload always fails with ErrArchivingDisabled.
func NewLocalStorage(calcPath, uploadPath string) (*LocalStorage, error) {
	if calcPath == "" {
		return nil, errors.New("calculation directory is required")
	}
	if err := os.MkdirAll(calcPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if uploadPath != "" {
		if err := os.MkdirAll(uploadPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	return &LocalStorage{calcPath: calcPath, uploadPath: uploadPath}, nil
}

// Upload stores a copy of an uploaded document and returns its metadata
func (s *LocalStorage) Upload(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	if s.uploadPath == "" {
		return nil, ErrArchivingDisabled
	}

	fileID := uuid.New()

	// UUID prefix keeps repeated uploads of the same document apart
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filepath.Base(filename), ext)
	storedFilename := fmt.Sprintf("%s_%s%s", fileID.String()[:8], SanitizeFilename(stem, 80), strings.ToLower(ext))
	filePath := filepath.Join(s.uploadPath, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        filePath,
		CreatedAt:   time.Now(),
	}

	if err := s.saveMetadata(fileID, info); err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, err
	}

	return info, nil
}

// Put writes data to name inside the calculation directory. The file is written
// to a temporary name first and renamed, so readers never see a partial file.
func (s *LocalStorage) Put(ctx context.Context, name string, contentType string, data []byte) (*FileInfo, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}

	filePath := filepath.Join(s.calcPath, name)
	if err := WriteFileAtomic(filePath, data); err != nil {
		return nil, err
	}

	return &FileInfo{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Path:        filePath,
		CreatedAt:   time.Now(),
	}, nil
}

// Open returns a reader for the file at path
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Exists reports whether a regular file is present at path
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// Delete removes the file at path. A file that is already gone is not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// saveMetadata saves upload metadata to a JSON sidecar file
func (s *LocalStorage) saveMetadata(fileID uuid.UUID, info *FileInfo) error {
	metaDir := filepath.Join(s.uploadPath, ".meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	metaPath := filepath.Join(metaDir, fileID.String()+".json")
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

var (
	// Characters that are unsafe in file names on common filesystems
	unsafeChars = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	separatorRun = regexp.MustCompile(`[\s\p{P}\p{S}\p{C}]+`)
)

// SanitizeFilename replaces unsafe characters, collapses runs of whitespace and
// punctuation into a single underscore and truncates the result to maxLen
// characters. The extension is left to the caller.
func SanitizeFilename(name string, maxLen int) string {
	name = unsafeChars.Replace(name)
	name = separatorRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		name = string([]rune(name)[:maxLen])
		name = strings.TrimRight(name, "_")
	}

	if name == "" {
		return "document"
	}
	return name
}
