// Package storage provides the local file store for uploaded quote documents and
// the calculation files derived from them.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Path on disk, relative to the working directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the file operations the quote pipeline needs
type Storage interface {
	// Upload archives an uploaded document under a unique name and returns its metadata
	Upload(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Put writes data under an exact name, replacing any previous file of that name
	Put(ctx context.Context, name string, contentType string, data []byte) (*FileInfo, error)

	// Open returns a reader for a file previously returned in FileInfo.Path
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether a file is present at path
	Exists(ctx context.Context, path string) bool

	// Delete removes the file at path
	Delete(ctx context.Context, path string) error
}

// Config holds storage configuration
type Config struct {
	// Directory for files written with Put (calculation files)
	CalcPath string
	// Directory for archived uploads; empty disables archiving
	UploadPath string
}

// New creates the local Storage implementation
func New(cfg *Config) (*LocalStorage, error) {
	return NewLocalStorage(cfg.CalcPath, cfg.UploadPath)
}
