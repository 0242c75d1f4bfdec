// Package storage persists uploaded files (document scans, pour-site
// photos) behind a Store interface with local-disk and R2 backends.
package storage

import (
	"context"
	"io"
)

// FileInfo describes a stored file.
type FileInfo struct {
	URL      string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// Store saves and serves uploaded files. Handlers depend on this
// interface, never on a concrete backend.
type Store interface {
	// Save writes the file under path and returns its metadata.
	Save(ctx context.Context, path string, file io.Reader, size int64, contentType string) (*FileInfo, error)
	// Delete removes a stored file.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for a stored path.
	URL(path string) string
}
