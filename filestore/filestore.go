// Package filestore stores attachment binaries outside the database.
package filestore

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileUpload is a single file received from a client.
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// StoredFile locates an uploaded file. PublicID is the key used to delete it.
type StoredFile struct {
	URL      string
	PublicID string
}

// FileStore uploads and deletes files by opaque key.
type FileStore interface {
	Upload(ctx context.Context, file FileUpload) (StoredFile, error)
	Delete(ctx context.Context, publicID string) error
}

// newKey returns a collision-free key that keeps the original extension.
func newKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return uuid.NewString() + ext
}

func joinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}
