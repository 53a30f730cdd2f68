package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps files on the local filesystem. Used in development and
// whenever FILESTORE_DRIVER=local.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, baseURL: baseURL}, nil
}

func (s *LocalStore) Upload(ctx context.Context, file FileUpload) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	key := newKey(file.FileName)
	path := filepath.Join(s.baseDir, key)
	out, err := os.Create(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, file.Content)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Nothing will ever reference a partial file.
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	return StoredFile{URL: joinURL(s.baseURL, key), PublicID: key}, nil
}

func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Keys never contain separators; reject anything that could escape baseDir.
	if publicID == "" || filepath.Base(publicID) != publicID {
		return fmt.Errorf("invalid file key %q", publicID)
	}
	if err := os.Remove(filepath.Join(s.baseDir, publicID)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
