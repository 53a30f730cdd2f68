package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"civictrack-be/filestore"
)

// MockFileStore is a mock implementation of filestore.FileStore
type MockFileStore struct {
	mock.Mock
}

var _ filestore.FileStore = (*MockFileStore)(nil)

func (m *MockFileStore) Upload(ctx context.Context, file filestore.FileUpload) (filestore.StoredFile, error) {
	args := m.Called(ctx, file)
	if fn, ok := args.Get(0).(func(context.Context, filestore.FileUpload) filestore.StoredFile); ok {
		return fn(ctx, file), args.Error(1)
	}
	return args.Get(0).(filestore.StoredFile), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}
