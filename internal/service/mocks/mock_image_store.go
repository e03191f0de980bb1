package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, modelNo string, data []byte, filename string) (string, error) {
	args := m.Called(ctx, modelNo, data, filename)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, rel string) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

func (m *MockImageStore) CopyDir(ctx context.Context, oldModel, newModel string) (int, error) {
	args := m.Called(ctx, oldModel, newModel)
	return args.Int(0), args.Error(1)
}

func (m *MockImageStore) DeleteDir(ctx context.Context, modelNo string) error {
	args := m.Called(ctx, modelNo)
	return args.Error(0)
}
