package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/importer"
	"qcportal/internal/model"
	"qcportal/internal/service"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Load(ctx context.Context, data []byte, filename string, kind model.Kind) (*service.ImportSession, error) {
	args := m.Called(ctx, data, filename, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSession), args.Error(1)
}

func (m *MockImportService) Get(ctx context.Context, id string) (*service.ImportSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSession), args.Error(1)
}

func (m *MockImportService) Map(ctx context.Context, id string, kind model.Kind, mp importer.Mapping) (*service.ImportSession, error) {
	args := m.Called(ctx, id, kind, mp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSession), args.Error(1)
}

func (m *MockImportService) Commit(ctx context.Context, id string) (*service.ImportSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSession), args.Error(1)
}

func (m *MockImportService) Close(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
