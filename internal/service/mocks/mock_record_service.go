package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/importer"
	"qcportal/internal/model"
	"qcportal/internal/service"
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) Insert(ctx context.Context, r *model.Record) (*model.Record, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordService) Create(ctx context.Context, in service.NewRecord) (*service.CreateResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateResult), args.Error(1)
}

func (m *MockRecordService) Get(ctx context.Context, kind model.Kind, id int64) (*model.Record, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordService) Update(ctx context.Context, kind model.Kind, id int64, fields map[string]string, ext model.Extension) (*model.Record, error) {
	args := m.Called(ctx, kind, id, fields, ext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordService) Delete(ctx context.Context, kind model.Kind, id int64, deleteBlobs bool) error {
	args := m.Called(ctx, kind, id, deleteBlobs)
	return args.Error(0)
}

func (m *MockRecordService) AttachImage(ctx context.Context, kind model.Kind, id int64, img service.Image) (*model.Record, error) {
	args := m.Called(ctx, kind, id, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordService) Importer() importer.Inserter {
	args := m.Called()
	return args.Get(0).(importer.Inserter)
}
