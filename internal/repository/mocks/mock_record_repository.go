package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/model"
	"qcportal/internal/repository"
)

type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Create(ctx context.Context, r *model.Record) (*model.Record, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordRepository) FindByID(ctx context.Context, kind model.Kind, id int64) (*model.Record, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *MockRecordRepository) Update(ctx context.Context, r *model.Record) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRecordRepository) Delete(ctx context.Context, kind model.Kind, id int64) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockRecordRepository) Find(ctx context.Context, q repository.RecordQuery) ([]model.Record, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

func (m *MockRecordRepository) Count(ctx context.Context, kind model.Kind) (int, error) {
	args := m.Called(ctx, kind)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordRepository) ReplaceImagePrefix(ctx context.Context, modelNo, oldPrefix, newPrefix string) (int, error) {
	args := m.Called(ctx, modelNo, oldPrefix, newPrefix)
	return args.Int(0), args.Error(1)
}
