package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/model"
)

type MockModelRepository struct {
	mock.Mock
}

func (m *MockModelRepository) Upsert(ctx context.Context, mdl *model.Model) error {
	args := m.Called(ctx, mdl)
	return args.Error(0)
}

func (m *MockModelRepository) Ensure(ctx context.Context, modelNo string) error {
	args := m.Called(ctx, modelNo)
	return args.Error(0)
}

func (m *MockModelRepository) FindByNo(ctx context.Context, modelNo string) (*model.Model, error) {
	args := m.Called(ctx, modelNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Model), args.Error(1)
}

func (m *MockModelRepository) List(ctx context.Context) ([]model.Model, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Model), args.Error(1)
}

func (m *MockModelRepository) Rename(ctx context.Context, oldNo string, target model.Model) (int, error) {
	args := m.Called(ctx, oldNo, target)
	return args.Int(0), args.Error(1)
}

func (m *MockModelRepository) Delete(ctx context.Context, modelNo string, cascade bool) (int, error) {
	args := m.Called(ctx, modelNo, cascade)
	return args.Int(0), args.Error(1)
}

func (m *MockModelRepository) CountDependents(ctx context.Context, modelNo string) (int, error) {
	args := m.Called(ctx, modelNo)
	return args.Int(0), args.Error(1)
}
