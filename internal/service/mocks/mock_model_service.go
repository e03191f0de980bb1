package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

type MockModelService struct {
	mock.Mock
}

func (m *MockModelService) Upsert(ctx context.Context, mdl model.Model) (*model.Model, error) {
	args := m.Called(ctx, mdl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Model), args.Error(1)
}

func (m *MockModelService) Patch(ctx context.Context, modelNo string, p service.ModelPatch) (*model.Model, error) {
	args := m.Called(ctx, modelNo, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Model), args.Error(1)
}

func (m *MockModelService) Get(ctx context.Context, modelNo string) (*model.Model, error) {
	args := m.Called(ctx, modelNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Model), args.Error(1)
}

func (m *MockModelService) List(ctx context.Context, text, folder string) ([]model.Model, error) {
	args := m.Called(ctx, text, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Model), args.Error(1)
}

func (m *MockModelService) Folders(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockModelService) Rename(ctx context.Context, oldNo, newNo string) (*service.RenameResult, error) {
	args := m.Called(ctx, oldNo, newNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenameResult), args.Error(1)
}

func (m *MockModelService) Delete(ctx context.Context, modelNo string, opts service.DeleteModelOptions) (*service.DeleteModelResult, error) {
	args := m.Called(ctx, modelNo, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteModelResult), args.Error(1)
}
