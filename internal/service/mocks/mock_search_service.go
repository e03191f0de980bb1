package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, kind model.Kind, f service.SearchFilter) (*service.SearchResult, error) {
	args := m.Called(ctx, kind, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

func (m *MockSearchService) DistinctCustomers(ctx context.Context, kind model.Kind) ([]string, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Export writes the string given as the first return value to w.
func (m *MockSearchService) Export(ctx context.Context, kind model.Kind, f service.SearchFilter, w io.Writer) (int, error) {
	args := m.Called(ctx, kind, f, w)
	if s, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, s)
	}
	return args.Int(1), args.Error(2)
}
