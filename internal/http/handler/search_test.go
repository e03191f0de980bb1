package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qcportal/internal/model"
	"qcportal/internal/service"
	serviceMocks "qcportal/internal/service/mocks"
)

func TestSearchRecords(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		setupMocks func(m *serviceMocks.MockSearchService)
		wantStatus int
		wantCode   string
	}{
		{
			name:  "filters are passed through",
			query: "?model_no=190A&q=solder&customer=Acme&from=2024-01-01&to=2024/01/31&include_undated=true&order=severity&limit=10&offset=20",
			setupMocks: func(m *serviceMocks.MockSearchService) {
				want := service.SearchFilter{
					ModelNo:        "190A",
					Text:           "solder",
					Customer:       "Acme",
					From:           &from,
					To:             &to,
					IncludeUndated: true,
					Order:          service.OrderSeverity,
					Limit:          10,
					Offset:         20,
				}
				m.On("Search", mock.Anything, model.KindNonconformity, want).
					Return(&service.SearchResult{Items: []service.SearchHit{{Date: "2024-01-05"}}, Total: 21}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad date",
			query:      "?from=yesterday",
			setupMocks: func(m *serviceMocks.MockSearchService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_DATE",
		},
		{
			name:       "bad order",
			query:      "?order=oldest",
			setupMocks: func(m *serviceMocks.MockSearchService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ORDER",
		},
		{
			name:       "bad limit",
			query:      "?limit=-1",
			setupMocks: func(m *serviceMocks.MockSearchService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_LIMIT",
		},
		{
			name:  "inverted range",
			query: "?from=2024-02-01&to=2024-01-01",
			setupMocks: func(m *serviceMocks.MockSearchService) {
				m.On("Search", mock.Anything, model.KindNonconformity, mock.Anything).
					Return(nil, service.ErrValidation).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockSearchService)
			tt.setupMocks(mockSvc)
			app := fiber.New()
			app.Get("/search/:kind", SearchRecords(mockSvc))

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/search/nc"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			} else {
				var res service.SearchResult
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				assert.Equal(t, 21, res.Total)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestExportRecords(t *testing.T) {
	mockSvc := new(serviceMocks.MockSearchService)
	app := fiber.New()
	app.Get("/export/:kind", ExportRecords(mockSvc))

	csv := "\ufeffid,created_at,model_no\n1,2024-07-01T08:00:00Z,190A\n"
	mockSvc.On("Export", mock.Anything, model.KindFirstPiece, service.SearchFilter{ModelNo: "190A"}, mock.Anything).
		Return(csv, 1, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/export/fp?model_no=190A", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "first_piece-")
	assert.Equal(t, "1", resp.Header.Get("X-Total-Count"))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, csv, string(body))
	mockSvc.AssertExpectations(t)
}

func TestListCustomers(t *testing.T) {
	mockSvc := new(serviceMocks.MockSearchService)
	app := fiber.New()
	app.Get("/customers", ListCustomers(mockSvc))

	mockSvc.On("DistinctCustomers", mock.Anything, model.Kind("")).Return([]string{"Acme", "acme"}, nil).Once()
	mockSvc.On("DistinctCustomers", mock.Anything, model.KindNonconformity).Return([]string{"Acme"}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/customers", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/customers?kind=nc", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/customers?kind=audit", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}
