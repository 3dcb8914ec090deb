package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/raminazmi/RoseDye-backend/internal/http/middlewarectx"
	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

type InvoiceServiceMock struct {
	mock.Mock
}

func (m *InvoiceServiceMock) Create(ctx context.Context, userUID string, req models.DummyInvoice) (int64, error) {
	args := m.Called(ctx, userUID, req)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateInvoiceHandler_ServeHTTP(t *testing.T) {
	svcMock := new(InvoiceServiceMock)
	logger := newNoopLogger()

	handler := New(logger, svcMock)

	validBody := models.DummyInvoice{
		ClientID: 7,
		Date:     "2025-06-10",
		Amount:   decimal.RequireFromString("12"),
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		withUID        bool
		mockID         int64
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "успешное создание счёта",
			requestBody:    validBody,
			withUID:        true,
			mockID:         15,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			withUID:        true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "нет UID в контексте",
			requestBody:    validBody,
			withUID:        false,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
		},
		{
			name:           "клиент не найден",
			requestBody:    validBody,
			withUID:        true,
			mockErr:        repository.ErrClientNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "client not found",
		},
		{
			name:           "неположительная сумма",
			requestBody:    validBody,
			withUID:        true,
			mockErr:        ledger.ErrNonPositiveAmount,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "amount must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock.ExpectedCalls = nil
			svcMock.Calls = nil

			if tt.mockID != 0 || tt.mockErr != nil {
				svcMock.On("Create", mock.Anything, "uid-1", tt.requestBody.(models.DummyInvoice)).
					Return(tt.mockID, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withUID {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, float64(tt.mockID), data["id"])
			}

			svcMock.AssertExpectations(t)
		})
	}
}
