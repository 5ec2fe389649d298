package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/pinguard"
	"github.com/novabank/core-banking/internal/service"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Initiate(ctx context.Context, cmd service.InitiateCommand) (*transfer.Transfer, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) GetTransferByID(ctx context.Context, userID, id uuid.UUID) (*transfer.Transfer, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) GetTransferByReference(ctx context.Context, userID uuid.UUID, reference string) (*transfer.Transfer, error) {
	args := m.Called(ctx, userID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.UserAuth())
	return r
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, userID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.NotNil(t, top.Data)
	dataBytes, err := json.Marshal(top.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(dataBytes, out))
}

func decodeDataWithMeta(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) MetaInfo {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.NotNil(t, top.Data)
	require.NotNil(t, top.Meta)
	dataBytes, err := json.Marshal(top.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(dataBytes, out))
	return *top.Meta
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorInfo {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.NotNil(t, top.Error)
	return *top.Error
}

func sampleTransfer(fromID uuid.UUID) *transfer.Transfer {
	return &transfer.Transfer{
		ID:            uuid.New(),
		Reference:     "TRF-20250601-ABCDEF12",
		Type:          transfer.TypeInternal,
		Status:        transfer.StatusProcessing,
		FromAccountID: fromID,
		Currency:      "USD",
		Amount:        5000,
		TotalAmount:   5000,
		CreatedAt:     time.Now(),
	}
}

func TestTransferHandler_Initiate(t *testing.T) {
	userID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	newRouter := func(svc *MockTransferService) *gin.Engine {
		router := setupTestRouter()
		router.POST("/transfers", NewTransferHandler(testHandlerLogger(), svc).Initiate)
		return router
	}

	validBody := InitiateTransferRequest{
		FromAccountID: fromID.String(),
		Type:          "INTERNAL",
		Amount:        5000,
		Pin:           "4321",
		ToAccountID:   toID.String(),
	}

	t.Run("accepted", func(t *testing.T) {
		svc := new(MockTransferService)
		tr := sampleTransfer(fromID)
		svc.On("Initiate", mock.Anything, mock.MatchedBy(func(cmd service.InitiateCommand) bool {
			return cmd.UserID == userID &&
				cmd.FromAccountID == fromID &&
				cmd.Type == transfer.TypeInternal &&
				cmd.Amount == 5000 &&
				cmd.ToAccountID != nil && *cmd.ToAccountID == toID
		})).Return(tr, nil)

		rr := performJSON(t, newRouter(svc), http.MethodPost, "/transfers", userID, validBody)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var resp TransferResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, tr.Reference, resp.Reference)
		assert.Equal(t, "PROCESSING", resp.Status)
		svc.AssertExpectations(t)
	})

	t.Run("missing identity header", func(t *testing.T) {
		svc := new(MockTransferService)
		rr := performJSON(t, newRouter(svc), http.MethodPost, "/transfers", uuid.Nil, validBody)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockTransferService)
		body := InitiateTransferRequest{FromAccountID: fromID.String(), Type: "INTERNAL"}

		rr := performJSON(t, newRouter(svc), http.MethodPost, "/transfers", userID, body)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name     string
			err      error
			wantCode int
			wantErr  string
		}{
			{"insufficient funds", account.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
			{"inactive account", account.ErrAccountInactive, http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE"},
			{"same account", transfer.ErrSameAccount, http.StatusUnprocessableEntity, "SAME_ACCOUNT"},
			{"recipient not found", transfer.ErrRecipientNotFound, http.StatusUnprocessableEntity, "RECIPIENT_NOT_FOUND"},
			{"currency mismatch", account.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH"},
			{"pin not set", pinguard.ErrPinNotSet, http.StatusUnprocessableEntity, "PIN_NOT_SET"},
			{"account missing", account.ErrAccountNotFound{AccountID: fromID}, http.StatusNotFound, "NOT_FOUND"},
			{"not owner", account.ErrNotAccountOwner{AccountID: fromID, UserID: userID}, http.StatusForbidden, "FORBIDDEN"},
			{"wrong pin", pinguard.ErrInvalidPin, http.StatusForbidden, "FORBIDDEN"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				svc := new(MockTransferService)
				svc.On("Initiate", mock.Anything, mock.Anything).Return(nil, tc.err)

				rr := performJSON(t, newRouter(svc), http.MethodPost, "/transfers", userID, validBody)

				assert.Equal(t, tc.wantCode, rr.Code)
				assert.Equal(t, tc.wantErr, decodeError(t, rr).Code)
			})
		}
	})

	t.Run("locked pin carries a retry hint", func(t *testing.T) {
		svc := new(MockTransferService)
		svc.On("Initiate", mock.Anything, mock.Anything).
			Return(nil, pinguard.ErrPinLocked{RetryAfter: 30 * time.Minute})

		rr := performJSON(t, newRouter(svc), http.MethodPost, "/transfers", userID, validBody)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "1800", rr.Header().Get("Retry-After"))
		assert.Equal(t, "PIN_LOCKED", decodeError(t, rr).Code)
	})
}

func TestTransferHandler_GetByID(t *testing.T) {
	userID := uuid.New()
	tr := sampleTransfer(uuid.New())

	newRouter := func(svc *MockTransferService) *gin.Engine {
		router := setupTestRouter()
		router.GET("/transfers/:id", NewTransferHandler(testHandlerLogger(), svc).GetByID)
		return router
	}

	t.Run("success", func(t *testing.T) {
		svc := new(MockTransferService)
		svc.On("GetTransferByID", mock.Anything, userID, tr.ID).Return(tr, nil)

		rr := performJSON(t, newRouter(svc), http.MethodGet, "/transfers/"+tr.ID.String(), userID, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp TransferResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, tr.ID.String(), resp.ID)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockTransferService)
		rr := performJSON(t, newRouter(svc), http.MethodGet, "/transfers/not-a-uuid", userID, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockTransferService)
		svc.On("GetTransferByID", mock.Anything, userID, tr.ID).
			Return(nil, transfer.ErrTransferNotFound{TransferID: tr.ID})

		rr := performJSON(t, newRouter(svc), http.MethodGet, "/transfers/"+tr.ID.String(), userID, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("foreign transfer is forbidden", func(t *testing.T) {
		svc := new(MockTransferService)
		svc.On("GetTransferByID", mock.Anything, userID, tr.ID).
			Return(nil, account.ErrNotAccountOwner{AccountID: tr.FromAccountID, UserID: userID})

		rr := performJSON(t, newRouter(svc), http.MethodGet, "/transfers/"+tr.ID.String(), userID, nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestTransferHandler_GetByReference(t *testing.T) {
	userID := uuid.New()
	tr := sampleTransfer(uuid.New())

	svc := new(MockTransferService)
	router := setupTestRouter()
	router.GET("/transfers/reference/:reference", NewTransferHandler(testHandlerLogger(), svc).GetByReference)

	svc.On("GetTransferByReference", mock.Anything, userID, tr.Reference).Return(tr, nil)

	rr := performJSON(t, router, http.MethodGet, "/transfers/reference/"+tr.Reference, userID, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp TransferResponse
	decodeData(t, rr, &resp)
	assert.Equal(t, tr.Reference, resp.Reference)
}
