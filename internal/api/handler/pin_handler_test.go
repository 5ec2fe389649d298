package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/user"
	"github.com/novabank/core-banking/internal/pinguard"
)

type MockPinManager struct {
	mock.Mock
}

func (m *MockPinManager) Set(ctx context.Context, userID uuid.UUID, pin string) error {
	args := m.Called(ctx, userID, pin)
	return args.Error(0)
}

func setupPinRouter(pins *MockPinManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPinHandler(testHandlerLogger(), pins)
	r.PUT("/users/me/pin", middleware.UserAuth(), h.Set)
	return r
}

func TestPinHandler_Set(t *testing.T) {
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		pins := new(MockPinManager)
		pins.On("Set", mock.Anything, userID, "4821").Return(nil)

		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", userID,
			SetPinRequest{Pin: "4821"})

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		pins.AssertExpectations(t)
	})

	t.Run("missing identity header", func(t *testing.T) {
		pins := new(MockPinManager)
		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", uuid.Nil,
			SetPinRequest{Pin: "4821"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		pins.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty pin fails binding", func(t *testing.T) {
		pins := new(MockPinManager)
		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", userID,
			SetPinRequest{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		pins.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weak pin", func(t *testing.T) {
		pins := new(MockPinManager)
		pins.On("Set", mock.Anything, userID, "12").Return(pinguard.ErrWeakPin)

		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", userID,
			SetPinRequest{Pin: "12"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		errInfo := decodeError(t, rr)
		assert.Equal(t, "BAD_REQUEST", errInfo.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		pins := new(MockPinManager)
		pins.On("Set", mock.Anything, userID, "4821").
			Return(user.ErrUserNotFound{UserID: userID})

		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", userID,
			SetPinRequest{Pin: "4821"})

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		pins := new(MockPinManager)
		pins.On("Set", mock.Anything, userID, "4821").Return(assert.AnError)

		rr := performJSON(t, setupPinRouter(pins), http.MethodPut, "/users/me/pin", userID,
			SetPinRequest{Pin: "4821"})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
