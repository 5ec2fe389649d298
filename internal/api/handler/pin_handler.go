package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/user"
	"github.com/novabank/core-banking/internal/pinguard"
)

// PinManager manages transfer PINs. Satisfied by pinguard.Guard.
type PinManager interface {
	Set(ctx context.Context, userID uuid.UUID, pin string) error
}

// PinHandler handles transfer PIN management requests
type PinHandler struct {
	pins   PinManager
	logger *slog.Logger
}

// NewPinHandler creates a new PIN handler
func NewPinHandler(logger *slog.Logger, pins PinManager) *PinHandler {
	return &PinHandler{
		pins:   pins,
		logger: logger,
	}
}

// Set stores a new transfer PIN for the authenticated user
func (h *PinHandler) Set(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.pins.Set(c.Request.Context(), userID, req.Pin); err != nil {
		switch {
		case errors.Is(err, pinguard.ErrWeakPin):
			RespondBadRequest(c, "Transfer PIN must be 4 to 6 digits")
		case errors.Is(err, user.ErrUserNotFound{}):
			RespondNotFound(c, "User not found")
		default:
			h.logger.Error("Failed to set transfer PIN", "user_id", userID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}
