package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/service"
)

// AdminHandler handles administrative transfer operations
type AdminHandler struct {
	adminService service.AdminService
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, adminService service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// Approve releases a held transfer
func (h *AdminHandler) Approve(c *gin.Context) {
	adminID, transferID, ok := h.adminAndTransfer(c)
	if !ok {
		return
	}

	t, err := h.adminService.Approve(c.Request.Context(), adminID, transferID)
	if err != nil {
		h.respondAdminError(c, "approve", err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// Decline rejects a held transfer and refunds the sender
func (h *AdminHandler) Decline(c *gin.Context) {
	adminID, transferID, ok := h.adminAndTransfer(c)
	if !ok {
		return
	}

	var req DeclineTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	t, err := h.adminService.Decline(c.Request.Context(), adminID, transferID, req.Reason)
	if err != nil {
		h.respondAdminError(c, "decline", err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// Reverse undoes a transfer and refunds the sender
func (h *AdminHandler) Reverse(c *gin.Context) {
	adminID, transferID, ok := h.adminAndTransfer(c)
	if !ok {
		return
	}

	t, err := h.adminService.Reverse(c.Request.Context(), adminID, transferID)
	if err != nil {
		h.respondAdminError(c, "reverse", err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// Edit amends a completed transfer's amount and/or destination
func (h *AdminHandler) Edit(c *gin.Context) {
	adminID, transferID, ok := h.adminAndTransfer(c)
	if !ok {
		return
	}

	var req EditTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cmd := service.EditCommand{
		AdminID:    adminID,
		TransferID: transferID,
		NewAmount:  req.NewAmount,
	}
	if req.NewToAccountID != nil {
		toID, err := uuid.Parse(*req.NewToAccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid new_to_account_id")
			return
		}
		cmd.NewToAccountID = &toID
	}

	t, err := h.adminService.Edit(c.Request.Context(), cmd)
	if err != nil {
		h.respondAdminError(c, "edit", err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// adminAndTransfer extracts the acting admin and the :id path parameter
func (h *AdminHandler) adminAndTransfer(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	adminID, ok := middleware.GetAdminID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, uuid.Nil, false
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transfer ID")
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, transferID, true
}

// respondAdminError maps administrative operation failures to HTTP codes
func (h *AdminHandler) respondAdminError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, transfer.ErrTransferNotFound{}):
		RespondNotFound(c, "Transfer not found")
	case errors.Is(err, transfer.ErrInvalidForApproval):
		RespondConflict(c, "Only pending transfers can be approved")
	case errors.Is(err, transfer.ErrNotDeclinable):
		RespondConflict(c, "Only held transfers can be declined")
	case errors.Is(err, transfer.ErrNotReversible):
		RespondConflict(c, "Transfer is in a terminal state and cannot be reversed")
	case errors.Is(err, transfer.ErrNotEditable):
		RespondConflict(c, "Only completed transfers can be edited")
	case errors.Is(err, transfer.ErrEmptyEdit):
		RespondBadRequest(c, "Edit must change amount or destination")
	case errors.Is(err, transfer.ErrSameAccount):
		RespondUnprocessable(c, "SAME_ACCOUNT", "Cannot redirect a transfer to its originating account")
	case errors.Is(err, transfer.ErrRecipientNotFound):
		RespondUnprocessable(c, "RECIPIENT_NOT_FOUND", "New recipient account not found")
	case errors.Is(err, account.ErrCurrencyMismatch):
		RespondUnprocessable(c, "CURRENCY_MISMATCH", "New recipient account uses a different currency")
	case errors.Is(err, account.ErrInvalidAmount):
		RespondBadRequest(c, "Amount must be positive")
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Affected account has insufficient available funds")
	case errors.Is(err, account.ErrAccountInactive):
		RespondUnprocessable(c, "ACCOUNT_INACTIVE", "Affected account is not active")
	default:
		h.logger.Error("Administrative operation failed", "action", action, "error", err)
		RespondInternalError(c)
	}
}
