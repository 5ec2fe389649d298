package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/transfer"
	"github.com/novabank/core-banking/internal/pinguard"
	"github.com/novabank/core-banking/internal/service"
)

// TransferHandler handles HTTP requests for transfer operations
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Initiate starts a transfer. The response is returned once the debit is
// committed; crediting happens asynchronously, so the transfer is Accepted
// rather than Created.
func (h *TransferHandler) Initiate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req InitiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cmd := service.InitiateCommand{
		UserID:          userID,
		Type:            transfer.Type(req.Type),
		Amount:          req.Amount,
		Pin:             req.Pin,
		ToAccountNumber: req.ToAccountNumber,
		Description:     req.Description,
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid from_account_id")
		return
	}
	cmd.FromAccountID = fromID

	if req.ToAccountID != "" {
		toID, err := uuid.Parse(req.ToAccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid to_account_id")
			return
		}
		cmd.ToAccountID = &toID
	}
	if req.Recipient != nil {
		cmd.Recipient = transfer.RecipientSnapshot{
			Name:         req.Recipient.Name,
			BankName:     req.Recipient.BankName,
			AccountLast4: req.Recipient.AccountLast4,
		}
	}

	t, err := h.transferService.Initiate(c.Request.Context(), cmd)
	if err != nil {
		h.respondInitiateError(c, err)
		return
	}

	RespondAccepted(c, mapTransferToResponse(t))
}

// respondInitiateError maps initiation failures to HTTP status codes
func (h *TransferHandler) respondInitiateError(c *gin.Context, err error) {
	var pinLocked pinguard.ErrPinLocked
	var notOwner account.ErrNotAccountOwner

	switch {
	case errors.Is(err, transfer.ErrInvalidType):
		RespondBadRequest(c, "Unknown transfer type")
	case errors.Is(err, account.ErrInvalidAmount):
		RespondBadRequest(c, "Amount must be positive")
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.As(err, &notOwner):
		RespondForbidden(c, "Account is not owned by the requester")
	case errors.Is(err, account.ErrAccountInactive):
		RespondUnprocessable(c, "ACCOUNT_INACTIVE", "Account is not active")
	case errors.Is(err, transfer.ErrSameAccount):
		RespondUnprocessable(c, "SAME_ACCOUNT", "Cannot transfer to the originating account")
	case errors.Is(err, transfer.ErrRecipientNotFound):
		RespondUnprocessable(c, "RECIPIENT_NOT_FOUND", "Transfer recipient could not be resolved")
	case errors.Is(err, transfer.ErrRecipientInactive):
		RespondUnprocessable(c, "RECIPIENT_INACTIVE", "Recipient account is not active")
	case errors.Is(err, account.ErrCurrencyMismatch):
		RespondUnprocessable(c, "CURRENCY_MISMATCH", "Account currencies do not match")
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Insufficient available funds")
	case errors.Is(err, pinguard.ErrPinNotSet):
		RespondUnprocessable(c, "PIN_NOT_SET", "Transfer PIN has not been set")
	case errors.Is(err, pinguard.ErrInvalidPin):
		RespondForbidden(c, "Transfer PIN is incorrect")
	case errors.As(err, &pinLocked):
		RespondTooManyRequests(c, "PIN_LOCKED", "Transfer PIN is locked", int(pinLocked.RetryAfter.Seconds()))
	default:
		h.logger.Error("Failed to initiate transfer", "error", err)
		RespondInternalError(c)
	}
}

// GetByID retrieves one of the authenticated user's transfers
func (h *TransferHandler) GetByID(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transfer ID")
		return
	}

	t, err := h.transferService.GetTransferByID(c.Request.Context(), userID, id)
	if err != nil {
		h.respondLookupError(c, idParam, err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// GetByReference retrieves a transfer by its public reference
func (h *TransferHandler) GetByReference(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	reference := c.Param("reference")
	t, err := h.transferService.GetTransferByReference(c.Request.Context(), userID, reference)
	if err != nil {
		h.respondLookupError(c, reference, err)
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

func (h *TransferHandler) respondLookupError(c *gin.Context, key string, err error) {
	var notOwner account.ErrNotAccountOwner
	switch {
	case errors.Is(err, transfer.ErrTransferNotFound{}):
		RespondNotFound(c, "Transfer not found")
	case errors.As(err, &notOwner):
		RespondForbidden(c, "")
	default:
		h.logger.Error("Failed to get transfer", "key", key, "error", err)
		RespondInternalError(c)
	}
}

// mapTransferToResponse maps a transfer entity to a response DTO
func mapTransferToResponse(t *transfer.Transfer) TransferResponse {
	resp := TransferResponse{
		ID:              t.ID.String(),
		Reference:       t.Reference,
		Type:            string(t.Type),
		Status:          string(t.Status),
		FromAccountID:   t.FromAccountID.String(),
		ToAccountNumber: t.ToAccountNumber,
		Currency:        t.Currency,
		Amount:          t.Amount,
		FeeAmount:       t.FeeAmount,
		TotalAmount:     t.TotalAmount,
		FailureReason:   t.FailureReason,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
	if t.ToAccountID != nil {
		resp.ToAccountID = t.ToAccountID.String()
	}
	if !t.Recipient.IsZero() {
		resp.Recipient = &RecipientPayload{
			Name:         t.Recipient.Name,
			BankName:     t.Recipient.BankName,
			AccountLast4: t.Recipient.AccountLast4,
		}
	}
	if t.ProcessedAt != nil {
		resp.ProcessedAt = t.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}
