package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/interfaces/http/response"
	"pay-watch.backend/pkg/logger"
)

// Verifier settles invoices from a single transaction id.
type Verifier interface {
	VerifyPaymentByTxid(ctx context.Context, txid string) (*entities.Invoice, error)
}

// RewardGranter applies paid-invoice side effects.
type RewardGranter interface {
	GrantPaymentRewards(ctx context.Context, invoice *entities.Invoice) (int, error)
}

// WebhookHandler handles out-of-band transaction notifications
type WebhookHandler struct {
	verifier Verifier
	rewards  RewardGranter
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(verifier Verifier, rewards RewardGranter) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, rewards: rewards}
}

type txNotificationRequest struct {
	Txid string `json:"txid" binding:"required"`
}

// HandleTxNotification handles POST /webhooks/tx. A valid transaction that
// settles a pending invoice also triggers the reward side effects.
func (h *WebhookHandler) HandleTxNotification(c *gin.Context) {
	var req txNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	invoice, err := h.verifier.VerifyPaymentByTxid(c.Request.Context(), req.Txid)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrTxAlreadyUsed):
			response.Error(c, domainerrors.NewAppError(http.StatusConflict, "transaction already consumed", err))
		case errors.Is(err, domainerrors.ErrNotFound):
			response.Error(c, domainerrors.NotFound("transaction not found"))
		case errors.Is(err, domainerrors.ErrNoMatchingInvoice):
			response.Error(c, domainerrors.NotFound("no pending invoice matches this transaction"))
		case errors.Is(err, domainerrors.ErrSenderMismatch):
			response.Error(c, domainerrors.BadRequest("transaction sender does not match invoice"))
		case errors.Is(err, domainerrors.ErrInsufficientFunds):
			response.Error(c, domainerrors.BadRequest("transaction amount below accepted threshold"))
		default:
			response.Error(c, err)
		}
		return
	}

	days, err := h.rewards.GrantPaymentRewards(c.Request.Context(), invoice)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to grant payment rewards", zap.Error(err),
			zap.String("invoice_id", invoice.ID.String()))
	}

	response.Success(c, http.StatusOK, gin.H{
		"invoice":      toResponse(invoice),
		"premium_days": days,
	})
}
