package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/interfaces/http/response"
)

// InvoiceService is the invoice lifecycle surface the handler needs.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, amountUSD float64) (*entities.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*entities.Invoice, error)
	AttachSender(ctx context.Context, id uuid.UUID, fromAddress string) (*entities.Invoice, error)
}

// Scheduler starts the polling loop for a watched invoice.
type Scheduler interface {
	Schedule(ctx context.Context, invoice *entities.Invoice, checkStart time.Time) error
}

// InvoiceHandler handles invoice HTTP requests
type InvoiceHandler struct {
	invoices  InvoiceService
	scheduler Scheduler
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices InvoiceService, scheduler Scheduler) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, scheduler: scheduler}
}

type createInvoiceRequest struct {
	UserID    string  `json:"user_id" binding:"required"`
	AmountUSD float64 `json:"amount_usd" binding:"required,gt=0"`
}

type watchInvoiceRequest struct {
	FromAddress string `json:"from_address" binding:"required"`
}

type invoiceResponse struct {
	*entities.Invoice
	Status entities.InvoiceStatus `json:"status"`
}

func toResponse(inv *entities.Invoice) invoiceResponse {
	return invoiceResponse{Invoice: inv, Status: inv.Status()}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	invoice, err := h.invoices.CreateInvoice(c.Request.Context(), req.UserID, req.AmountUSD)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponse(invoice))
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid invoice id"))
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("invoice not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(invoice))
}

// Watch handles POST /invoices/:id/watch. It records the payer's sending
// address and starts the background check loop; the check window opens now.
func (h *InvoiceHandler) Watch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid invoice id"))
		return
	}
	var req watchInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	invoice, err := h.invoices.AttachSender(c.Request.Context(), id, req.FromAddress)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("invoice not found"))
			return
		}
		response.Error(c, err)
		return
	}

	if err := h.scheduler.Schedule(c.Request.Context(), invoice, time.Now()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, toResponse(invoice))
}
