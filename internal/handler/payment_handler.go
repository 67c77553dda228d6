package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nclexkeys/backend/internal/service"
	"nclexkeys/backend/pkg/response"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type InitializePaymentRequest struct {
	Gateway  string          `json:"gateway"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" binding:"required"`
	Email    string          `json:"email" binding:"required"`
	FullName string          `json:"full_name"`
	Phone    string          `json:"phone"`
	Metadata map[string]any  `json:"metadata"`
}

func (h *PaymentHandler) Initialize(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	payment, err := h.paymentService.Initialize(c.Request.Context(), service.InitializePaymentInput{
		Gateway:       req.Gateway,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.Email,
		CustomerName:  req.FullName,
		CustomerPhone: req.Phone,
		UserID:        optionalUserID(c),
		Metadata:      req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput),
			errors.Is(err, service.ErrCurrencyUnsupported):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrGatewayNotFound):
			response.NotFound(c, err.Error())
		default:
			response.InternalError(c, "failed to initialize payment")
		}
		return
	}

	response.Created(c, payment)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.paymentService.Get(c.Request.Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(c, "payment not found")
			return
		}
		response.InternalError(c, "failed to load payment")
		return
	}

	response.Success(c, payment)
}
