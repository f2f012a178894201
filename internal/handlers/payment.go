// internal/handlers/payment.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func respondPaymentError(c *gin.Context, err error, resource string) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		lang := utils.GetLangFromContext(c)
		utils.ErrorResponse(c, http.StatusPaymentRequired, "PAYMENT_FAILED", i18n.T(lang, i18n.KeyPaymentFailed),
			gin.H{"stripe_code": stripeErr.Code, "stripe_message": stripeErr.Msg})
		return
	}
	respondError(c, err, resource)
}

// POST /tenant/payments/intent
func (h *PaymentHandler) CreateRentPayment(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req services.CreateRentPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.paymentService.CreateRentPayment(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondPaymentError(c, err, "lease")
		return
	}

	utils.CreatedResponse(c, intent)
}

// POST /tenant/payments/confirm
func (h *PaymentHandler) ConfirmRentPayment(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req services.ConfirmRentPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.ConfirmRentPayment(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondPaymentError(c, err, "payment")
		return
	}

	utils.SuccessResponse(c, payment)
}

// GET /tenant/payments
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	if c.Query("sort") == "" {
		params.Sort = "created_at"
	}

	payments, total, err := h.paymentService.GetPaymentHistory(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	result := utils.CreatePaginationResult(payments, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/payments/:id/refund
func (h *PaymentHandler) RefundRentPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	paymentID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RefundRentPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.RefundRentPayment(c.Request.Context(), paymentID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyPaymentFailed))
			return
		}
		respondPaymentError(c, err, "payment")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentRefunded),
		"payment": payment,
	})
}
