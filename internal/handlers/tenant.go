// internal/handlers/tenant.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
)

type TenantHandler struct {
	tenantAuthService *services.TenantAuthService
	leaseService      *services.LeaseService
}

func NewTenantHandler(tenantAuthService *services.TenantAuthService, leaseService *services.LeaseService) *TenantHandler {
	return &TenantHandler{
		tenantAuthService: tenantAuthService,
		leaseService:      leaseService,
	}
}

// respondOTPError maps the login flow errors to their wire codes.
func respondOTPError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var tooSoon *services.ResendTooSoonError
	var wrong *services.WrongCodeError
	switch {
	case errors.Is(err, services.ErrPhoneNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "phone_not_found", i18n.T(lang, i18n.KeyOTPPhoneNotFound), nil)
	case errors.As(err, &tooSoon):
		c.Header("Retry-After", strconv.Itoa(tooSoon.RetryAfterSeconds()))
		utils.ErrorResponse(c, http.StatusTooManyRequests, "resend_too_soon", i18n.T(lang, i18n.KeyOTPResendTooSoon),
			gin.H{"retry_after": tooSoon.RetryAfterSeconds()})
	case errors.As(err, &wrong):
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid_code", i18n.T(lang, i18n.KeyOTPInvalid),
			gin.H{"remaining_attempts": wrong.RemainingAttempts})
	case errors.Is(err, services.ErrOTPExpired), errors.Is(err, services.ErrSelectionExpired):
		utils.ErrorResponse(c, http.StatusGone, "expired", i18n.T(lang, i18n.KeyOTPExpired), nil)
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "too_many_attempts", i18n.T(lang, i18n.KeyOTPTooManyAttempts), nil)
	case errors.Is(err, services.ErrOTPInvalid):
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid_code", i18n.T(lang, i18n.KeyOTPInvalid), nil)
	case errors.Is(err, services.ErrProfileNotOnPhone):
		utils.ForbiddenResponse(c, "")
	default:
		respondError(c, err, "tenant")
	}
}

func currentTenant(c *gin.Context) (int64, bool) {
	tenantID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return 0, false
	}
	return tenantID, true
}

// POST /tenant/auth/request-code
func (h *TenantHandler) RequestCode(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RequestCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := h.tenantAuthService.RequestCode(c.Request.Context(), &req)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyOTPSent, req.Phone),
		"challenge_id": challenge.ChallengeID,
		"expires_in":   challenge.ExpiresIn,
		"resend_after": challenge.ResendAfter,
	})
}

// POST /tenant/auth/verify
func (h *TenantHandler) VerifyCode(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.tenantAuthService.VerifyCode(c.Request.Context(), &req)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	if resp.RequiresSelection {
		utils.SuccessResponse(c, gin.H{
			"code":               "requires_selection",
			"message":            i18n.T(lang, i18n.KeyOTPRequiresSelection),
			"requires_selection": true,
			"challenge_id":       resp.ChallengeID,
			"profiles":           resp.Profiles,
		})
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /tenant/auth/select-profile
func (h *TenantHandler) SelectProfile(c *gin.Context) {
	var req services.SelectProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.tenantAuthService.SelectProfile(c.Request.Context(), &req)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /tenant/auth/refresh
func (h *TenantHandler) RefreshToken(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.tenantAuthService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthTokenExpired))
		return
	}

	utils.SuccessResponse(c, resp)
}

// GET /tenant/me
func (h *TenantHandler) GetProfile(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	tenant, err := h.tenantAuthService.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err, "tenant")
		return
	}

	utils.SuccessResponse(c, tenant)
}

// GET /tenant/leases
func (h *TenantHandler) GetLeases(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	leases, err := h.leaseService.TenantLeases(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err, "lease")
		return
	}

	utils.SuccessResponse(c, gin.H{"leases": leases})
}

// POST /tenant/leases/:id/sign
func (h *TenantHandler) SignLease(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	leaseID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	lease, err := h.leaseService.Sign(c.Request.Context(), tenantID, leaseID)
	if err != nil {
		respondError(c, err, "lease")
		return
	}

	utils.SuccessResponse(c, lease)
}

// GET /tenant/leases/:id/document
func (h *TenantHandler) GetLeaseDocument(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	leaseID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.leaseService.TenantDocumentURL(c.Request.Context(), tenantID, leaseID)
	if err != nil {
		respondError(c, err, "lease")
		return
	}

	utils.SuccessResponse(c, doc)
}
