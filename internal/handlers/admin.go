// internal/handlers/admin.go
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

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	if c.Query("sort") == "" {
		params.Sort = "created_at"
	}

	filter := services.AdminUserFilter{
		Role:             c.Query("role"),
		Status:           c.Query("status"),
		PaginationParams: params,
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/users
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	var req services.CreateStaffRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.CreatedResponse(c, user)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.UpdateUserStatus(c.Request.Context(), actor.UserID, userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			utils.ErrorResponse(c, http.StatusConflict, "SELF_UPDATE", i18n.T(lang, i18n.KeyUserSelfUpdate), nil)
			return
		}
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	params := utils.GetPaginationParams(c)
	if c.Query("sort") == "" {
		params.Sort = "created_at"
	}

	filter := services.AuditLogFilter{
		ResourceType:     c.Query("resource_type"),
		PaginationParams: params,
	}
	for name, target := range map[string]*int64{"user_id": &filter.UserID, "resource_id": &filter.ResourceID} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
			return
		}
		*target = id
	}

	logs, total, err := h.adminService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
