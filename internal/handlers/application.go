// internal/handlers/application.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
	propertyService    *services.PropertyService
}

func NewApplicationHandler(applicationService *services.ApplicationService, propertyService *services.PropertyService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		propertyService:    propertyService,
	}
}

// GET /applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := services.ApplicationFilter{
		Status:           c.Query("status"),
		PaginationParams: utils.GetPaginationParams(c),
	}
	if property := c.Query("property"); property != "" {
		id, err := strconv.ParseInt(property, 10, 64)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid property", nil)
			return
		}
		filter.PropertyID = id
	}

	apps, total, err := h.applicationService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	result := utils.CreatePaginationResult(apps, total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	app, err := h.applicationService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, app)
}

// PATCH /applications/:id
func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := workflow.ApplicationPatch{DecisionNotes: req.DecisionNotes}
	if req.Status != nil {
		status, err := workflow.ParseAnyStatus(*req.Status)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), err.Error())
			return
		}
		patch.Status = &status
	}

	app, err := h.applicationService.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationUpdated),
		"application": app,
	})
}

// POST /applications/:id/decide
func (h *ApplicationHandler) DecideApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.DecideApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.applicationService.Decide(c.Request.Context(), actor, id, workflow.Decision{
		Decision:      workflow.DecisionKind(req.Decision),
		DecisionNotes: req.DecisionNotes,
	})
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationUpdated),
		"application": app,
	})
}

// DELETE /applications/:id
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.applicationService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyApplicationDeleted),
	})
}

// GET /properties
func (h *ApplicationHandler) ListProperties(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	properties, total, err := h.propertyService.List(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, err, "property")
		return
	}

	result := utils.CreatePaginationResult(properties, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /properties/:id
func (h *ApplicationHandler) GetProperty(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	property, err := h.propertyService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "property")
		return
	}

	utils.SuccessResponse(c, property)
}

// GET /properties/:id/tenant-conflicts?start_date=&end_date=
func (h *ApplicationHandler) TenantConflicts(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start_date"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "start_date"), nil)
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end_date"))
	if err != nil || end.Before(start) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "end_date"), nil)
		return
	}

	report, err := h.applicationService.TenantConflicts(c.Request.Context(), actor, id, start, end)
	if err != nil {
		respondError(c, err, "property")
		return
	}

	utils.SuccessResponse(c, report)
}

// POST /applications/:id/room
func (h *ApplicationHandler) AssignRoom(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AssignRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.propertyService.AssignRoom(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, app)
}
