// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/tink-backend/internal/i18n"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/services"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

// payloadError carries validation failures of an action payload out of a
// workflow handler.
type payloadError struct {
	errs []utils.ValidationError
}

func (e *payloadError) Error() string { return "invalid action payload" }

// validate runs the struct validator and wraps failures in a payloadError.
func validate(req interface{}) error {
	if errs := utils.GetValidationErrors(utils.ValidateStruct(req)); len(errs) > 0 {
		return &payloadError{errs: errs}
	}
	return nil
}

// bindJSON decodes and validates the request body, writing the error
// response itself. It reports whether the handler may continue.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// respondError maps service and workflow errors onto the response envelope.
// resource names the entity for not-found messages.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var invalid *payloadError
	switch {
	case errors.As(err, &invalid):
		utils.ValidationErrorResponse(c, invalid.errs)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrDeleteProtected):
		utils.ErrorResponse(c, http.StatusConflict, "DELETE_PROTECTED", i18n.T(lang, i18n.KeyApplicationProtected), nil)
	case errors.Is(err, services.ErrInvalidState):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_STATE", i18n.T(lang, resource+".invalid_state"), nil)
	case errors.Is(err, workflow.ErrActionUnavailable):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "ACTION_UNAVAILABLE", i18n.T(lang, i18n.KeyApplicationActionInvalid), nil)
	case errors.Is(err, workflow.ErrUnknownStatus), errors.Is(err, workflow.ErrInvalidTerms):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrEmailTaken):
		utils.ErrorResponse(c, http.StatusConflict, "EMAIL_TAKEN", i18n.T(lang, i18n.KeyUserEmailTaken), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrAccountSuspended):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthAccountSuspended))
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// currentActor reads the authenticated staff member set by AuthRequired.
func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(c)
	return services.Actor{UserID: userID, Role: models.UserRole(role)}, true
}
