package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/talentsift/recruitex-backend/internal/response"
	"github.com/talentsift/recruitex-backend/internal/service"
)

// failFromService maps service-level errors onto the API error taxonomy.
// Anything unmapped is an internal error.
func failFromService(c *gin.Context, err error) {
	var insufficient *service.InsufficientQuestionsError
	if errors.As(err, &insufficient) {
		response.FailWithMessage(c, http.StatusConflict, response.ErrInsufficientQuestions, insufficient.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.FailWithMessage(c, http.StatusConflict, response.ErrConflict, err.Error())
	case errors.Is(err, service.ErrProfileRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrProfileRequired)
	case errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrRoleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNoActiveSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrAlreadyAdvanced):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAdvanced)
	case errors.Is(err, service.ErrDeadlinePassed):
		response.Fail(c, http.StatusForbidden, response.ErrDeadlinePassed)
	case errors.Is(err, service.ErrNotSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrInvalidRoleSelection),
		errors.Is(err, service.ErrInvalidEventType),
		errors.Is(err, service.ErrInvalidSignal),
		errors.Is(err, service.ErrInvalidTimestamp):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
