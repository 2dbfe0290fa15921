package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/talentsift/recruitex-backend/internal/middleware"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/response"
	"github.com/talentsift/recruitex-backend/internal/service"
	"github.com/talentsift/recruitex-backend/internal/validator"
)

// ActivityHandler handles proctoring event ingestion for active sessions.
type ActivityHandler struct {
	activityService *service.ActivityService
	signalService   *service.SignalService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activityService *service.ActivityService, signalService *service.SignalService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, signalService: signalService}
}

// LogEvent godoc
// POST /api/v1/exam/events
// Records one classified activity event against the candidate's active
// session. Duplicates within the dedup window are acknowledged but dropped.
func (h *ActivityHandler) LogEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.LogEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.activityService.RecordEvent(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Signal godoc
// POST /api/v1/exam/signals
// Feeds one raw browser signal into the server-side tracker for clients
// that do not classify events locally.
func (h *ActivityHandler) Signal(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req service.SignalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.signalService.ProcessSignal(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
