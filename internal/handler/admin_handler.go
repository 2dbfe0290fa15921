package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/repository"
	"github.com/talentsift/recruitex-backend/internal/response"
	"github.com/talentsift/recruitex-backend/internal/service"
	"github.com/talentsift/recruitex-backend/internal/validator"
)

// AdminHandler handles the evaluator's submission review endpoints.
type AdminHandler struct {
	evaluationService *service.EvaluationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(evaluationService *service.EvaluationService) *AdminHandler {
	return &AdminHandler{evaluationService: evaluationService}
}

// ListSubmissions godoc
// GET /api/v1/admin/submissions
// Lists exam sessions with integrity counters. Supports ?status=submitted|active
// and ?violations=true filters.
func (h *AdminHandler) ListSubmissions(c *gin.Context) {
	page, perPage, offset := parsePagination(c)

	filter := repository.SubmissionFilter{
		SubmittedOnly:  c.Query("status") == "submitted",
		ActiveOnly:     c.Query("status") == "active",
		ViolationsOnly: c.Query("violations") == "true",
	}

	rows, total, err := h.evaluationService.ListSubmissions(c.Request.Context(), filter, perPage, offset)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if rows == nil {
		rows = []repository.SubmissionRow{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": rows},
		newPagination(page, perPage, total))
}

// GetEvaluation godoc
// GET /api/v1/admin/submissions/:id
// Returns the full evaluation view of one session, with metrics derived
// from the activity log.
func (h *AdminHandler) GetEvaluation(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.evaluationService.GetDetail(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// ListActivityLogs godoc
// GET /api/v1/admin/submissions/:id/logs
// Returns a session's proctoring log in chronological order.
func (h *AdminHandler) ListActivityLogs(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage, offset := parsePagination(c)

	entries, total, err := h.evaluationService.ListLogs(c.Request.Context(), sessionID, perPage, offset)
	if err != nil {
		failFromService(c, err)
		return
	}

	if entries == nil {
		entries = []model.ActivityLogEntry{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"logs": entries},
		newPagination(page, perPage, total))
}

// SaveScores godoc
// POST /api/v1/admin/submissions/:id/scores
// Records evaluator scores on a submitted session's answers.
func (h *AdminHandler) SaveScores(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveScoresRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.evaluationService.SaveScores(c.Request.Context(), sessionID, &req); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
