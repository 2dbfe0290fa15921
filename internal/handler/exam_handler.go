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

// ExamHandler handles the candidate-facing exam session endpoints.
type ExamHandler struct {
	examService   *service.ExamSessionService
	signalService *service.SignalService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamSessionService, signalService *service.SignalService) *ExamHandler {
	return &ExamHandler{examService: examService, signalService: signalService}
}

// StartExam godoc
// POST /api/v1/exam/start
// Starts the candidate's exam, or returns the current state when one is
// already in progress.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.examService.Start(c.Request.Context(), claims.StudentID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetSession godoc
// GET /api/v1/exam/session
// Returns the active session with questions and saved answers. Used on
// reconnect.
func (h *ExamHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.examService.State(c.Request.Context(), claims.StudentID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// NextSection godoc
// POST /api/v1/exam/next-section
// Moves the session from theory to practical. One-way.
func (h *ExamHandler) NextSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	session, err := h.examService.Advance(c.Request.Context(), claims.StudentID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SubmitExam godoc
// POST /api/v1/exam/submit
// Submits the exam. An optional violation payload flags the termination.
// A malformed body is treated as a normal submission, not an error.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitExamRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.examService.Submit(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	h.signalService.Teardown(session.ID)

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SaveAnswer godoc
// PUT /api/v1/exam/answers
// Upserts the answer text and edit timestamps for one question.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.examService.SaveAnswer(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// QuestionActivity godoc
// POST /api/v1/exam/question-activity
// Records an open or close episode on a question for active-time accounting.
func (h *ExamHandler) QuestionActivity(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.QuestionActivityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.examService.QuestionActivity(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}
