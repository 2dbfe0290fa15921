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

// ProfileHandler handles the candidate profile endpoints.
type ProfileHandler struct {
	profileService *service.ProfileService
	roleService    *service.RoleService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, roleService *service.RoleService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, roleService: roleService}
}

// SaveProfile godoc
// POST /api/v1/profile
// Records a new profile version with the candidate's role selection.
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	profile, err := h.profileService.Save(c.Request.Context(), claims.StudentID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"profile": profile})
}

// GetProfile godoc
// GET /api/v1/profile
// Returns the candidate's latest profile version.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	profile, err := h.profileService.Latest(c.Request.Context(), claims.StudentID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// ListOpenRoles godoc
// GET /api/v1/roles
// Lists active roles candidates can apply to.
func (h *ProfileHandler) ListOpenRoles(c *gin.Context) {
	roles, err := h.roleService.List(c.Request.Context(), true)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if roles == nil {
		roles = []model.Role{}
	}

	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}
