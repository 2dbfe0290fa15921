package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/repository"
)

// ProfileService manages candidate profiles and their role selections.
type ProfileService struct {
	students *repository.StudentRepository
	roles    *repository.RoleRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(students *repository.StudentRepository, roles *repository.RoleRepository) *ProfileService {
	return &ProfileService{students: students, roles: roles}
}

// Save records a new profile version for the candidate. Profiles are
// append-only; the latest version is what exams read.
func (s *ProfileService) Save(ctx context.Context, studentID uuid.UUID, req *model.SaveProfileRequest) (*model.StudentProfile, error) {
	roleIDs := dedupeRoles(req.RoleIDs)
	if len(roleIDs) == 0 || len(roleIDs) > 2 {
		return nil, ErrInvalidRoleSelection
	}

	active, err := s.roles.CountActiveByIDs(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("check roles: %w", err)
	}
	if active != len(roleIDs) {
		return nil, ErrInvalidRoleSelection
	}

	profile := &model.StudentProfile{
		StudentID:     studentID,
		Name:          req.Name,
		Gender:        req.Gender,
		College:       req.College,
		Degree:        req.Degree,
		Branch:        req.Branch,
		CGPA:          req.CGPA,
		ContactNumber: req.ContactNumber,
		Age:           req.Age,
		Location:      req.Location,
		RoleIDs:       roleIDs,
	}
	if err := s.students.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// Latest returns the candidate's most recent profile version.
func (s *ProfileService) Latest(ctx context.Context, studentID uuid.UUID) (*model.StudentProfile, error) {
	profile, err := s.students.GetLatestProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func dedupeRoles(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
