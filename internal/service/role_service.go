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

// RoleService manages the open role catalog.
type RoleService struct {
	repo *repository.RoleRepository
}

// NewRoleService creates a new RoleService.
func NewRoleService(repo *repository.RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

// List returns roles, optionally only active ones. Candidates see active
// roles; the admin catalog shows everything.
func (s *RoleService) List(ctx context.Context, activeOnly bool) ([]model.Role, error) {
	return s.repo.List(ctx, activeOnly)
}

// Get returns one role.
func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

// Create adds a role to the catalog.
func (s *RoleService) Create(ctx context.Context, req *model.CreateRoleRequest) (*model.Role, error) {
	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// Update edits a role. Deactivating a role hides it from new profiles but
// leaves existing profiles and sessions untouched.
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateRoleRequest) (*model.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Name = req.Name
	role.Description = req.Description
	role.IsActive = *req.IsActive

	if err := s.repo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

// Delete removes a role, or archives it when profiles or questions still
// reference it. Returns the archived role in the latter case.
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check references: %w", err)
	}
	if referenced {
		if err := s.repo.Archive(ctx, id); err != nil {
			return nil, fmt.Errorf("archive role: %w", err)
		}
		role.IsActive = false
		return role, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete role: %w", err)
	}
	return nil, nil
}
