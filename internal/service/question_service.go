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

// QuestionService manages the question bank. Bank edits never touch frozen
// exam snapshots; sessions keep the text they started with.
type QuestionService struct {
	repo  *repository.QuestionRepository
	roles *repository.RoleRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(repo *repository.QuestionRepository, roles *repository.RoleRepository) *QuestionService {
	return &QuestionService{repo: repo, roles: roles}
}

// List returns bank questions matching the filter, with pagination.
func (s *QuestionService) List(ctx context.Context, f repository.QuestionFilter, limit, offset int) ([]model.BankQuestion, int64, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Get returns one bank question.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.BankQuestion, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

// Create adds a question to the bank under an existing role.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.BankQuestion, error) {
	if _, err := s.roles.GetByID(ctx, req.RoleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("check role: %w", err)
	}

	q := &model.BankQuestion{
		RoleID:       req.RoleID,
		Section:      req.Section,
		QuestionText: req.QuestionText,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update edits a question's text or active flag.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.BankQuestion, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q.QuestionText = req.QuestionText
	q.IsActive = *req.IsActive

	if err := s.repo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete removes a question, or archives it when an exam snapshot references
// it. Returns the archived question in the latter case so the caller can
// tell the difference.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) (*model.BankQuestion, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	used, err := s.repo.IsUsed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check usage: %w", err)
	}
	if used {
		if err := s.repo.Archive(ctx, id); err != nil {
			return nil, fmt.Errorf("archive question: %w", err)
		}
		q.IsActive = false
		return q, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete question: %w", err)
	}
	return nil, nil
}
