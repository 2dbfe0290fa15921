package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// QuestionFilter narrows bank listings.
type QuestionFilter struct {
	RoleID     *uuid.UUID
	Section    *model.Section
	ActiveOnly bool
}

// List retrieves bank questions with optional filters and pagination.
func (r *QuestionRepository) List(ctx context.Context, f QuestionFilter, limit, offset int) ([]model.BankQuestion, int64, error) {
	baseQuery := ` FROM bank_questions WHERE 1=1`
	args := []any{}

	if f.RoleID != nil {
		args = append(args, *f.RoleID)
		baseQuery += fmt.Sprintf(" AND role_id = $%d", len(args))
	}
	if f.Section != nil {
		args = append(args, *f.Section)
		baseQuery += fmt.Sprintf(" AND section = $%d", len(args))
	}
	if f.ActiveOnly {
		baseQuery += " AND is_active = TRUE"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, role_id, section, question_text, is_active, created_at, updated_at` +
		baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.BankQuestion
	for rows.Next() {
		var q model.BankQuestion
		if err := rows.Scan(&q.ID, &q.RoleID, &q.Section, &q.QuestionText,
			&q.IsActive, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// ListActiveByRoleSection retrieves all active questions for one role and
// section. Feeds the question picker at exam start.
func (r *QuestionRepository) ListActiveByRoleSection(ctx context.Context, roleID uuid.UUID, section model.Section) ([]model.BankQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, role_id, section, question_text, is_active, created_at, updated_at
		 FROM bank_questions
		 WHERE role_id = $1 AND section = $2 AND is_active = TRUE`,
		roleID, section,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.BankQuestion
	for rows.Next() {
		var q model.BankQuestion
		if err := rows.Scan(&q.ID, &q.RoleID, &q.Section, &q.QuestionText,
			&q.IsActive, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a bank question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BankQuestion, error) {
	q := &model.BankQuestion{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, role_id, section, question_text, is_active, created_at, updated_at
		 FROM bank_questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.RoleID, &q.Section, &q.QuestionText, &q.IsActive,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a new bank question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.BankQuestion) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO bank_questions (role_id, section, question_text, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, is_active, created_at, updated_at`,
		q.RoleID, q.Section, q.QuestionText,
	).Scan(&q.ID, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
}

// Update modifies a bank question's text and active flag.
func (r *QuestionRepository) Update(ctx context.Context, q *model.BankQuestion) error {
	return r.pool.QueryRow(ctx,
		`UPDATE bank_questions
		 SET question_text = $2, is_active = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		q.ID, q.QuestionText, q.IsActive,
	).Scan(&q.UpdatedAt)
}

// IsUsed reports whether any exam question snapshot references the bank
// entry. Used entries can only be archived.
func (r *QuestionRepository) IsUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_questions WHERE source_id = $1)`, id,
	).Scan(&used)
	return used, err
}

// Archive deactivates a bank question without removing it.
func (r *QuestionRepository) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE bank_questions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// Delete removes an unused bank question. The exam_questions.source_id
// foreign key (ON DELETE RESTRICT) backstops the IsUsed check.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bank_questions WHERE id = $1`, id)
	return err
}
