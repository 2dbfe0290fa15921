package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// AnswerRepository handles answer data access. One row per
// (session, exam question) pair, upserted by the composite unique key.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

const answerColumns = `id, session_id, exam_question_id, answer_text,
	first_opened, first_typed, last_modified, last_opened_at, closed_at,
	active_time_ms, total_time_spent_seconds, score, evaluated_at`

// GetBySessionAndQuestion retrieves the answer row for a composite key.
func (r *AnswerRepository) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uuid.UUID) (*model.Answer, error) {
	a := &model.Answer{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+answerColumns+`
		 FROM answers
		 WHERE session_id = $1 AND exam_question_id = $2`,
		sessionID, questionID,
	).Scan(&a.ID, &a.SessionID, &a.ExamQuestionID, &a.AnswerText,
		&a.FirstOpened, &a.FirstTyped, &a.LastModified, &a.LastOpenedAt,
		&a.ClosedAt, &a.ActiveTimeMs, &a.TotalTimeSpentSec, &a.Score, &a.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Upsert writes the answer row, inserting or overwriting by composite key.
// Time accumulators must already hold the merged (monotonic) totals.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.Answer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO answers
		   (session_id, exam_question_id, answer_text, first_opened, first_typed,
		    last_modified, last_opened_at, closed_at, active_time_ms,
		    total_time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id, exam_question_id) DO UPDATE SET
		   answer_text = EXCLUDED.answer_text,
		   first_opened = COALESCE(answers.first_opened, EXCLUDED.first_opened),
		   first_typed = COALESCE(answers.first_typed, EXCLUDED.first_typed),
		   last_modified = EXCLUDED.last_modified,
		   last_opened_at = EXCLUDED.last_opened_at,
		   closed_at = EXCLUDED.closed_at,
		   active_time_ms = GREATEST(answers.active_time_ms, EXCLUDED.active_time_ms),
		   total_time_spent_seconds = GREATEST(answers.total_time_spent_seconds, EXCLUDED.total_time_spent_seconds)
		 RETURNING id`,
		a.SessionID, a.ExamQuestionID, a.AnswerText, a.FirstOpened, a.FirstTyped,
		a.LastModified, a.LastOpenedAt, a.ClosedAt, a.ActiveTimeMs,
		a.TotalTimeSpentSec,
	).Scan(&a.ID)
}

// ListBySession retrieves all answers for a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+answerColumns+`
		 FROM answers WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ExamQuestionID, &a.AnswerText,
			&a.FirstOpened, &a.FirstTyped, &a.LastModified, &a.LastOpenedAt,
			&a.ClosedAt, &a.ActiveTimeMs, &a.TotalTimeSpentSec, &a.Score, &a.EvaluatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveScore records an evaluator score against one answer, creating an
// empty row if the candidate never opened the question.
func (r *AnswerRepository) SaveScore(ctx context.Context, sessionID, questionID uuid.UUID, score float64, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (session_id, exam_question_id, score, evaluated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, exam_question_id) DO UPDATE SET
		   score = EXCLUDED.score,
		   evaluated_at = EXCLUDED.evaluated_at`,
		sessionID, questionID, score, now)
	return err
}
