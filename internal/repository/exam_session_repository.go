package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// SubmissionRow combines candidate data with session details for the
// evaluator's submission table.
type SubmissionRow struct {
	SessionID         uuid.UUID   `json:"session_id"`
	StudentID         uuid.UUID   `json:"student_id"`
	StudentName       string      `json:"student_name"`
	StudentEmail      string      `json:"student_email"`
	Phase             model.Phase `json:"phase"`
	StartedAt         time.Time   `json:"started_at"`
	SubmittedAt       *time.Time  `json:"submitted_at"`
	TotalTabSwitches  int         `json:"total_tab_switches"`
	TotalTimeAwaySec  int         `json:"total_time_away_seconds"`
	TheoryViolation   bool        `json:"theory_tab_violation"`
	TerminationReason *string     `json:"termination_reason,omitempty"`
}

// SubmissionFilter narrows the evaluator's submission listing.
type SubmissionFilter struct {
	SubmittedOnly  bool
	ActiveOnly     bool
	ViolationsOnly bool
}

// ExamSessionRepository handles exam session and frozen question data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, student_id, role_ids, phase, started_at, deadline_at,
	submitted_at, total_tab_switches, total_time_away_seconds,
	theory_tab_violation, termination_reason, terminated_at, created_at`

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var roleIDs []byte
	err := row.Scan(&s.ID, &s.StudentID, &roleIDs, &s.Phase, &s.StartedAt,
		&s.DeadlineAt, &s.SubmittedAt, &s.TotalTabSwitches, &s.TotalTimeAwaySec,
		&s.TheoryViolation, &s.TerminationReason, &s.TerminatedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roleIDs, &s.RoleIDs); err != nil {
		return nil, fmt.Errorf("unmarshal role ids: %w", err)
	}
	return s, nil
}

// GetActiveByStudent retrieves the student's unsubmitted session, if any.
func (r *ExamSessionRepository) GetActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1 AND submitted_at IS NULL`, studentID))
}

// GetLatestByStudent retrieves the student's most recent session regardless
// of state. Lets the submit path distinguish "already submitted" from
// "never started".
func (r *ExamSessionRepository) GetLatestByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC
		 LIMIT 1`, studentID))
}

// GetByID retrieves a session by ID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions WHERE id = $1`, id))
}

// StartExam atomically inserts the session and its frozen question snapshots.
// Either everything persists or nothing does — a failed insert leaves no
// orphan session. The partial unique index on (student_id) WHERE
// submitted_at IS NULL turns a concurrent start into a unique violation.
func (r *ExamSessionRepository) StartExam(ctx context.Context, s *model.ExamSession, questions []model.ExamQuestion) error {
	roleIDs, err := json.Marshal(s.RoleIDs)
	if err != nil {
		return fmt.Errorf("marshal role ids: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (student_id, role_ids, phase, started_at, deadline_at)
		 VALUES ($1, $2::jsonb, $3, $4, $5)
		 RETURNING id, created_at`,
		s.StudentID, roleIDs, model.PhaseTheory, s.StartedAt, s.DeadlineAt,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	rows := make([][]interface{}, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		q.ID = uuid.New()
		q.SessionID = s.ID
		rows = append(rows, []interface{}{
			q.ID, q.SessionID, q.RoleID, q.Section, q.QuestionText, q.SourceID, q.OrderIndex,
		})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"exam_questions"},
		[]string{"id", "session_id", "role_id", "section", "question_text", "source_id", "order_index"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert exam questions: %w", err)
	}

	return tx.Commit(ctx)
}

// AdvanceToPractical moves a theory session forward. Returns false when the
// guard did not match (already advanced or already submitted) so the caller
// can diagnose the precise failure from current state.
func (r *ExamSessionRepository) AdvanceToPractical(ctx context.Context, sessionID, studentID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET phase = $3
		 WHERE id = $1 AND student_id = $2 AND phase = $4 AND submitted_at IS NULL`,
		sessionID, studentID, model.PhasePractical, model.PhaseTheory)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Submit freezes the session. The submitted_at IS NULL guard makes
// concurrent submits resolve to exactly one winner; the loser observes zero
// rows and reports AlreadySubmitted.
func (r *ExamSessionRepository) Submit(ctx context.Context, sessionID, studentID uuid.UUID, violation bool, reason *string, now time.Time) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if violation {
		tag, err = r.pool.Exec(ctx,
			`UPDATE exam_sessions
			 SET submitted_at = $3, theory_tab_violation = TRUE,
			     termination_reason = $4, terminated_at = $3
			 WHERE id = $1 AND student_id = $2 AND submitted_at IS NULL`,
			sessionID, studentID, now, reason)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE exam_sessions
			 SET submitted_at = $3
			 WHERE id = $1 AND student_id = $2 AND submitted_at IS NULL`,
			sessionID, studentID, now)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementAwayMetrics bumps the cached counters on the return leg of an
// away episode. The activity log remains the authoritative derivation.
func (r *ExamSessionRepository) IncrementAwayMetrics(ctx context.Context, sessionID uuid.UUID, switches, awaySec int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET total_tab_switches = total_tab_switches + $2,
		     total_time_away_seconds = total_time_away_seconds + $3
		 WHERE id = $1`,
		sessionID, switches, awaySec)
	return err
}

// ListQuestions retrieves a session's frozen questions in paper order.
func (r *ExamSessionRepository) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]model.ExamQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, role_id, section, question_text, source_id, order_index, created_at
		 FROM exam_questions
		 WHERE session_id = $1
		 ORDER BY order_index ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.ExamQuestion
	for rows.Next() {
		var q model.ExamQuestion
		if err := rows.Scan(&q.ID, &q.SessionID, &q.RoleID, &q.Section,
			&q.QuestionText, &q.SourceID, &q.OrderIndex, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves one frozen question by ID.
func (r *ExamSessionRepository) GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.ExamQuestion, error) {
	q := &model.ExamQuestion{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, role_id, section, question_text, source_id, order_index, created_at
		 FROM exam_questions WHERE id = $1`, questionID,
	).Scan(&q.ID, &q.SessionID, &q.RoleID, &q.Section, &q.QuestionText,
		&q.SourceID, &q.OrderIndex, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListSubmissions retrieves sessions for the evaluator table with optional
// filters and pagination.
func (r *ExamSessionRepository) ListSubmissions(ctx context.Context, f SubmissionFilter, limit, offset int) ([]SubmissionRow, int64, error) {
	baseQuery := `
		FROM exam_sessions es
		JOIN students s ON es.student_id = s.id
		WHERE 1=1`
	if f.SubmittedOnly {
		baseQuery += ` AND es.submitted_at IS NOT NULL`
	}
	if f.ActiveOnly {
		baseQuery += ` AND es.submitted_at IS NULL`
	}
	if f.ViolationsOnly {
		baseQuery += ` AND es.theory_tab_violation = TRUE`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+baseQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT es.id, es.student_id, s.name, s.email, es.phase, es.started_at,
		       es.submitted_at, es.total_tab_switches, es.total_time_away_seconds,
		       es.theory_tab_violation, es.termination_reason
		`+baseQuery+`
		ORDER BY es.started_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionRow
	for rows.Next() {
		var row SubmissionRow
		if err := rows.Scan(&row.SessionID, &row.StudentID, &row.StudentName,
			&row.StudentEmail, &row.Phase, &row.StartedAt, &row.SubmittedAt,
			&row.TotalTabSwitches, &row.TotalTimeAwaySec,
			&row.TheoryViolation, &row.TerminationReason); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}

// ListOverdue retrieves unsubmitted sessions whose deadline has passed.
// Used by the deadline sweeper.
func (r *ExamSessionRepository) ListOverdue(ctx context.Context, now time.Time) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE submitted_at IS NULL AND deadline_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
