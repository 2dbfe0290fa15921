package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// AwayMetrics is the authoritative derivation of tab-switch and time-away
// totals from the append-only log.
type AwayMetrics struct {
	TabSwitches int   `json:"tab_switches"`
	TimeAwaySec int64 `json:"time_away_seconds"`
}

// SessionEventCount pairs a session with its recorded event count, for the
// live monitor snapshot.
type SessionEventCount struct {
	SessionID uuid.UUID `json:"session_id"`
	Count     int64     `json:"count"`
}

// ActivityLogRepository handles the append-only proctoring log.
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository creates a new ActivityLogRepository.
func NewActivityLogRepository(pool *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{pool: pool}
}

// BulkInsert writes a batch of log entries via COPY. Used by the
// persistence worker's fast path.
func (r *ActivityLogRepository) BulkInsert(ctx context.Context, entries []*model.ActivityLogEntry) error {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.SessionID, e.EventType, e.OccurredAt, e.DurationAwayMs, e.ExamQuestionID,
		})
	}
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"activity_logs"},
		[]string{"session_id", "event_type", "occurred_at", "duration_away_ms", "exam_question_id"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single log entry. Used as the worker's row-by-row
// fallback when a batch fails.
func (r *ActivityLogRepository) Insert(ctx context.Context, e *model.ActivityLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_logs (session_id, event_type, occurred_at, duration_away_ms, exam_question_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.SessionID, e.EventType, e.OccurredAt, e.DurationAwayMs, e.ExamQuestionID)
	return err
}

// ListBySession retrieves log entries for a session in timestamp order,
// paginated.
func (r *ActivityLogRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.ActivityLogEntry, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, event_type, occurred_at, duration_away_ms, exam_question_id, created_at
		 FROM activity_logs
		 WHERE session_id = $1
		 ORDER BY occurred_at ASC, id ASC
		 LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.ActivityLogEntry
	for rows.Next() {
		var e model.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.OccurredAt,
			&e.DurationAwayMs, &e.ExamQuestionID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// RecomputeAwayMetrics derives the integrity counters from the log. Only
// focus-like events with a duration count — one per completed away
// episode, its away time floored to seconds.
func (r *ActivityLogRepository) RecomputeAwayMetrics(ctx context.Context, sessionID uuid.UUID) (*AwayMetrics, error) {
	m := &AwayMetrics{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(FLOOR(duration_away_ms / 1000.0)), 0)
		 FROM activity_logs
		 WHERE session_id = $1
		   AND event_type IN ($2, $3, $4)
		   AND duration_away_ms IS NOT NULL`,
		sessionID,
		model.EventWindowFocus, model.EventVisibilityVisible, model.EventInactiveEnd,
	).Scan(&m.TabSwitches, &m.TimeAwaySec)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CountActiveSessionEvents returns event counts grouped by session for all
// currently active sessions. Feeds the live monitor snapshot.
func (r *ActivityLogRepository) CountActiveSessionEvents(ctx context.Context) ([]SessionEventCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT al.session_id, COUNT(*)
		 FROM activity_logs al
		 JOIN exam_sessions es ON al.session_id = es.id
		 WHERE es.submitted_at IS NULL
		 GROUP BY al.session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []SessionEventCount
	for rows.Next() {
		var c SessionEventCount
		if err := rows.Scan(&c.SessionID, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
