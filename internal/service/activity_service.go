package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// dedupWindow drops repeats of the same event type arriving within this
// window for a session. Retries and duplicate client tabs produce these.
const dedupWindow = 2 * time.Second

// RecordResult tells the client what happened to its event.
type RecordResult struct {
	Recorded   bool `json:"recorded"`
	Duplicate  bool `json:"duplicate,omitempty"`
	Terminated bool `json:"terminated,omitempty"`
}

// MonitorEvent is the payload published to the admin live monitor channel.
type MonitorEvent struct {
	SessionID      uuid.UUID  `json:"session_id"`
	StudentID      uuid.UUID  `json:"student_id"`
	EventType      string     `json:"event_type"`
	OccurredAt     time.Time  `json:"occurred_at"`
	DurationAwayMs *int64     `json:"duration_away_ms,omitempty"`
	Terminated     bool       `json:"terminated,omitempty"`
	ExamQuestionID *uuid.UUID `json:"exam_question_id,omitempty"`
}

// ActivityService ingests classified proctoring events: it enforces the
// theory violation rule, dedupes retries, updates the cached away counters,
// queues the entry for persistence, and fans out to the live monitor.
type ActivityService struct {
	sessions SessionStore
	exams    *ExamSessionService
	rdb      *redis.Client
	log      zerolog.Logger
	now      func() time.Time
}

// NewActivityService creates a new ActivityService.
func NewActivityService(sessions SessionStore, exams *ExamSessionService, rdb *redis.Client, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		sessions: sessions,
		exams:    exams,
		rdb:      rdb,
		log:      log,
		now:      time.Now,
	}
}

// RecordEvent processes one classified event for the candidate's active
// session. Blur-like events during the theory section terminate the exam
// instead of being logged. Redis failures degrade to best effort; the exam
// itself never fails because the audit trail hiccuped.
func (s *ActivityService) RecordEvent(ctx context.Context, studentID uuid.UUID, req *model.LogEventRequest) (*RecordResult, error) {
	eventType, ok := model.ParseEventType(req.EventType)
	if !ok {
		return nil, ErrInvalidEventType
	}

	session, err := s.sessions.GetActiveByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}

	now := s.now()
	occurredAt := req.OccurredAt(now)
	duration := req.Duration()

	// Leaving the page during theory is an automatic termination. The
	// violation event itself is not logged as a normal entry; the
	// termination reason on the session is the record.
	if eventType.IsBlurLike() && session.Phase == model.PhaseTheory {
		if err := s.exams.ForceTerminate(ctx, session.ID, studentID, model.DefaultTerminationReason); err != nil {
			return nil, err
		}
		s.publish(ctx, &MonitorEvent{
			SessionID:  session.ID,
			StudentID:  studentID,
			EventType:  string(eventType),
			OccurredAt: occurredAt,
			Terminated: true,
		})
		return &RecordResult{Terminated: true}, nil
	}

	if s.isDuplicate(ctx, session.ID, eventType, occurredAt) {
		return &RecordResult{Duplicate: true}, nil
	}

	entry := &model.ActivityLogEntry{
		SessionID:      session.ID,
		EventType:      eventType,
		OccurredAt:     occurredAt,
		DurationAwayMs: duration,
		ExamQuestionID: req.ExamQuestionID,
	}
	s.enqueue(ctx, entry)

	// A focus-like event with a duration closes an away episode; bump the
	// cached counters so the evaluator table stays fresh without scanning
	// the log.
	if eventType.IsFocusLike() && duration != nil {
		awaySec := int(*duration / 1000)
		if err := s.sessions.IncrementAwayMetrics(ctx, session.ID, 1, awaySec); err != nil {
			s.log.Error().Err(err).
				Str("session_id", session.ID.String()).
				Msg("increment away metrics failed")
		}
	}

	s.publish(ctx, &MonitorEvent{
		SessionID:      session.ID,
		StudentID:      studentID,
		EventType:      string(eventType),
		OccurredAt:     occurredAt,
		DurationAwayMs: duration,
		ExamQuestionID: req.ExamQuestionID,
	})

	return &RecordResult{Recorded: true}, nil
}

// isDuplicate applies the server-side dedup window using a per-session
// last-event key in Redis. A Redis error disables dedup for that event
// rather than rejecting it.
func (s *ActivityService) isDuplicate(ctx context.Context, sessionID uuid.UUID, eventType model.EventType, occurredAt time.Time) bool {
	key := config.CacheKey.SessionLastEventKey(sessionID)

	last, err := s.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("dedup lookup failed")
		return false
	}
	if last != "" {
		parts := strings.SplitN(last, "|", 2)
		if len(parts) == 2 && parts[0] == string(eventType) {
			if lastMs, perr := strconv.ParseInt(parts[1], 10, 64); perr == nil {
				delta := occurredAt.UnixMilli() - lastMs
				if delta < 0 {
					delta = -delta
				}
				if time.Duration(delta)*time.Millisecond < dedupWindow {
					return true
				}
			}
		}
	}

	value := string(eventType) + "|" + strconv.FormatInt(occurredAt.UnixMilli(), 10)
	if err := s.rdb.Set(ctx, key, value, dedupWindow).Err(); err != nil {
		s.log.Warn().Err(err).Msg("dedup store failed")
	}
	return false
}

// enqueue pushes the entry onto the persistence queue consumed by the
// activity log worker.
func (s *ActivityService) enqueue(ctx context.Context, entry *model.ActivityLogEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal activity entry")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistActivityQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).
			Str("session_id", entry.SessionID.String()).
			Msg("enqueue activity entry failed")
	}
}

// publish fans the event out to the admin live monitor. Fire and forget.
func (s *ActivityService) publish(ctx context.Context, ev *MonitorEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.MonitorChannel(), payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("monitor publish failed")
	}
}
