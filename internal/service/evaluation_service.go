package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/repository"
)

// EvaluationDetail is everything the evaluator sees for one submission.
// Metrics are recomputed from the activity log at read time; the cached
// counters on the session are also included for comparison.
type EvaluationDetail struct {
	Session   *model.ExamSession      `json:"session"`
	Student   *model.Student          `json:"student"`
	Questions []model.ExamQuestion    `json:"questions"`
	Answers   []model.Answer          `json:"answers"`
	Metrics   *repository.AwayMetrics `json:"derived_metrics"`
}

// EvaluationService serves the evaluator's submission review and scoring.
type EvaluationService struct {
	sessions *repository.ExamSessionRepository
	answers  *repository.AnswerRepository
	logs     *repository.ActivityLogRepository
	students *repository.StudentRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(
	sessions *repository.ExamSessionRepository,
	answers *repository.AnswerRepository,
	logs *repository.ActivityLogRepository,
	students *repository.StudentRepository,
	log zerolog.Logger,
) *EvaluationService {
	return &EvaluationService{
		sessions: sessions,
		answers:  answers,
		logs:     logs,
		students: students,
		log:      log,
		now:      time.Now,
	}
}

// ListSubmissions returns the evaluator's session table.
func (s *EvaluationService) ListSubmissions(ctx context.Context, f repository.SubmissionFilter, limit, offset int) ([]repository.SubmissionRow, int64, error) {
	return s.sessions.ListSubmissions(ctx, f, limit, offset)
}

// GetDetail assembles a full evaluation view of one session.
func (s *EvaluationService) GetDetail(ctx context.Context, sessionID uuid.UUID) (*EvaluationDetail, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, session.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	questions, err := s.sessions.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	metrics, err := s.logs.RecomputeAwayMetrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recompute metrics: %w", err)
	}

	return &EvaluationDetail{
		Session:   session,
		Student:   student,
		Questions: questions,
		Answers:   answers,
		Metrics:   metrics,
	}, nil
}

// ListLogs returns a session's activity log in chronological order.
func (s *EvaluationService) ListLogs(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.ActivityLogEntry, int64, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	return s.logs.ListBySession(ctx, sessionID, limit, offset)
}

// SaveScores records evaluator scores on a submitted session's answers.
// Scoring an unsubmitted session is rejected; scores are the only mutation
// allowed after submission.
func (s *EvaluationService) SaveScores(ctx context.Context, sessionID uuid.UUID, req *model.SaveScoresRequest) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Submitted() {
		return ErrNotSubmitted
	}

	now := s.now()
	for _, score := range req.Scores {
		question, err := s.sessions.GetQuestion(ctx, score.ExamQuestionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("get question: %w", err)
		}
		if question.SessionID != sessionID {
			return ErrQuestionNotFound
		}
		if err := s.answers.SaveScore(ctx, sessionID, score.ExamQuestionID, score.Score, now); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("scores", len(req.Scores)).
		Msg("evaluation scores saved")
	return nil
}

func (s *EvaluationService) getSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}
