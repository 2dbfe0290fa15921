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

// Question open episodes longer than this are clamped; a laptop closed
// overnight must not inflate active time.
const maxOpenEpisode = 24 * time.Hour

// Client timestamps this far ahead of the server clock are rejected.
const maxClockSkew = time.Minute

// SessionStore is the slice of the exam session repository the services need.
type SessionStore interface {
	GetActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error)
	GetLatestByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	StartExam(ctx context.Context, s *model.ExamSession, questions []model.ExamQuestion) error
	AdvanceToPractical(ctx context.Context, sessionID, studentID uuid.UUID) (bool, error)
	Submit(ctx context.Context, sessionID, studentID uuid.UUID, violation bool, reason *string, now time.Time) (bool, error)
	IncrementAwayMetrics(ctx context.Context, sessionID uuid.UUID, switches, awaySec int) error
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]model.ExamQuestion, error)
	GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.ExamQuestion, error)
}

// AnswerStore is the slice of the answer repository the services need.
type AnswerStore interface {
	GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uuid.UUID) (*model.Answer, error)
	Upsert(ctx context.Context, a *model.Answer) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
}

// ProfileStore is the slice of the student repository the exam start needs.
type ProfileStore interface {
	GetLatestProfile(ctx context.Context, studentID uuid.UUID) (*model.StudentProfile, error)
}

// SessionState is the full exam state returned to the candidate client on
// start and on reconnect.
type SessionState struct {
	Session   *model.ExamSession   `json:"session"`
	Questions []model.ExamQuestion `json:"questions"`
	Answers   []model.Answer       `json:"answers"`
}

// ExamSessionService drives the exam session lifecycle: start, section
// advance, answer persistence, and submission.
type ExamSessionService struct {
	sessions SessionStore
	answers  AnswerStore
	profiles ProfileStore
	picker   *QuestionPicker
	duration time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	answers AnswerStore,
	profiles ProfileStore,
	picker *QuestionPicker,
	duration time.Duration,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions: sessions,
		answers:  answers,
		profiles: profiles,
		picker:   picker,
		duration: duration,
		log:      log,
		now:      time.Now,
	}
}

// Start begins an exam for the candidate, or returns the existing state when
// a session is already active. Questions are drawn before any session row is
// written, so a quota shortfall leaves no state behind.
func (s *ExamSessionService) Start(ctx context.Context, studentID uuid.UUID) (*SessionState, error) {
	active, err := s.sessions.GetActiveByStudent(ctx, studentID)
	if err == nil {
		return s.stateFor(ctx, active)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	profile, err := s.profiles.GetLatestProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileRequired
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	questions, err := s.picker.Pick(ctx, profile.RoleIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &model.ExamSession{
		StudentID:  studentID,
		RoleIDs:    profile.RoleIDs,
		Phase:      model.PhaseTheory,
		StartedAt:  now,
		DeadlineAt: now.Add(s.duration),
	}
	if err := s.sessions.StartExam(ctx, session, questions); err != nil {
		// Two tabs raced the start; the partial unique index picked a
		// winner. Serve the winner's session to both.
		if repository.IsUniqueViolation(err) {
			active, ferr := s.sessions.GetActiveByStudent(ctx, studentID)
			if ferr != nil {
				return nil, fmt.Errorf("refetch after race: %w", ferr)
			}
			return s.stateFor(ctx, active)
		}
		return nil, fmt.Errorf("start exam: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", studentID.String()).
		Int("questions", len(questions)).
		Time("deadline", session.DeadlineAt).
		Msg("exam session started")

	return s.stateFor(ctx, session)
}

// State returns the candidate's active session with questions and answers.
func (s *ExamSessionService) State(ctx context.Context, studentID uuid.UUID) (*SessionState, error) {
	session, err := s.activeSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.stateFor(ctx, session)
}

func (s *ExamSessionService) stateFor(ctx context.Context, session *model.ExamSession) (*SessionState, error) {
	questions, err := s.sessions.ListQuestions(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return &SessionState{Session: session, Questions: questions, Answers: answers}, nil
}

// Advance moves the candidate's active session from theory to practical.
// The transition is one-way.
func (s *ExamSessionService) Advance(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.activeSession(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if session.DeadlineExceeded(s.now()) {
		return nil, ErrDeadlinePassed
	}

	ok, err := s.sessions.AdvanceToPractical(ctx, session.ID, studentID)
	if err != nil {
		return nil, fmt.Errorf("advance: %w", err)
	}
	if !ok {
		// Guard missed; refetch to name the actual state.
		current, err := s.sessions.GetByID(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("refetch session: %w", err)
		}
		if current.Submitted() {
			return nil, ErrAlreadySubmitted
		}
		return nil, ErrAlreadyAdvanced
	}

	session.Phase = model.PhasePractical
	return session, nil
}

// Submit finishes the candidate's exam. Violation submissions flag the
// session and record a termination reason; submission is accepted even past
// the deadline. Exactly one concurrent submit wins.
func (s *ExamSessionService) Submit(ctx context.Context, studentID uuid.UUID, req *model.SubmitExamRequest) (*model.ExamSession, error) {
	session, err := s.sessions.GetActiveByStudent(ctx, studentID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get active session: %w", err)
		}
		latest, lerr := s.sessions.GetLatestByStudent(ctx, studentID)
		if lerr != nil {
			if errors.Is(lerr, pgx.ErrNoRows) {
				return nil, ErrNoActiveSession
			}
			return nil, fmt.Errorf("get latest session: %w", lerr)
		}
		if latest.Submitted() {
			return nil, ErrAlreadySubmitted
		}
		return nil, ErrNoActiveSession
	}

	violation := req != nil && req.TheoryTabViolation
	var reason *string
	if violation {
		reason = req.TerminationReason
		if reason == nil || *reason == "" {
			r := model.DefaultTerminationReason
			reason = &r
		}
	}

	now := s.now()
	ok, err := s.sessions.Submit(ctx, session.ID, studentID, violation, reason, now)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if !ok {
		return nil, ErrAlreadySubmitted
	}

	session.SubmittedAt = &now
	if violation {
		session.TheoryViolation = true
		session.TerminationReason = reason
		session.TerminatedAt = &now
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", studentID.String()).
		Bool("violation", violation).
		Msg("exam submitted")

	return session, nil
}

// ForceTerminate submits a session on the candidate's behalf after a theory
// violation detected server-side. Losing the submit race is fine; the
// session is terminal either way.
func (s *ExamSessionService) ForceTerminate(ctx context.Context, sessionID, studentID uuid.UUID, reason string) error {
	now := s.now()
	ok, err := s.sessions.Submit(ctx, sessionID, studentID, true, &reason, now)
	if err != nil {
		return fmt.Errorf("force terminate: %w", err)
	}
	if ok {
		s.log.Warn().
			Str("session_id", sessionID.String()).
			Str("student_id", studentID.String()).
			Str("reason", reason).
			Msg("exam terminated for theory violation")
	}
	return nil
}

// SaveAnswer upserts the candidate's answer text and edit timestamps for one
// question. Time accounting fields only ever grow.
func (s *ExamSessionService) SaveAnswer(ctx context.Context, studentID uuid.UUID, req *model.SaveAnswerRequest) (*model.Answer, error) {
	session, question, err := s.activeQuestion(ctx, studentID, req.ExamQuestionID)
	if err != nil {
		return nil, err
	}
	if session.DeadlineExceeded(s.now()) {
		return nil, ErrDeadlinePassed
	}

	answer, err := s.loadOrInitAnswer(ctx, session.ID, question.ID)
	if err != nil {
		return nil, err
	}

	if req.AnswerText != nil {
		answer.AnswerText = req.AnswerText
	}
	if answer.FirstOpened == nil {
		answer.FirstOpened = req.FirstOpened
	}
	if answer.FirstTyped == nil {
		answer.FirstTyped = req.FirstTyped
	}
	if req.LastModified != nil {
		answer.LastModified = req.LastModified
	} else {
		now := s.now()
		answer.LastModified = &now
	}

	if err := s.answers.Upsert(ctx, answer); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}
	return answer, nil
}

// QuestionActivity records an open or close episode on a question and
// accumulates per-question active time from close deltas.
func (s *ExamSessionService) QuestionActivity(ctx context.Context, studentID uuid.UUID, req *model.QuestionActivityRequest) (*model.Answer, error) {
	session, question, err := s.activeQuestion(ctx, studentID, req.ExamQuestionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.DeadlineExceeded(now) {
		return nil, ErrDeadlinePassed
	}

	ts := now
	if req.ClientTsMs != nil {
		ts = time.UnixMilli(*req.ClientTsMs)
		if ts.After(now.Add(maxClockSkew)) {
			return nil, ErrInvalidTimestamp
		}
	}

	answer, err := s.loadOrInitAnswer(ctx, session.ID, question.ID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "open":
		answer.LastOpenedAt = &ts
		if answer.FirstOpened == nil {
			answer.FirstOpened = &ts
		}
	case "close":
		if answer.LastOpenedAt != nil {
			delta := ts.Sub(*answer.LastOpenedAt)
			if delta < 0 {
				delta = 0
			}
			if delta > maxOpenEpisode {
				delta = maxOpenEpisode
			}
			answer.ActiveTimeMs += delta.Milliseconds()
			answer.TotalTimeSpentSec += int(delta / time.Second)
		}
		answer.ClosedAt = &ts
		answer.LastOpenedAt = nil
	}

	if err := s.answers.Upsert(ctx, answer); err != nil {
		return nil, fmt.Errorf("save question activity: %w", err)
	}
	return answer, nil
}

func (s *ExamSessionService) activeSession(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetActiveByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return session, nil
}

// activeQuestion resolves the active session and verifies the question
// belongs to it. A question ID from another session is treated as not found.
func (s *ExamSessionService) activeQuestion(ctx context.Context, studentID, questionID uuid.UUID) (*model.ExamSession, *model.ExamQuestion, error) {
	session, err := s.activeSession(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	question, err := s.sessions.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrQuestionNotFound
		}
		return nil, nil, fmt.Errorf("get question: %w", err)
	}
	if question.SessionID != session.ID {
		return nil, nil, ErrQuestionNotFound
	}
	return session, question, nil
}

func (s *ExamSessionService) loadOrInitAnswer(ctx context.Context, sessionID, questionID uuid.UUID) (*model.Answer, error) {
	answer, err := s.answers.GetBySessionAndQuestion(ctx, sessionID, questionID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get answer: %w", err)
		}
		answer = &model.Answer{SessionID: sessionID, ExamQuestionID: questionID}
	}
	return answer, nil
}
