package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/service"
)

func TestStartCreatesSessionFromProfile(t *testing.T) {
	env := newExamEnv(t, 2*time.Hour)
	studentID := env.seedStudent(t, 1)

	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	require.NotNil(t, state.Session)
	require.Equal(t, model.PhaseTheory, state.Session.Phase)
	require.Equal(t, studentID, state.Session.StudentID)
	require.Nil(t, state.Session.SubmittedAt)
	require.Equal(t, state.Session.StartedAt.Add(2*time.Hour), state.Session.DeadlineAt)
	require.Len(t, state.Questions, 14)
	require.Empty(t, state.Answers)

	require.True(t, sort.SliceIsSorted(state.Questions, func(i, j int) bool {
		return state.Questions[i].OrderIndex < state.Questions[j].OrderIndex
	}))
}

func TestStartIsIdempotent(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)

	first, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	second, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	require.Equal(t, first.Session.ID, second.Session.ID)
	require.Len(t, env.store.allSessions(), 1)
}

func TestStartRequiresProfile(t *testing.T) {
	env := newExamEnv(t, time.Hour)

	_, err := env.svc.Start(context.Background(), uuid.New())
	require.ErrorIs(t, err, service.ErrProfileRequired)
}

func TestStartQuotaShortfallLeavesNoSession(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := uuid.New()
	roleID := uuid.New()
	env.profiles.set(studentID, roleID)
	env.bank.seed(roleID, model.SectionTheory, 10)
	env.bank.seed(roleID, model.SectionPractical, 2)

	_, err := env.svc.Start(context.Background(), studentID)

	var insufficient *service.InsufficientQuestionsError
	require.ErrorAs(t, err, &insufficient)
	require.Empty(t, env.store.allSessions())
}

func TestStartRaceServesTheWinner(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)

	// The other tab wins between our active check and our insert.
	winner, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	env.store.missActiveOnce()

	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, winner.Session.ID, state.Session.ID)
	require.Len(t, env.store.allSessions(), 1)
}

func TestAdvanceIsOneWay(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	_, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	session, err := env.svc.Advance(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, model.PhasePractical, session.Phase)

	_, err = env.svc.Advance(context.Background(), studentID)
	require.ErrorIs(t, err, service.ErrAlreadyAdvanced)
}

func TestAdvancePastDeadline(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	env.store.expire(state.Session.ID)

	_, err = env.svc.Advance(context.Background(), studentID)
	require.ErrorIs(t, err, service.ErrDeadlinePassed)
}

func TestSubmitNormal(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	_, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	session, err := env.svc.Submit(context.Background(), studentID, nil)
	require.NoError(t, err)
	require.NotNil(t, session.SubmittedAt)
	require.False(t, session.TheoryViolation)
	require.Nil(t, session.TerminationReason)
	require.Nil(t, session.TerminatedAt)
}

func TestSubmitTwiceReportsAlreadySubmitted(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	_, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), studentID, nil)
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), studentID, nil)
	require.ErrorIs(t, err, service.ErrAlreadySubmitted)
}

func TestSubmitWithoutSession(t *testing.T) {
	env := newExamEnv(t, time.Hour)

	_, err := env.svc.Submit(context.Background(), uuid.New(), nil)
	require.ErrorIs(t, err, service.ErrNoActiveSession)
}

func TestSubmitViolationDefaultsReason(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	_, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	session, err := env.svc.Submit(context.Background(), studentID,
		&model.SubmitExamRequest{TheoryTabViolation: true})
	require.NoError(t, err)
	require.True(t, session.TheoryViolation)
	require.NotNil(t, session.TerminationReason)
	require.Equal(t, model.DefaultTerminationReason, *session.TerminationReason)
	require.NotNil(t, session.TerminatedAt)
}

func TestSubmitAcceptedPastDeadline(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	env.store.expire(state.Session.ID)

	session, err := env.svc.Submit(context.Background(), studentID, nil)
	require.NoError(t, err)
	require.NotNil(t, session.SubmittedAt)
}

func TestForceTerminateToleratesLosingTheRace(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	err = env.svc.ForceTerminate(context.Background(), state.Session.ID, studentID, "left the tab")
	require.NoError(t, err)

	stored := env.store.get(state.Session.ID)
	require.NotNil(t, stored.SubmittedAt)
	require.True(t, stored.TheoryViolation)
	require.Equal(t, "left the tab", *stored.TerminationReason)

	// Already terminal; a second termination is a no-op, not an error.
	err = env.svc.ForceTerminate(context.Background(), state.Session.ID, studentID, "left again")
	require.NoError(t, err)
	require.Equal(t, "left the tab", *env.store.get(state.Session.ID).TerminationReason)
}

func TestSaveAnswerKeepsFirstTimestamps(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	questionID := state.Questions[0].ID

	opened := time.Now().Add(-5 * time.Minute).UTC()
	text := "draft"
	answer, err := env.svc.SaveAnswer(context.Background(), studentID, &model.SaveAnswerRequest{
		ExamQuestionID: questionID,
		AnswerText:     &text,
		FirstOpened:    &opened,
	})
	require.NoError(t, err)
	require.Equal(t, opened, *answer.FirstOpened)
	require.NotNil(t, answer.LastModified)

	later := opened.Add(time.Minute)
	final := "final"
	answer, err = env.svc.SaveAnswer(context.Background(), studentID, &model.SaveAnswerRequest{
		ExamQuestionID: questionID,
		AnswerText:     &final,
		FirstOpened:    &later,
		FirstTyped:     &later,
	})
	require.NoError(t, err)
	require.Equal(t, "final", *answer.AnswerText)
	require.Equal(t, opened, *answer.FirstOpened, "first_opened must not move")
	require.Equal(t, later, *answer.FirstTyped)
}

func TestSaveAnswerRejectsForeignQuestion(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	alice := env.seedStudent(t, 1)
	bob := env.seedStudent(t, 1)

	aliceState, err := env.svc.Start(context.Background(), alice)
	require.NoError(t, err)
	_, err = env.svc.Start(context.Background(), bob)
	require.NoError(t, err)

	text := "not mine"
	_, err = env.svc.SaveAnswer(context.Background(), bob, &model.SaveAnswerRequest{
		ExamQuestionID: aliceState.Questions[0].ID,
		AnswerText:     &text,
	})
	require.ErrorIs(t, err, service.ErrQuestionNotFound)
}

func TestSaveAnswerPastDeadline(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	env.store.expire(state.Session.ID)

	text := "too late"
	_, err = env.svc.SaveAnswer(context.Background(), studentID, &model.SaveAnswerRequest{
		ExamQuestionID: state.Questions[0].ID,
		AnswerText:     &text,
	})
	require.ErrorIs(t, err, service.ErrDeadlinePassed)
}

func TestQuestionActivityAccumulatesActiveTime(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	questionID := state.Questions[0].ID

	openedMs := time.Now().Add(-90 * time.Second).UnixMilli()
	answer, err := env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: questionID,
		Action:         "open",
		ClientTsMs:     &openedMs,
	})
	require.NoError(t, err)
	require.NotNil(t, answer.LastOpenedAt)
	require.NotNil(t, answer.FirstOpened)

	closedMs := openedMs + 90_000
	answer, err = env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: questionID,
		Action:         "close",
		ClientTsMs:     &closedMs,
	})
	require.NoError(t, err)
	require.Equal(t, int64(90_000), answer.ActiveTimeMs)
	require.Equal(t, 90, answer.TotalTimeSpentSec)
	require.Nil(t, answer.LastOpenedAt)
	require.NotNil(t, answer.ClosedAt)
}

func TestQuestionActivityClampsBackwardsClock(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)
	questionID := state.Questions[0].ID

	openedMs := time.Now().UnixMilli()
	_, err = env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: questionID,
		Action:         "open",
		ClientTsMs:     &openedMs,
	})
	require.NoError(t, err)

	closedMs := openedMs - 30_000
	answer, err := env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: questionID,
		Action:         "close",
		ClientTsMs:     &closedMs,
	})
	require.NoError(t, err)
	require.Zero(t, answer.ActiveTimeMs)
	require.Zero(t, answer.TotalTimeSpentSec)
}

func TestQuestionActivityRejectsFutureTimestamp(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	future := time.Now().Add(10 * time.Minute).UnixMilli()
	_, err = env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: state.Questions[0].ID,
		Action:         "open",
		ClientTsMs:     &future,
	})
	require.ErrorIs(t, err, service.ErrInvalidTimestamp)
}

func TestQuestionActivityCloseWithoutOpen(t *testing.T) {
	env := newExamEnv(t, time.Hour)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	answer, err := env.svc.QuestionActivity(context.Background(), studentID, &model.QuestionActivityRequest{
		ExamQuestionID: state.Questions[0].ID,
		Action:         "close",
	})
	require.NoError(t, err)
	require.Zero(t, answer.ActiveTimeMs)
	require.NotNil(t, answer.ClosedAt)
}

// ─── Helpers ───

type examEnv struct {
	svc      *service.ExamSessionService
	store    *fakeSessionStore
	answers  *fakeAnswerStore
	profiles *fakeProfileStore
	bank     *fakeBank
}

// newExamEnv wires the exam session service against in-memory stores.
func newExamEnv(t *testing.T, duration time.Duration) *examEnv {
	t.Helper()
	store := newFakeSessionStore()
	answers := newFakeAnswerStore()
	profiles := newFakeProfileStore()
	bank := newFakeBank()
	svc := service.NewExamSessionService(
		store, answers, profiles, service.NewQuestionPicker(bank), duration, zerolog.Nop())
	return &examEnv{svc: svc, store: store, answers: answers, profiles: profiles, bank: bank}
}

// seedStudent registers a profile with n fresh roles, each with a full
// question pool, and returns the student ID.
func (e *examEnv) seedStudent(t *testing.T, n int) uuid.UUID {
	t.Helper()
	studentID := uuid.New()
	roleIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		roleID := uuid.New()
		e.bank.seed(roleID, model.SectionTheory, 12)
		e.bank.seed(roleID, model.SectionPractical, 6)
		roleIDs = append(roleIDs, roleID)
	}
	e.profiles.set(studentID, roleIDs...)
	return studentID
}

type fakeSessionStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*model.ExamSession
	questions    map[uuid.UUID][]model.ExamQuestion
	activeMisses int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[uuid.UUID]*model.ExamSession),
		questions: make(map[uuid.UUID][]model.ExamQuestion),
	}
}

// missActiveOnce makes the next GetActiveByStudent report no rows, emulating
// a session inserted by a concurrent request after the check.
func (s *fakeSessionStore) missActiveOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeMisses++
}

// expire moves the session's deadline into the past.
func (s *fakeSessionStore) expire(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID].DeadlineAt = time.Now().Add(-time.Minute)
}

func (s *fakeSessionStore) get(sessionID uuid.UUID) model.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sessions[sessionID]
}

func (s *fakeSessionStore) allSessions() []model.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ExamSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

func (s *fakeSessionStore) GetActiveByStudent(_ context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeMisses > 0 {
		s.activeMisses--
		return nil, pgx.ErrNoRows
	}
	return s.activeLocked(studentID)
}

func (s *fakeSessionStore) activeLocked(studentID uuid.UUID) (*model.ExamSession, error) {
	for _, sess := range s.sessions {
		if sess.StudentID == studentID && sess.SubmittedAt == nil {
			out := *sess
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeSessionStore) GetLatestByStudent(_ context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.ExamSession
	for _, sess := range s.sessions {
		if sess.StudentID != studentID {
			continue
		}
		if latest == nil || sess.StartedAt.After(latest.StartedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	out := *latest
	return &out, nil
}

func (s *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *sess
	return &out, nil
}

func (s *fakeSessionStore) StartExam(_ context.Context, session *model.ExamSession, questions []model.ExamQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirror the partial unique index on (student_id) WHERE submitted_at IS NULL.
	if _, err := s.activeLocked(session.StudentID); err == nil {
		return &pgconn.PgError{Code: "23505", ConstraintName: "idx_exam_sessions_one_active"}
	}
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	stored := *session
	s.sessions[session.ID] = &stored
	qs := make([]model.ExamQuestion, len(questions))
	for i, q := range questions {
		q.ID = uuid.New()
		q.SessionID = session.ID
		qs[i] = q
	}
	s.questions[session.ID] = qs
	return nil
}

func (s *fakeSessionStore) AdvanceToPractical(_ context.Context, sessionID, studentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.StudentID != studentID || sess.SubmittedAt != nil || sess.Phase != model.PhaseTheory {
		return false, nil
	}
	sess.Phase = model.PhasePractical
	return true, nil
}

func (s *fakeSessionStore) Submit(_ context.Context, sessionID, studentID uuid.UUID, violation bool, reason *string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.StudentID != studentID || sess.SubmittedAt != nil {
		return false, nil
	}
	sess.SubmittedAt = &now
	if violation {
		sess.TheoryViolation = true
		sess.TerminationReason = reason
		sess.TerminatedAt = &now
	}
	return true, nil
}

func (s *fakeSessionStore) IncrementAwayMetrics(_ context.Context, sessionID uuid.UUID, switches, awaySec int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	sess.TotalTabSwitches += switches
	sess.TotalTimeAwaySec += awaySec
	return nil
}

func (s *fakeSessionStore) ListQuestions(_ context.Context, sessionID uuid.UUID) ([]model.ExamQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ExamQuestion(nil), s.questions[sessionID]...), nil
}

func (s *fakeSessionStore) GetQuestion(_ context.Context, questionID uuid.UUID) (*model.ExamQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, qs := range s.questions {
		for _, q := range qs {
			if q.ID == questionID {
				out := q
				return &out, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

type answerKey struct {
	sessionID  uuid.UUID
	questionID uuid.UUID
}

type fakeAnswerStore struct {
	mu      sync.Mutex
	answers map[answerKey]*model.Answer
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[answerKey]*model.Answer)}
}

func (s *fakeAnswerStore) GetBySessionAndQuestion(_ context.Context, sessionID, questionID uuid.UUID) (*model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[answerKey{sessionID, questionID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *a
	return &out, nil
}

func (s *fakeAnswerStore) Upsert(_ context.Context, a *model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{a.SessionID, a.ExamQuestionID}
	if existing, ok := s.answers[key]; ok {
		a.ID = existing.ID
	} else if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := *a
	s.answers[key] = &stored
	return nil
}

func (s *fakeAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Answer
	for key, a := range s.answers {
		if key.sessionID == sessionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.StudentProfile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]*model.StudentProfile)}
}

func (s *fakeProfileStore) set(studentID uuid.UUID, roleIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[studentID] = &model.StudentProfile{
		ID:        uuid.New(),
		StudentID: studentID,
		Name:      "Test Candidate",
		RoleIDs:   roleIDs,
		CreatedAt: time.Now(),
	}
}

func (s *fakeProfileStore) GetLatestProfile(_ context.Context, studentID uuid.UUID) (*model.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[studentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *p
	return &out, nil
}
