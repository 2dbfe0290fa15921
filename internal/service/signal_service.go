package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/tracker"
)

// Raw browser signals accepted by the signal endpoint. Clients that cannot
// classify events locally send these and let the server-side tracker do it.
const (
	SignalBlur              = "blur"
	SignalFocus             = "focus"
	SignalVisibilityHidden  = "visibility_hidden"
	SignalVisibilityVisible = "visibility_visible"
	SignalFullscreenExit    = "fullscreen_exit"
	SignalFullscreenEnter   = "fullscreen_enter"
	SignalPageHide          = "pagehide"
	SignalActivity          = "activity"
)

// SignalRequest is the wire payload for one raw signal.
type SignalRequest struct {
	Signal         string     `json:"signal" binding:"required,max=40"`
	ExamQuestionID *uuid.UUID `json:"exam_question_id"`
}

// SignalResult reports what the tracker did with the signal.
type SignalResult struct {
	Accepted   bool `json:"accepted"`
	Warning    bool `json:"fullscreen_warning,omitempty"`
	Terminated bool `json:"terminated,omitempty"`
}

// sessionTracker pairs a tracker instance with the mutable view state its
// callbacks read.
type sessionTracker struct {
	tr    *tracker.Tracker
	state *trackerState
}

// trackerState is what the tracker callbacks observe. Updated before each
// dispatch, read synchronously from inside the tracker.
type trackerState struct {
	mu         sync.Mutex
	section    model.Section
	questionID string
	violated   bool
	warned     bool
}

func (st *trackerState) snapshotAndClearFlags() (violated, warned bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	violated, warned = st.violated, st.warned
	st.violated, st.warned = false, false
	return
}

// SignalService hosts one tracker per active exam session and routes raw
// signals through it. Classified events flow into the ActivityService the
// same way client-classified events do.
type SignalService struct {
	mu       sync.Mutex
	trackers map[uuid.UUID]*sessionTracker

	sessions SessionStore
	activity *ActivityService
	exams    *ExamSessionService
	log      zerolog.Logger
}

// NewSignalService creates a new SignalService.
func NewSignalService(sessions SessionStore, activity *ActivityService, exams *ExamSessionService, log zerolog.Logger) *SignalService {
	return &SignalService{
		trackers: make(map[uuid.UUID]*sessionTracker),
		sessions: sessions,
		activity: activity,
		exams:    exams,
		log:      log,
	}
}

// ProcessSignal feeds one raw signal into the candidate's session tracker,
// creating the tracker on first use. A theory violation raised by the
// tracker terminates the session and tears the tracker down.
func (s *SignalService) ProcessSignal(ctx context.Context, studentID uuid.UUID, req *SignalRequest) (*SignalResult, error) {
	session, err := s.sessions.GetActiveByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	st := s.trackerFor(session, studentID)

	st.state.mu.Lock()
	st.state.section = sectionForPhase(session.Phase)
	if req.ExamQuestionID != nil {
		st.state.questionID = req.ExamQuestionID.String()
	}
	st.state.mu.Unlock()

	switch req.Signal {
	case SignalBlur:
		st.tr.WindowBlur()
	case SignalFocus:
		st.tr.WindowFocus()
	case SignalVisibilityHidden:
		st.tr.VisibilityHidden()
	case SignalVisibilityVisible:
		st.tr.VisibilityVisible()
	case SignalFullscreenExit:
		st.tr.FullscreenExit()
	case SignalFullscreenEnter:
		st.tr.FullscreenEnter()
	case SignalPageHide:
		st.tr.PageHide()
	case SignalActivity:
		st.tr.Activity()
	default:
		return nil, ErrInvalidSignal
	}

	violated, warned := st.state.snapshotAndClearFlags()
	if violated {
		if err := s.exams.ForceTerminate(ctx, session.ID, studentID, model.DefaultTerminationReason); err != nil {
			return nil, err
		}
		s.Teardown(session.ID)
		return &SignalResult{Accepted: true, Terminated: true}, nil
	}

	return &SignalResult{Accepted: true, Warning: warned}, nil
}

// trackerFor returns the session's tracker, constructing it on first use.
func (s *SignalService) trackerFor(session *model.ExamSession, studentID uuid.UUID) *sessionTracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.trackers[session.ID]; ok {
		return st
	}

	state := &trackerState{section: sectionForPhase(session.Phase)}
	sessionID := session.ID

	tr := tracker.New(tracker.Callbacks{
		OnEvent: func(ev model.EventType, durationMs *int64, questionID string) {
			req := &model.LogEventRequest{EventType: string(ev)}
			if durationMs != nil {
				d := float64(*durationMs)
				req.DurationAwayMs = &d
			}
			if questionID != "" {
				if qid, err := uuid.Parse(questionID); err == nil {
					req.ExamQuestionID = &qid
				}
			}
			// The inactivity timer delivers events from its own
			// goroutine with no request in flight.
			if _, err := s.activity.RecordEvent(context.Background(), studentID, req); err != nil {
				s.log.Warn().Err(err).
					Str("session_id", sessionID.String()).
					Str("event_type", string(ev)).
					Msg("record tracker event failed")
			}
		},
		OnFullscreenExitWarning: func() {
			state.mu.Lock()
			state.warned = true
			state.mu.Unlock()
		},
		CurrentQuestionID: func() string {
			state.mu.Lock()
			defer state.mu.Unlock()
			return state.questionID
		},
		CurrentSection: func() model.Section {
			state.mu.Lock()
			defer state.mu.Unlock()
			return state.section
		},
		OnTheoryViolation: func() {
			state.mu.Lock()
			state.violated = true
			state.mu.Unlock()
		},
	})

	st := &sessionTracker{tr: tr, state: state}
	s.trackers[sessionID] = st
	return st
}

// Teardown closes and removes the tracker for a finished session. Safe to
// call for sessions without a tracker.
func (s *SignalService) Teardown(sessionID uuid.UUID) {
	s.mu.Lock()
	st, ok := s.trackers[sessionID]
	if ok {
		delete(s.trackers, sessionID)
	}
	s.mu.Unlock()

	if ok {
		st.tr.Close()
	}
}

// Shutdown closes every live tracker. Called on server shutdown.
func (s *SignalService) Shutdown() {
	s.mu.Lock()
	trackers := s.trackers
	s.trackers = make(map[uuid.UUID]*sessionTracker)
	s.mu.Unlock()

	for _, st := range trackers {
		st.tr.Close()
	}
}

func sectionForPhase(phase model.Phase) model.Section {
	if phase == model.PhasePractical {
		return model.SectionPractical
	}
	return model.SectionTheory
}
