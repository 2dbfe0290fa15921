package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/repository"
)

// SweepInterval is how often the deadline sweeper scans for overdue sessions.
const SweepInterval = 30 * time.Second

// TrackerRegistry is the slice of the signal service the sweeper needs to
// release server-side trackers for sessions it closes.
type TrackerRegistry interface {
	Teardown(sessionID uuid.UUID)
}

// DeadlineWorker auto-submits sessions whose deadline has passed. The exam
// API rejects most writes after the deadline, but only a submit freezes the
// session; candidates who simply walk away are closed out here.
type DeadlineWorker struct {
	sessions *repository.ExamSessionRepository
	trackers TrackerRegistry
	log      zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(sessions *repository.ExamSessionRepository, trackers TrackerRegistry, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		sessions: sessions,
		trackers: trackers,
		log:      log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Msg("deadline worker started")

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeadlineWorker) sweep(ctx context.Context) {
	now := time.Now()

	overdue, err := w.sessions.ListOverdue(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("list overdue sessions failed")
		return
	}

	for _, session := range overdue {
		// Plain submit, not a violation; running out of time is not an
		// integrity event. Losing the race to a candidate submit is fine.
		ok, err := w.sessions.Submit(ctx, session.ID, session.StudentID, false, nil, now)
		if err != nil {
			w.log.Error().Err(err).
				Str("session_id", session.ID.String()).
				Msg("auto-submit failed")
			continue
		}
		if ok {
			w.trackers.Teardown(session.ID)
			w.log.Info().
				Str("session_id", session.ID.String()).
				Str("student_id", session.StudentID.String()).
				Time("deadline", session.DeadlineAt).
				Msg("session auto-submitted after deadline")
		}
	}
}
