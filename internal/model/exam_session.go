package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase enumerates the forward-only exam phases.
type Phase string

const (
	PhaseTheory    Phase = "theory"
	PhasePractical Phase = "practical"
)

// DefaultTerminationReason is recorded when a violation submit arrives
// without an explicit reason.
const DefaultTerminationReason = "Tab switched during theory section"

// ExamSession represents one candidate's exam attempt. At most one session
// per student may have SubmittedAt == nil (enforced by a partial unique
// index). Once submitted the session is immutable except for evaluator
// scores on its answers.
type ExamSession struct {
	ID                uuid.UUID   `json:"id"`
	StudentID         uuid.UUID   `json:"student_id"`
	RoleIDs           []uuid.UUID `json:"role_ids"`
	Phase             Phase       `json:"phase"`
	StartedAt         time.Time   `json:"started_at"`
	DeadlineAt        time.Time   `json:"deadline_at"`
	SubmittedAt       *time.Time  `json:"submitted_at,omitempty"`
	TotalTabSwitches  int         `json:"total_tab_switches"`
	TotalTimeAwaySec  int         `json:"total_time_away_seconds"`
	TheoryViolation   bool        `json:"theory_tab_violation"`
	TerminationReason *string     `json:"termination_reason,omitempty"`
	TerminatedAt      *time.Time  `json:"terminated_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Submitted reports whether the session has reached its terminal state.
func (s *ExamSession) Submitted() bool {
	return s.SubmittedAt != nil
}

// DeadlineExceeded reports whether the server clock is past the deadline.
func (s *ExamSession) DeadlineExceeded(now time.Time) bool {
	return now.After(s.DeadlineAt)
}

// SubmitExamRequest is the optional violation payload accepted by Submit.
// A missing or malformed body is treated as a normal submission.
type SubmitExamRequest struct {
	TheoryTabViolation bool    `json:"theoryTabViolation"`
	TerminationReason  *string `json:"terminationReason"`
}
