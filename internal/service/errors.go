package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// Domain errors surfaced by services. Handlers map these 1:1 onto the error
// code taxonomy; none should escape as unhandled faults.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already registered")
	ErrProfileRequired      = errors.New("profile must be completed first")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrInvalidRoleSelection = errors.New("select 1 or 2 distinct active roles")
	ErrSessionNotFound      = errors.New("exam session not found")
	ErrNoActiveSession      = errors.New("no active exam session")
	ErrAlreadySubmitted     = errors.New("exam already submitted")
	ErrAlreadyAdvanced      = errors.New("exam already in practical section")
	ErrDeadlinePassed       = errors.New("exam deadline has passed")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrInvalidEventType     = errors.New("invalid activity event type")
	ErrInvalidSignal        = errors.New("invalid monitor signal")
	ErrInvalidTimestamp     = errors.New("client timestamp too far in the future")
	ErrNotSubmitted         = errors.New("session has not been submitted yet")
)

// InsufficientQuestionsError reports which role and section fell short of
// its quota at exam start.
type InsufficientQuestionsError struct {
	RoleID  uuid.UUID
	Section model.Section
	Need    int
	Have    int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("role %s has insufficient %s questions (need %d, have %d)",
		e.RoleID, e.Section, e.Need, e.Have)
}
