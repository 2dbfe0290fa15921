package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamQuestion is a frozen snapshot of a bank question bound to one session.
// SourceID points back to the bank entry for usage tracking; the snapshot is
// never affected by later bank edits.
type ExamQuestion struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	RoleID       uuid.UUID `json:"role_id"`
	Section      Section   `json:"section"`
	QuestionText string    `json:"question_text"`
	SourceID     uuid.UUID `json:"source_id"`
	OrderIndex   int       `json:"order_index"`
	CreatedAt    time.Time `json:"created_at"`
}
