package model

import (
	"time"

	"github.com/google/uuid"
)

// Section distinguishes the two exam sections.
type Section string

const (
	SectionTheory    Section = "theory"
	SectionPractical Section = "practical"
)

// BankQuestion is a question bank entry. Entries referenced by any exam
// question snapshot cannot be hard-deleted, only archived (is_active=false).
type BankQuestion struct {
	ID           uuid.UUID `json:"id"`
	RoleID       uuid.UUID `json:"role_id"`
	Section      Section   `json:"section"`
	QuestionText string    `json:"question_text"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateQuestionRequest is the payload for adding a bank question.
type CreateQuestionRequest struct {
	RoleID       uuid.UUID `json:"role_id" binding:"required"`
	Section      Section   `json:"section" binding:"required,oneof=theory practical"`
	QuestionText string    `json:"question_text" binding:"required,min=1,max=5000"`
}

// UpdateQuestionRequest is the payload for updating a bank question.
type UpdateQuestionRequest struct {
	QuestionText string `json:"question_text" binding:"required,min=1,max=5000"`
	IsActive     *bool  `json:"is_active" binding:"required"`
}
