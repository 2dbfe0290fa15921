package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer holds a candidate's answer for one exam question. One row per
// (session, question) pair, upserted on open/close/edit events. Active and
// total time only ever grow.
type Answer struct {
	ID                 uuid.UUID  `json:"id"`
	SessionID          uuid.UUID  `json:"session_id"`
	ExamQuestionID     uuid.UUID  `json:"exam_question_id"`
	AnswerText         *string    `json:"answer_text,omitempty"`
	FirstOpened        *time.Time `json:"first_opened,omitempty"`
	FirstTyped         *time.Time `json:"first_typed,omitempty"`
	LastModified       *time.Time `json:"last_modified,omitempty"`
	LastOpenedAt       *time.Time `json:"last_opened_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	ActiveTimeMs       int64      `json:"active_time_ms"`
	TotalTimeSpentSec  int        `json:"total_time_spent_seconds"`
	Score              *float64   `json:"score,omitempty"`
	EvaluatedAt        *time.Time `json:"evaluated_at,omitempty"`
}

// SaveAnswerRequest is the payload for saving answer text and edit timestamps.
type SaveAnswerRequest struct {
	ExamQuestionID uuid.UUID  `json:"exam_question_id" binding:"required"`
	AnswerText     *string    `json:"answer_text" binding:"omitempty,max=50000"`
	FirstOpened    *time.Time `json:"first_opened"`
	FirstTyped     *time.Time `json:"first_typed"`
	LastModified   *time.Time `json:"last_modified"`
}

// QuestionActivityRequest is the payload for open/close episodes on a question.
type QuestionActivityRequest struct {
	ExamQuestionID uuid.UUID `json:"exam_question_id" binding:"required"`
	Action         string    `json:"action" binding:"required,oneof=open close"`
	ClientTsMs     *int64    `json:"client_ts_ms"`
}

// SaveScoresRequest is the evaluator payload for scoring a submission.
type SaveScoresRequest struct {
	Scores []AnswerScore `json:"scores" binding:"required,min=1,dive"`
}

// AnswerScore assigns an evaluator score to a single answer.
type AnswerScore struct {
	ExamQuestionID uuid.UUID `json:"exam_question_id" binding:"required"`
	Score          float64   `json:"score" binding:"min=0,max=100"`
}
