package model

import (
	"time"

	"github.com/google/uuid"
)

// Student represents a candidate account.
type Student struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentProfile is the recruitment profile filled in before the exam.
// The latest profile row for a student is the authoritative one; its role
// selection (1 or 2 roles) drives question generation at exam start.
type StudentProfile struct {
	ID            uuid.UUID   `json:"id"`
	StudentID     uuid.UUID   `json:"student_id"`
	Name          string      `json:"name"`
	Gender        string      `json:"gender"`
	College       string      `json:"college"`
	Degree        string      `json:"degree"`
	Branch        string      `json:"branch"`
	CGPA          float64     `json:"cgpa"`
	ContactNumber string      `json:"contact_number"`
	Age           int         `json:"age"`
	Location      string      `json:"location"`
	RoleIDs       []uuid.UUID `json:"role_ids"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SignupRequest is the payload for creating a candidate account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginRequest is the payload for candidate authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginResponse is returned after successful candidate login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// SaveProfileRequest is the payload for creating/replacing the candidate profile.
type SaveProfileRequest struct {
	Name          string      `json:"name" binding:"required,min=2,max=100"`
	Gender        string      `json:"gender" binding:"required,min=1,max=30"`
	College       string      `json:"college" binding:"required,min=2,max=255"`
	Degree        string      `json:"degree" binding:"required,min=1,max=100"`
	Branch        string      `json:"branch" binding:"required,min=1,max=100"`
	CGPA          float64     `json:"cgpa" binding:"min=0,max=10"`
	ContactNumber string      `json:"contact_number" binding:"required,min=7,max=20"`
	Age           int         `json:"age" binding:"required,min=16,max=80"`
	Location      string      `json:"location" binding:"required,min=2,max=100"`
	RoleIDs       []uuid.UUID `json:"role_ids" binding:"required,min=1,max=2"`
}
