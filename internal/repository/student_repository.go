package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// StudentRepository handles candidate account and profile data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create inserts a new candidate account.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Email, s.Name, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByEmail retrieves a candidate by email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM students WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a candidate by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// EmailExists reports whether an account with the email already exists.
func (r *StudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE email = $1)`, email,
	).Scan(&exists)
	return exists, err
}

// CreateProfile appends a new profile row. The latest row wins; history is
// kept for auditing.
func (r *StudentRepository) CreateProfile(ctx context.Context, p *model.StudentProfile) error {
	roleIDs, err := json.Marshal(p.RoleIDs)
	if err != nil {
		return fmt.Errorf("marshal role ids: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO student_profiles
		   (student_id, name, gender, college, degree, branch, cgpa,
		    contact_number, age, location, role_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
		 RETURNING id, created_at`,
		p.StudentID, p.Name, p.Gender, p.College, p.Degree, p.Branch, p.CGPA,
		p.ContactNumber, p.Age, p.Location, roleIDs,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetLatestProfile retrieves the most recent profile for a candidate.
func (r *StudentRepository) GetLatestProfile(ctx context.Context, studentID uuid.UUID) (*model.StudentProfile, error) {
	p := &model.StudentProfile{}
	var roleIDs []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, name, gender, college, degree, branch, cgpa,
		        contact_number, age, location, role_ids, created_at
		 FROM student_profiles
		 WHERE student_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, studentID,
	).Scan(&p.ID, &p.StudentID, &p.Name, &p.Gender, &p.College, &p.Degree,
		&p.Branch, &p.CGPA, &p.ContactNumber, &p.Age, &p.Location, &roleIDs, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roleIDs, &p.RoleIDs); err != nil {
		return nil, fmt.Errorf("unmarshal role ids: %w", err)
	}
	return p, nil
}
