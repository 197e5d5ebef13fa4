package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksamitic110/assessly/internal/model"
)

// UserRepository reads professor and student accounts from PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetProfessorByEmail fetches a professor account for login.
func (r *UserRepository) GetProfessorByEmail(ctx context.Context, email string) (*model.Professor, error) {
	var p model.Professor
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM professors WHERE email = $1`,
		email,
	).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get professor: %w", err)
	}
	return &p, nil
}

// GetStudentByCode fetches a student account by index number for login.
func (r *UserRepository) GetStudentByCode(ctx context.Context, code string) (*model.Student, error) {
	var s model.Student
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, password_hash, created_at
		 FROM students WHERE code = $1`,
		code,
	).Scan(&s.ID, &s.Name, &s.Code, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// CreateProfessor inserts a professor account. Used by the CLI tool.
func (r *UserRepository) CreateProfessor(ctx context.Context, p *model.Professor) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO professors (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Name, p.Email, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create professor: %w", err)
	}
	return nil
}
