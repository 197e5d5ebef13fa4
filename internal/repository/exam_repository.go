package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksamitic110/assessly/internal/model"
)

// ExamRepository reads exam entities from PostgreSQL.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID fetches an exam with its task count.
func (r *ExamRepository) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.subject_name, e.title, e.duration_minutes, e.scheduled_start, e.created_at,
		        (SELECT COUNT(*) FROM tasks t WHERE t.exam_id = e.id)
		 FROM exams e
		 WHERE e.id = $1`,
		examID,
	).Scan(&exam.ID, &exam.SubjectName, &exam.Title, &exam.DurationMinutes, &exam.ScheduledStart, &exam.CreatedAt, &exam.TaskCount)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &exam, nil
}

// CountTasks returns the number of tasks attached to an exam. The command
// handler refuses to start a taskless exam based on this.
func (r *ExamRepository) CountTasks(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE exam_id = $1`,
		examID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
