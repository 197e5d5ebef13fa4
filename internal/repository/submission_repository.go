package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository reads and finalizes task submissions in PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// HasFinalSubmission reports whether the student has any finalized
// submission for the exam.
func (r *SubmissionRepository) HasFinalSubmission(ctx context.Context, examID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM task_submissions
		    WHERE exam_id = $1 AND student_id = $2 AND finalized
		 )`,
		examID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check final submission: %w", err)
	}
	return exists, nil
}

// FinalizeAll writes a finalized submission row for every task of the exam,
// using the student's saved progress where it exists and empty source/output
// otherwise. Rows the student already finalized are left untouched, so the
// sweep never overwrites an explicit submission.
func (r *SubmissionRepository) FinalizeAll(ctx context.Context, examID uuid.UUID, sessionID string, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_submissions
		    (exam_id, task_id, student_id, session_id, source, output, finalized, auto_submitted, submitted_at)
		 SELECT t.exam_id, t.id, $2, $3, COALESCE(p.source, ''), COALESCE(p.output, ''), TRUE, TRUE, NOW()
		 FROM tasks t
		 LEFT JOIN task_progress p
		   ON p.task_id = t.id AND p.student_id = $2
		 WHERE t.exam_id = $1
		 ON CONFLICT (task_id, student_id) DO UPDATE
		 SET source = EXCLUDED.source,
		     output = EXCLUDED.output,
		     session_id = EXCLUDED.session_id,
		     finalized = TRUE,
		     auto_submitted = TRUE,
		     submitted_at = NOW()
		 WHERE NOT task_submissions.finalized`,
		examID, studentID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("finalize submissions: %w", err)
	}
	return nil
}
