package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the persistent exam entity. All session runtime state lives in the
// ephemeral store keyed by the exam id; this row only carries the schedule
// and the default duration.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	SubjectName     string     `json:"subject_name"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	TaskCount       int        `json:"task_count"`
	CreatedAt       time.Time  `json:"created_at"`
}
