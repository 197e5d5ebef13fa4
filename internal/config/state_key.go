package config

import (
	"fmt"
)

type StateKeyStruct struct{}

func NewStateKeyStruct() *StateKeyStruct {
	return &StateKeyStruct{}
}

// ExamStatusKey returns the state key for an exam's session status
func (r *StateKeyStruct) ExamStatusKey(examID string) string {
	return fmt.Sprintf("exam:%s:status", examID)
}

// ExamStartTimeKey returns the state key for a session's actual start (unix ms)
func (r *StateKeyStruct) ExamStartTimeKey(examID string) string {
	return fmt.Sprintf("exam:%s:start_time", examID)
}

// ExamEndTimeKey returns the state key for a session's scheduled end (unix ms)
func (r *StateKeyStruct) ExamEndTimeKey(examID string) string {
	return fmt.Sprintf("exam:%s:end_time", examID)
}

// ExamRemainingMSKey returns the state key holding remaining time while paused
func (r *StateKeyStruct) ExamRemainingMSKey(examID string) string {
	return fmt.Sprintf("exam:%s:remaining_ms", examID)
}

// ExamDurationKey returns the state key for the session's duration in seconds
func (r *StateKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration_seconds", examID)
}

// ExamSessionIDKey returns the state key for the live session identifier
func (r *StateKeyStruct) ExamSessionIDKey(examID string) string {
	return fmt.Sprintf("exam:%s:session_id", examID)
}

// ExamStartedStudentsKey returns the set of students who engaged with the session
func (r *StateKeyStruct) ExamStartedStudentsKey(examID string) string {
	return fmt.Sprintf("exam:%s:started_students", examID)
}

// StudentWithdrawnKey returns the key stamping a student's withdrawal with a session id
func (r *StateKeyStruct) StudentWithdrawnKey(examID string, studentID int) string {
	return fmt.Sprintf("exam:%s:withdrawn:%d", examID, studentID)
}

// StudentViolationsKey returns the per-student violation counter key
func (r *StateKeyStruct) StudentViolationsKey(examID string, studentID int) string {
	return fmt.Sprintf("exam:%s:violations:%d", examID, studentID)
}

// AutoSubmitLockKey returns the idempotency lock key for the auto-submit sweep
func (r *StateKeyStruct) AutoSubmitLockKey(examID, sessionID string) string {
	return fmt.Sprintf("exam:%s:autosubmit:%s", examID, sessionID)
}

// StudentPresenceKey returns the short-lived online marker for a student
func (r *StateKeyStruct) StudentPresenceKey(examID string, studentID int) string {
	return fmt.Sprintf("exam:%s:online:%d", examID, studentID)
}

var StateKey = NewStateKeyStruct()
