package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/config"
)

// auditPayload is the wire form of one queued audit event.
type auditPayload struct {
	ExamID    string `json:"exam_id"`
	StudentID int    `json:"student_id"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

// AuditQueue enqueues audit events onto the Redis list the AuditWorker
// drains. Fire-and-forget: enqueue failures are logged and never propagate
// to the state transition that produced the event.
type AuditQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAuditQueue creates a new AuditQueue.
func NewAuditQueue(rdb *redis.Client, log zerolog.Logger) *AuditQueue {
	return &AuditQueue{
		rdb: rdb,
		log: log.With().Str("component", "audit_queue").Logger(),
	}
}

// Append queues one audit event.
func (q *AuditQueue) Append(ctx context.Context, kind string, examID uuid.UUID, studentID int, detail string) {
	data, err := json.Marshal(auditPayload{
		ExamID:    examID.String(),
		StudentID: studentID,
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		q.log.Error().Err(err).Msg("Marshal audit event failed")
		return
	}
	if err := q.rdb.RPush(ctx, config.QueueKey.PersistAuditQueue, data).Err(); err != nil {
		q.log.Error().Err(err).Str("kind", kind).Msg("Enqueue audit event failed")
	}
}
