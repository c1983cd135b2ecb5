package models

import "time"

// JobMessage is the queue message payload describing one unit of work.
// Immutable once enqueued; the queue may redeliver it (at-least-once), so
// consumers must treat a repeat delivery of the same JobID as a full re-run.
type JobMessage struct {
	JobID     string    `json:"job_id"`
	ObjectKey string    `json:"s3_key"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields a worker cannot proceed without.
func (m *JobMessage) Validate() error {
	if m.JobID == "" {
		return ErrMissingJobID
	}
	if m.ObjectKey == "" {
		return ErrMissingObjectKey
	}
	return nil
}
