package models

import "time"

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// Job is the canonical job record in the relational store. It is written twice
// in the job lifecycle: once at enqueue time (status=queued) and once by the
// worker with the terminal outcome (done or failed). Downstream consumers read
// it for strongly consistent "is it done and where are the artifacts" queries;
// in-flight progress lives in JobProgress instead.
type Job struct {
	JobID              string     `db:"job_id"               json:"job_id"`
	VideoID            *int64     `db:"video_id"             json:"video_id,omitempty"`
	Owner              string     `db:"owner"                json:"owner"`
	Status             string     `db:"status"               json:"status"`
	Result             *JobResult `db:"result"               json:"result,omitempty"`
	InputObjectKey     string     `db:"input_object_key"     json:"input_object_key"`
	OutputObjectKey    *string    `db:"output_object_key"    json:"output_object_key,omitempty"`
	ThumbnailObjectKey *string    `db:"thumbnail_object_key" json:"thumbnail_object_key,omitempty"`
	ErrorMessage       *string    `db:"error_message"        json:"error_message,omitempty"`
	CreatedAt          time.Time  `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"           json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
