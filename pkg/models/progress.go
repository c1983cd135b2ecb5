package models

import "time"

// Progress record statuses. These are finer-grained than the relational job
// statuses: a polling caller sees which stage the worker is currently in.
const (
	ProgressQueued      = "queued"
	ProgressDownloading = "downloading"
	ProgressTranscoding = "transcoding"
	ProgressExtracting  = "extracting"
	ProgressInferring   = "inferring"
	ProgressUploading   = "uploading"
	ProgressCompleted   = "completed"
	ProgressFailed      = "failed"
)

// Per-step statuses within the step table.
const (
	StepPending   = "pending"
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
)

// StepState is one entry in the ordered step table of a progress record.
type StepState struct {
	Name   string `json:"name"`
	Status string `json:"current_status"`
}

// JobProgress is the fast, frequently-polled view of an in-flight job, held
// in the key-value store. It converges with the relational Job record on
// terminal status (completed⇔done, failed⇔failed) but updates far more often
// while the job runs.
type JobProgress struct {
	JobID         string               `json:"job_id"`
	Owner         string               `json:"owner"`
	Status        string               `json:"status"`
	Progress      int                  `json:"progress"`
	CurrentStep   string               `json:"current_step"`
	TotalSteps    int                  `json:"total_steps"`
	Steps         map[string]StepState `json:"steps"`
	VideoFilename string               `json:"video_filename,omitempty"`
	Result        *JobResult           `json:"result,omitempty"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TerminalProgress reports whether the progress record has reached a final state.
func (p *JobProgress) TerminalProgress() bool {
	return p.Status == ProgressCompleted || p.Status == ProgressFailed
}
