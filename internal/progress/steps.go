package progress

import (
	"strconv"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

// Step is one entry in the fixed processing plan. Percent is the progress
// value written when the step starts; Status is the record status while the
// step runs.
type Step struct {
	Name    string
	Status  string
	Percent int
}

// Step labels used by the orchestrator. The plan below is the single source
// of truth for step ordering and the monotonic percent schedule; 100 is only
// ever written by Complete.
const (
	StepDownload      = "download"
	StepTranscode     = "transcode"
	StepExtractFrames = "extract_frames"
	StepInference     = "ml_inference"
	StepThumbnail     = "thumbnail"
	StepUpload        = "upload_results"
)

var Plan = []Step{
	{Name: StepDownload, Status: models.ProgressDownloading, Percent: 20},
	{Name: StepTranscode, Status: models.ProgressTranscoding, Percent: 40},
	{Name: StepExtractFrames, Status: models.ProgressExtracting, Percent: 55},
	{Name: StepInference, Status: models.ProgressInferring, Percent: 75},
	{Name: StepThumbnail, Status: models.ProgressUploading, Percent: 85},
	{Name: StepUpload, Status: models.ProgressUploading, Percent: 95},
}

// planIndex returns the zero-based position of a step label in the plan,
// or -1 for labels outside the plan.
func planIndex(label string) int {
	for i, s := range Plan {
		if s.Name == label {
			return i
		}
	}
	return -1
}

// pendingSteps builds the initial step table: every step pending.
func pendingSteps() map[string]models.StepState {
	steps := make(map[string]models.StepState, len(Plan))
	for i, s := range Plan {
		steps[strconv.Itoa(i+1)] = models.StepState{Name: s.Name, Status: models.StepPending}
	}
	return steps
}

// stepsAt builds the step table for a job currently running the step at
// running: everything before it completed, everything after it pending.
func stepsAt(running int) map[string]models.StepState {
	steps := make(map[string]models.StepState, len(Plan))
	for i, s := range Plan {
		status := models.StepPending
		switch {
		case i < running:
			status = models.StepCompleted
		case i == running:
			status = models.StepRunning
		}
		steps[strconv.Itoa(i+1)] = models.StepState{Name: s.Name, Status: status}
	}
	return steps
}

// completedSteps builds the terminal step table for a successful job.
func completedSteps() map[string]models.StepState {
	steps := make(map[string]models.StepState, len(Plan))
	for i, s := range Plan {
		steps[strconv.Itoa(i+1)] = models.StepState{Name: s.Name, Status: models.StepCompleted}
	}
	return steps
}
