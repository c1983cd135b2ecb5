// Package pipeline sequences the media transform stages for one job and owns
// all terminal writes to the progress tracker and the job record store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kiranshivaraju/framemill/internal/classify"
	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/internal/objectstore"
	"github.com/kiranshivaraju/framemill/internal/progress"
	"github.com/kiranshivaraju/framemill/internal/store"
	"github.com/kiranshivaraju/framemill/pkg/models"
)

// ErrPersistFailure marks a failure to persist a terminal outcome. It is the
// only error Process propagates: the consumer must then leave the message
// unacknowledged so the queue redelivers it.
var ErrPersistFailure = errors.New("persisting job outcome failed")

const (
	transcodedFilename = "transcoded.mp4"
	thumbnailFilename  = "thumbnail.jpg"
	thumbnailMaxWidth  = 320
	thumbnailMaxHeight = 180
)

// MediaTransformer is the external-tool surface the orchestrator drives.
// media.FFmpeg satisfies it.
type MediaTransformer interface {
	Transcode(ctx context.Context, input, output string) error
	ExtractFrames(ctx context.Context, video, dir string, fps int) ([]string, error)
	Thumbnail(src, dst string, maxW, maxH int) (int, int, error)
}

// Outcome is the result of processing one job. Status is a terminal job
// status (done or failed); ErrorMessage is set on failure.
type Outcome struct {
	JobID        string
	Status       string
	Result       *models.JobResult
	ErrorMessage string
}

// Failed reports whether the job ended in the failed state.
func (o Outcome) Failed() bool { return o.Status == models.JobStatusFailed }

// Orchestrator executes the fixed stage order for one job at a time:
// download, transcode, extract frames, per-frame inference, thumbnail,
// upload, finalize. It is the only writer of terminal state to either
// persistence store.
type Orchestrator struct {
	objects    objectstore.Store
	tracker    progress.Tracker
	store      store.Store
	media      MediaTransformer
	classifier classify.Classifier
	cfg        config.PipelineConfig
	logger     *slog.Logger
}

func New(objects objectstore.Store, tracker progress.Tracker, st store.Store,
	media MediaTransformer, classifier classify.Classifier,
	cfg config.PipelineConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		objects:    objects,
		tracker:    tracker,
		store:      st,
		media:      media,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process runs the full pipeline for one job descriptor. Stage failures are
// converted into a failed Outcome after best-effort persistence of the
// failure; the returned error is non-nil only when that persistence itself
// failed (wrapped in ErrPersistFailure).
func (o *Orchestrator) Process(ctx context.Context, msg models.JobMessage) (Outcome, error) {
	log := o.logger.With("job_id", msg.JobID, "input_key", msg.ObjectKey)
	log.Info("processing job", "user", msg.User)

	result, stageErr := o.runStages(ctx, msg, log)
	if stageErr != nil {
		return o.failJob(ctx, msg.JobID, stageErr, log)
	}

	// Terminal writes: progress record strictly before the job record, so a
	// caller never sees done in Postgres with a stale progress record for
	// longer than one store-write latency.
	if err := o.tracker.Complete(ctx, msg.JobID, result); err != nil {
		log.Error("completing progress record failed", "error", err)
		return Outcome{}, fmt.Errorf("%w: complete progress: %v", ErrPersistFailure, err)
	}

	outputKey := objectstore.TranscodedKey(msg.JobID, transcodedFilename)
	var thumbKey *string
	if result.Thumbnail != nil {
		k := objectstore.ThumbnailKey(msg.JobID, thumbnailFilename)
		thumbKey = &k
	}
	if err := o.store.FinalizeJob(ctx, msg.JobID, store.FinalizeParams{
		Status:             models.JobStatusDone,
		Result:             result,
		OutputObjectKey:    &outputKey,
		ThumbnailObjectKey: thumbKey,
	}); err != nil {
		log.Error("finalizing job record failed", "error", err)
		return Outcome{}, fmt.Errorf("%w: finalize job record: %v", ErrPersistFailure, err)
	}

	log.Info("job completed", "frames", result.FrameCount)
	return Outcome{JobID: msg.JobID, Status: models.JobStatusDone, Result: result}, nil
}

// runStages executes the transform stages inside a scoped workspace that is
// removed on every exit path. Panics in stage code are recovered and treated
// as stage failures.
func (o *Orchestrator) runStages(ctx context.Context, msg models.JobMessage, log *slog.Logger) (result *models.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in pipeline stage", "panic", r)
			result, err = nil, fmt.Errorf("internal stage failure: %v", r)
		}
	}()

	workspace, err := os.MkdirTemp(o.cfg.TmpDir, "framemill-"+msg.JobID+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			log.Warn("workspace cleanup failed", "dir", workspace, "error", rmErr)
		}
	}()

	// Stage 1: fetch the input into the workspace
	o.advance(ctx, msg.JobID, progress.StepDownload, log)
	inputPath := filepath.Join(workspace, "input_video.mp4")
	if err := o.objects.Download(ctx, msg.ObjectKey, inputPath); err != nil {
		return nil, fmt.Errorf("download input: %w", err)
	}

	// Stage 2: transcode to the normalized profile
	o.advance(ctx, msg.JobID, progress.StepTranscode, log)
	transcodedPath := filepath.Join(workspace, transcodedFilename)
	if err := o.media.Transcode(ctx, inputPath, transcodedPath); err != nil {
		return nil, err
	}

	// Stage 3: sample frames from the transcoded output
	o.advance(ctx, msg.JobID, progress.StepExtractFrames, log)
	framesDir := filepath.Join(workspace, "frames")
	frames, err := o.media.ExtractFrames(ctx, transcodedPath, framesDir, o.cfg.FrameRate)
	if err != nil {
		return nil, err
	}
	log.Info("frames extracted", "count", len(frames))

	// Stage 4: score every frame; per-frame failures are recorded inline and
	// never abort the job
	o.advance(ctx, msg.JobID, progress.StepInference, log)
	inference := make([]models.FrameInference, 0, len(frames))
	for _, frame := range frames {
		name := filepath.Base(frame)
		labels, err := o.classifier.ClassifyFrame(ctx, frame, o.cfg.TopK)
		if err != nil {
			log.Warn("frame inference failed", "frame", name, "error", err)
			inference = append(inference, models.FrameInference{Frame: name, Error: err.Error()})
			continue
		}
		inference = append(inference, models.FrameInference{Frame: name, Labels: labels})
	}

	// Stage 5: thumbnail from the first extracted frame
	o.advance(ctx, msg.JobID, progress.StepThumbnail, log)
	var thumbnailPath string
	if len(frames) > 0 {
		thumbnailPath = filepath.Join(workspace, thumbnailFilename)
		if _, _, err := o.media.Thumbnail(frames[0], thumbnailPath, thumbnailMaxWidth, thumbnailMaxHeight); err != nil {
			return nil, err
		}
	}

	transcoded := transcodedFilename
	result = &models.JobResult{
		Transcoded: &transcoded,
		FramesDir:  framesDir,
		FrameCount: len(frames),
		Inference:  inference,
	}
	if thumbnailPath != "" {
		thumb := thumbnailFilename
		result.Thumbnail = &thumb
	}

	// Stage 6: store artifacts durably before any record reports them
	o.advance(ctx, msg.JobID, progress.StepUpload, log)
	if err := o.uploadArtifacts(ctx, msg.JobID, transcodedPath, thumbnailPath, frames, result); err != nil {
		return nil, err
	}

	return result, nil
}

// uploadArtifacts puts the transcoded output, thumbnail, capped frame subset
// and the result blob into the object store under job-scoped keys. Keys are
// deterministic per job so a redelivered run overwrites instead of failing.
func (o *Orchestrator) uploadArtifacts(ctx context.Context, jobID, transcodedPath, thumbnailPath string, frames []string, result *models.JobResult) error {
	ref, err := o.objects.Upload(ctx, transcodedPath,
		objectstore.TranscodedKey(jobID, transcodedFilename), "video/mp4")
	if err != nil {
		return fmt.Errorf("upload transcoded output: %w", err)
	}
	result.Outputs.Transcoded = &ref

	if thumbnailPath != "" {
		ref, err := o.objects.Upload(ctx, thumbnailPath,
			objectstore.ThumbnailKey(jobID, thumbnailFilename), "image/jpeg")
		if err != nil {
			return fmt.Errorf("upload thumbnail: %w", err)
		}
		result.Outputs.Thumbnail = &ref
	}

	max := o.cfg.MaxUploadFrames
	if max > len(frames) {
		max = len(frames)
	}
	for _, frame := range frames[:max] {
		name := filepath.Base(frame)
		ref, err := o.objects.Upload(ctx, frame, objectstore.FrameKey(jobID, name), "image/jpeg")
		if err != nil {
			return fmt.Errorf("upload frame %s: %w", name, err)
		}
		result.Outputs.Frames = append(result.Outputs.Frames, models.FrameUpload{
			Filename: name,
			Key:      ref.Key,
			URL:      ref.URL,
		})
	}

	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result blob: %w", err)
	}
	if _, err := o.objects.UploadBytes(ctx, blob, objectstore.ResultKey(jobID), "application/json"); err != nil {
		return fmt.Errorf("upload result blob: %w", err)
	}
	return nil
}

// failJob persists the failed terminal state to both stores, progress record
// first. The stage error's message is what polling callers see; stack
// context stays in the logs.
func (o *Orchestrator) failJob(ctx context.Context, jobID string, stageErr error, log *slog.Logger) (Outcome, error) {
	log.Error("job failed", "error", stageErr)
	msg := stageErr.Error()

	trackerErr := o.tracker.Fail(ctx, jobID, msg)
	if trackerErr != nil {
		log.Error("failing progress record failed", "error", trackerErr)
	}

	storeErr := o.store.FinalizeJob(ctx, jobID, store.FinalizeParams{
		Status:       models.JobStatusFailed,
		ErrorMessage: &msg,
	})
	if storeErr != nil {
		log.Error("finalizing failed job record failed", "error", storeErr)
	}

	outcome := Outcome{JobID: jobID, Status: models.JobStatusFailed, ErrorMessage: msg}
	if trackerErr != nil || storeErr != nil {
		return outcome, fmt.Errorf("%w: persist failed state: %v", ErrPersistFailure,
			errors.Join(trackerErr, storeErr))
	}
	return outcome, nil
}

// advance writes the step's scheduled progress update. A failed non-terminal
// progress write is logged and the job continues; only terminal writes may
// abort processing.
func (o *Orchestrator) advance(ctx context.Context, jobID, step string, log *slog.Logger) {
	percent := 0
	for _, s := range progress.Plan {
		if s.Name == step {
			percent = s.Percent
			break
		}
	}
	if err := o.tracker.Update(ctx, jobID, percent, step); err != nil {
		log.Warn("progress update failed", "step", step, "error", err)
	}
}
