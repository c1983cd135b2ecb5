package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiranshivaraju/framemill/internal/progress"
	"github.com/kiranshivaraju/framemill/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTracker spins up a Redis container and returns a connected RedisTracker.
func setupTracker(t *testing.T) *progress.RedisTracker {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	tracker, err := progress.NewRedisTracker(redisURL, "default", 0)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tracker.Close()) })

	return tracker
}

func TestCreate_InitialRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	err := tracker.Create(ctx, "job-1", progress.CreateParams{Owner: "alice", VideoFilename: "clip.mp4"})
	require.NoError(t, err)

	rec, err := tracker.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, models.ProgressQueued, rec.Status)
	assert.Equal(t, 0, rec.Progress)
	assert.Equal(t, "clip.mp4", rec.VideoFilename)
	assert.Equal(t, len(progress.Plan), rec.TotalSteps)
	require.Len(t, rec.Steps, len(progress.Plan))
	for _, st := range rec.Steps {
		assert.Equal(t, models.StepPending, st.Status)
	}
}

func TestGet_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)

	_, err := tracker.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestUpdate_AdvancesStatusAndSteps(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "job-2", progress.CreateParams{Owner: "alice"}))
	require.NoError(t, tracker.Update(ctx, "job-2", 55, progress.StepExtractFrames))

	rec, err := tracker.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressExtracting, rec.Status)
	assert.Equal(t, 55, rec.Progress)
	assert.Equal(t, progress.StepExtractFrames, rec.CurrentStep)
	assert.Equal(t, models.StepCompleted, rec.Steps["1"].Status)
	assert.Equal(t, models.StepCompleted, rec.Steps["2"].Status)
	assert.Equal(t, models.StepRunning, rec.Steps["3"].Status)
	assert.Equal(t, models.StepPending, rec.Steps["4"].Status)
}

func TestUpdate_PartialDoesNotClobber(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "job-3", progress.CreateParams{Owner: "alice", VideoFilename: "clip.mp4"}))
	require.NoError(t, tracker.Update(ctx, "job-3", 20, progress.StepDownload))

	rec, err := tracker.Get(ctx, "job-3")
	require.NoError(t, err)
	// Fields not mentioned by the update are untouched
	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, "clip.mp4", rec.VideoFilename)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestComplete_Terminal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "job-4", progress.CreateParams{Owner: "alice"}))
	require.NoError(t, tracker.Update(ctx, "job-4", 95, progress.StepUpload))

	transcoded := "transcoded.mp4"
	result := &models.JobResult{Transcoded: &transcoded, FrameCount: 8}
	require.NoError(t, tracker.Complete(ctx, "job-4", result))

	rec, err := tracker.Get(ctx, "job-4")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	assert.True(t, rec.TerminalProgress())
	require.NotNil(t, rec.Result)
	assert.Equal(t, 8, rec.Result.FrameCount)
	for _, st := range rec.Steps {
		assert.Equal(t, models.StepCompleted, st.Status)
	}
}

func TestFail_KeepsProgressMarksStepFailed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "job-5", progress.CreateParams{Owner: "alice"}))
	require.NoError(t, tracker.Update(ctx, "job-5", 40, progress.StepTranscode))
	require.NoError(t, tracker.Fail(ctx, "job-5", "transcode: ffmpeg exited with status 1"))

	rec, err := tracker.Get(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressFailed, rec.Status)
	assert.True(t, rec.TerminalProgress())
	// Progress stays at its last value
	assert.Equal(t, 40, rec.Progress)
	assert.Equal(t, "transcode: ffmpeg exited with status 1", rec.ErrorMessage)
	assert.Equal(t, models.StepFailed, rec.Steps["2"].Status)
	assert.Equal(t, models.StepCompleted, rec.Steps["1"].Status)
}

func TestList_ReturnsPartitionRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tracker := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "job-a", progress.CreateParams{Owner: "alice"}))
	require.NoError(t, tracker.Create(ctx, "job-b", progress.CreateParams{Owner: "alice"}))

	records, err := tracker.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
