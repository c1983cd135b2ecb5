package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/framemill/internal/store"
	"github.com/kiranshivaraju/framemill/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("framemill_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// seedJob inserts a queued job row the way the enqueue path does.
func seedJob(t *testing.T, s store.Store, owner string) *models.Job {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &models.Job{
		JobID:          uuid.NewString(),
		Owner:          owner,
		Status:         models.JobStatusQueued,
		InputObjectKey: "uploads/" + uuid.NewString() + "_clip.mp4",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

// --- Video Tests ---

func TestVideo_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	video := &models.Video{
		Filename:  "clip.mp4",
		Owner:     "alice",
		ObjectKey: "uploads/abc_clip.mp4",
		ObjectURL: "http://localhost:9000/framemill-media/uploads/abc_clip.mp4",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, s.CreateVideo(ctx, video))
	require.NotZero(t, video.ID)

	got, err := s.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", got.Filename)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, video.ObjectKey, got.ObjectKey)
}

func TestVideo_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetVideo(context.Background(), 999999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Job Tests ---

func TestJob_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, "alice")

	got, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, models.JobStatusQueued, got.Status)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.OutputObjectKey)
	assert.False(t, got.Terminal())
}

func TestJob_CreateDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	job := seedJob(t, s, "alice")

	dup := *job
	err := s.CreateJob(context.Background(), &dup)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestJob_GetForOwner(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, "alice")

	got, err := s.GetJobForOwner(ctx, job.JobID, "alice")
	require.NoError(t, err)
	assert.Equal(t, job.JobID, got.JobID)

	_, err = s.GetJobForOwner(ctx, job.JobID, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	seedJob(t, s, "alice")
	seedJob(t, s, "alice")
	bobJob := seedJob(t, s, "bob")

	jobs, total, err := s.ListJobs(ctx, store.JobFilter{Owner: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, jobs, 2)

	jobs, total, err = s.ListJobs(ctx, store.JobFilter{Owner: "bob", Status: models.JobStatusQueued})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, bobJob.JobID, jobs[0].JobID)

	_, total, err = s.ListJobs(ctx, store.JobFilter{Status: models.JobStatusDone})
	require.NoError(t, err)
	assert.Zero(t, total)
}

// --- Finalize Tests ---

func TestFinalizeJob_Done(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, "alice")

	transcoded := "transcoded.mp4"
	outputKey := "transcoded/" + job.JobID + "/transcoded.mp4"
	thumbKey := "thumbnails/" + job.JobID + "/thumbnail.jpg"
	result := &models.JobResult{
		Transcoded: &transcoded,
		FrameCount: 8,
		Inference: []models.FrameInference{
			{Frame: "frame_00001.jpg", Labels: []models.Label{{Index: 1, Label: "goldfish", Probability: 0.93}}},
		},
	}

	err := s.FinalizeJob(ctx, job.JobID, store.FinalizeParams{
		Status:             models.JobStatusDone,
		Result:             result,
		OutputObjectKey:    &outputKey,
		ThumbnailObjectKey: &thumbKey,
	})
	require.NoError(t, err)

	got, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, got.Status)
	assert.True(t, got.Terminal())
	require.NotNil(t, got.Result)
	assert.Equal(t, 8, got.Result.FrameCount)
	require.Len(t, got.Result.Inference, 1)
	assert.Equal(t, "goldfish", got.Result.Inference[0].Labels[0].Label)
	require.NotNil(t, got.OutputObjectKey)
	assert.Equal(t, outputKey, *got.OutputObjectKey)
}

func TestFinalizeJob_Failed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, "alice")

	msg := "transcode: ffmpeg exited with status 1"
	err := s.FinalizeJob(ctx, job.JobID, store.FinalizeParams{
		Status:       models.JobStatusFailed,
		ErrorMessage: &msg,
	})
	require.NoError(t, err)

	got, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
	assert.Nil(t, got.Result)
}

func TestFinalizeJob_RepeatedIdenticalIsNoOp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	job := seedJob(t, s, "alice")

	transcoded := "transcoded.mp4"
	params := store.FinalizeParams{
		Status: models.JobStatusDone,
		Result: &models.JobResult{Transcoded: &transcoded, FrameCount: 3},
	}

	require.NoError(t, s.FinalizeJob(ctx, job.JobID, params))
	first, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)

	// Redelivered job finalizes again with the same data
	require.NoError(t, s.FinalizeJob(ctx, job.JobID, params))
	second, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Result, second.Result)
}

func TestFinalizeJob_InvalidStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	job := seedJob(t, s, "alice")

	err := s.FinalizeJob(context.Background(), job.JobID, store.FinalizeParams{Status: "processing"})
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
}

func TestFinalizeJob_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.FinalizeJob(context.Background(), "no-such-job", store.FinalizeParams{
		Status: models.JobStatusFailed,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
