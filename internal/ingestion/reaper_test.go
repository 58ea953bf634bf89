package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bacmr/maktaba/internal/models"
)

func TestReaperPausesStalledJob(t *testing.T) {
	store := newFakeStore()
	stale := time.Now().Add(-time.Hour)
	store.jobs["job-stalled"] = &models.IngestionJob{
		ID:              "job-stalled",
		DocumentID:      "doc-x",
		Status:          models.JobStatusRunning,
		LastHeartbeatAt: &stale,
		CreatedAt:       time.Now().Add(-2 * time.Hour),
	}

	reaper := NewStallReaper(store, nil, 20*time.Millisecond, 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Run(ctx)

	waitFor(t, func() bool {
		j, _ := store.GetIngestionJob(context.Background(), "job-stalled")
		return j.Status == models.JobStatusPaused
	})

	job, _ := store.GetIngestionJob(context.Background(), "job-stalled")
	require.Contains(t, job.ErrorMessage, "no heartbeat")
}

func TestReaperLeavesHealthyJobAlone(t *testing.T) {
	store := newFakeStore()
	fresh := time.Now()
	store.jobs["job-live"] = &models.IngestionJob{
		ID:              "job-live",
		DocumentID:      "doc-y",
		Status:          models.JobStatusRunning,
		LastHeartbeatAt: &fresh,
		CreatedAt:       time.Now(),
	}

	reaper := NewStallReaper(store, nil, 20*time.Millisecond, 10*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	reaper.Run(ctx)

	job, _ := store.GetIngestionJob(context.Background(), "job-live")
	require.Equal(t, models.JobStatusRunning, job.Status)
}

func TestReaperRequeueRoundTrip(t *testing.T) {
	store := newFakeStore()
	stale := time.Now().Add(-time.Hour)
	store.jobs["job-r"] = &models.IngestionJob{
		ID:              "job-r",
		DocumentID:      "doc-z",
		Status:          models.JobStatusRunning,
		LastHeartbeatAt: &stale,
		CreatedAt:       time.Now().Add(-2 * time.Hour),
		NextChunkIndex:  7,
	}

	n, err := store.MarkStalledJobs(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	job, err := store.RequeueJob(context.Background(), "job-r")
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, models.JobStatusQueued, job.Status)
	require.Empty(t, job.ErrorMessage)
	// The resume checkpoint survives the pause/requeue cycle.
	require.Equal(t, 7, job.NextChunkIndex)
}
