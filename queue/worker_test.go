package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

func TestWorker_ProcessesAndAcks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	processed := make(chan *Job, 1)
	worker := NewWorker(store, "q", func(_ context.Context, job *Job) error {
		processed <- job
		return nil
	}, WorkerOptions{})
	worker.Run()
	defer worker.Stop(ctx)

	q := New(store, "q", JobOptions{})
	id, err := q.Add(ctx, "payload")
	require.NoError(t, err)

	select {
	case job := <-processed:
		assert.Equal(t, id, job.ID)
	case <-time.After(time.Second):
		t.Fatal("job was not processed")
	}

	waitFor(t, time.Second, func() bool {
		return store.JobCounts("q").Completed == 1
	})
}

func TestWorker_RetriesUntilMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var attempts atomic.Int32
	worker := NewWorker(store, "q", func(context.Context, *Job) error {
		attempts.Add(1)
		return errors.New("send failed")
	}, WorkerOptions{})
	worker.Run()
	defer worker.Stop(ctx)

	q := New(store, "q", JobOptions{MaxAttempts: 3})
	_, err := q.Add(ctx, "payload")
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		return store.JobCounts("q").Failed == 1
	})
	assert.Equal(t, int32(3), attempts.Load())

	failed := store.FinishedJobs("q", StatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Attempts)
}

func TestWorker_RecoversFromProcessorPanic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	worker := NewWorker(store, "q", func(context.Context, *Job) error {
		panic("boom")
	}, WorkerOptions{})
	worker.Run()
	defer worker.Stop(ctx)

	q := New(store, "q", JobOptions{})
	_, err := q.Add(ctx, "payload")
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool {
		return store.JobCounts("q").Failed == 1
	})
}

func TestWorker_RateLimiterSpacesJobs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const per = 60 * time.Millisecond
	done := make(chan time.Time, 3)
	worker := NewWorker(store, "q", func(context.Context, *Job) error {
		done <- time.Now()
		return nil
	}, WorkerOptions{Limiter: &RateLimit{Max: 1, Per: per}})

	q := New(store, "q", JobOptions{})
	for i := 0; i < 3; i++ {
		_, err := q.Add(ctx, i)
		require.NoError(t, err)
	}

	start := time.Now()
	worker.Run()
	defer worker.Stop(ctx)

	var last time.Time
	for i := 0; i < 3; i++ {
		select {
		case last = <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs were not processed")
		}
	}

	// Three jobs at one per window need at least two full windows
	// after the initial burst.
	assert.GreaterOrEqual(t, last.Sub(start), 2*per-10*time.Millisecond)
}

func TestWorker_StopIsCooperative(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	worker := NewWorker(store, "q", func(context.Context, *Job) error {
		close(started)
		<-release
		return nil
	}, WorkerOptions{})
	worker.Run()

	q := New(store, "q", JobOptions{})
	_, err := q.Add(ctx, "payload")
	require.NoError(t, err)

	<-started

	// The claimed job is still in flight: Stop with a short deadline
	// times out instead of interrupting it.
	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.Error(t, worker.Stop(shortCtx))

	close(release)
	require.NoError(t, worker.Stop(context.Background()))

	// The in-flight job finished and was acknowledged.
	waitFor(t, time.Second, func() bool {
		return store.JobCounts("q").Completed == 1
	})

	// No new jobs are claimed after Stop.
	_, err = q.Add(ctx, "late")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.JobCounts("q").Waiting)
}
