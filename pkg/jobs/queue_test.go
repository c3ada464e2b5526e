package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 1)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "test"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"j1"}, seen)
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "j1"}))
	assert.Error(t, q.EnqueueAfter(Job{ID: "j2"}, time.Minute))
}

func TestEnqueueAfterDefersExecution(t *testing.T) {
	ran := make(chan time.Time, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		ran <- time.Now()
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	start := time.Now()
	delay := 150 * time.Millisecond
	require.NoError(t, q.EnqueueAfter(Job{ID: "deferred"}, delay))

	select {
	case at := <-ran:
		assert.GreaterOrEqual(t, at.Sub(start), delay)
	case <-time.After(2 * time.Second):
		t.Fatal("deferred job did not run")
	}
}

func TestEnqueueAfterZeroDelayRunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		ran <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.EnqueueAfter(Job{ID: "now"}, 0))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestStopCancelsPendingTimers(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		t.Error("deferred job must not run after Stop")
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	require.NoError(t, q.EnqueueAfter(Job{ID: "never"}, time.Hour))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; pending timer was not cancelled")
	}
}

func TestJobTimeoutBoundsHandler(t *testing.T) {
	finished := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	}, QueueConfig{Workers: 1, MaxRetries: 1, JobTimeout: 50 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not cancelled by job timeout")
	}
}

func TestQueueReportsDepth(t *testing.T) {
	var mu sync.Mutex
	var depths []int
	done := make(chan struct{})

	q := NewQueue("depth", func(ctx context.Context, job Job) error {
		close(done)
		return nil
	}, QueueConfig{
		Workers: 1,
		OnDepth: func(d int) {
			mu.Lock()
			depths = append(depths, d)
			mu.Unlock()
		},
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "test"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	// One report on enqueue, one when the worker drains the job.
	require.GreaterOrEqual(t, len(depths), 2)
	assert.Contains(t, depths, 0)
}
