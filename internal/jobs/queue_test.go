package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *TranslationJob, func(int, int)) error { return nil }

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(2)

	jobA, createdA := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "sess1|es",
	})
	jobB, createdB := q.Enqueue(EnqueueRequest{
		Source:    "api",
		DedupeKey: "sess1|es",
	})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1)

	var attempts int32
	q.Start(func(context.Context, *TranslationJob, func(int, int)) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return assert.AnError
		}
		return nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	got, _ := q.Get(first.ID)
	assert.Equal(t, assert.AnError.Error(), got.Error)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	require.Eventually(t, func() bool {
		got, ok := q.Get(second.ID)
		return ok && got != nil && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_Enqueue_AllowsRetryAfterSuccess(t *testing.T) {
	q := NewQueue(1)
	q.Start(noop)
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestQueue_Cancel_Pending(t *testing.T) {
	q := NewQueue(1)

	job, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "k"})
	canceled, err := q.Cancel(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	// The dedupe key is free again.
	_, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "k"})
	assert.True(t, created)

	var ran int32
	q.Start(func(_ context.Context, j *TranslationJob, _ func(int, int)) error {
		if j.ID == job.ID {
			atomic.AddInt32(&ran, 1)
		}
		return nil
	})
	defer q.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
	got, _ := q.Get(job.ID)
	assert.Equal(t, StatusCanceled, got.Status)
}

func TestQueue_Cancel_Running(t *testing.T) {
	q := NewQueue(1)
	started := make(chan struct{})
	q.Start(func(ctx context.Context, _ *TranslationJob, _ func(int, int)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job did not start")
	}

	_, err := q.Cancel(job.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusCanceled
	}, time.Second, 10*time.Millisecond)

	_, err = q.Cancel(job.ID)
	assert.ErrorIs(t, err, ErrJobFinished)
	_, err = q.Cancel("job-999")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestQueue_Stop_CancelsRunningJobs(t *testing.T) {
	q := NewQueue(1)
	started := make(chan struct{})
	var ctxErr atomic.Value
	q.Start(func(ctx context.Context, _ *TranslationJob, _ func(int, int)) error {
		close(started)
		<-ctx.Done()
		ctxErr.Store(ctx.Err())
		return ctx.Err()
	})

	q.Enqueue(EnqueueRequest{Source: "manual"})
	<-started

	done := make(chan struct{})
	go func() {
		q.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	err, _ := ctxErr.Load().(error)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQueue_List_NewestFirst(t *testing.T) {
	q := NewQueue(1)
	a, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "a"})
	b, _ := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "b"})

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestQueue_PrunesOldestTerminalJobs(t *testing.T) {
	q := NewQueue(1)
	q.maxJobs = 2
	q.Start(noop)
	defer q.Stop()

	var last *TranslationJob
	for range 4 {
		job, _ := q.Enqueue(EnqueueRequest{Source: "manual"})
		require.Eventually(t, func() bool {
			got, ok := q.Get(job.ID)
			return ok && got.Status == StatusSuccess
		}, time.Second, 5*time.Millisecond)
		last = job
	}

	assert.LessOrEqual(t, len(q.List()), 2)
	_, ok := q.Get(last.ID)
	assert.True(t, ok)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
}
