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

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "j1"}))
}

func TestQueueProcessesJobs(t *testing.T) {
	var handled int64
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt64(&handled, 1) == 2 {
			close(done)
		}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "NOTIFY"}))
	require.NoError(t, q.Enqueue(Job{ID: "j2", Type: "NOTIFY"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not processed")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	// Let the single worker pick up the first job so the second one
	// occupies the only buffer slot.
	require.NoError(t, q.Enqueue(Job{ID: "j1"}))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "j2"}))

	err := q.Enqueue(Job{ID: "j3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int64
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "NOTIFY"}))

	select {
	case <-done:
		assert.EqualValues(t, 3, atomic.LoadInt64(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to completion")
	}
}
