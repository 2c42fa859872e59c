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

func TestQueueRunsRegisteredHandler(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Register("cleanup", func(_ context.Context, job Job) error {
		done <- job
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "cleanup", Payload: 42})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, 42, job.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	q := NewQueue("retry", QueueConfig{MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	var calls int32
	done := make(chan struct{})
	q.Register("flaky", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "flaky"})
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueRecoversFromPanic(t *testing.T) {
	q := NewQueue("panics", QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	var calls int32
	done := make(chan struct{})
	q.Register("boom", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		close(done)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "boom"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried after panic")
	}
}

func TestQueueEnqueueErrors(t *testing.T) {
	q := NewQueue("errors", QueueConfig{})
	q.Register("known", func(context.Context, Job) error { return nil })

	_, err := q.Enqueue(Job{Type: "known"})
	assert.ErrorIs(t, err, ErrNotStarted)

	q.Start(context.Background())
	defer q.Stop()

	_, err = q.Enqueue(Job{Type: "unknown"})
	assert.Error(t, err)
}
