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

func TestQueueProcessesJobs(t *testing.T) {
	var handled int64
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt64(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "noop"}))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&handled) == 5
	}, time.Second, 5*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "early"})
	require.Error(t, err)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int64
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&attempts) >= 3
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt64(&attempts))
}
