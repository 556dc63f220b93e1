package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewProcessorQueue(func(_ context.Context, j Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, j.Path)
		return nil
	}, nil, WithWorkers(3), WithQueueSize(2))

	for _, p := range []string{"a.pdf", "b.pdf", "c.png", "d.jpg", "e.pdf"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.png", "d.jpg", "e.pdf"}, seen)
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)
}

func TestProcessorQueue_JobContext(t *testing.T) {
	var (
		gotID       atomic.Value
		hasDeadline atomic.Bool
		failures    atomic.Int32
	)
	q := NewProcessorQueue(func(ctx context.Context, j Job) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		gotID.Store(common.RequestIDFromContext(ctx))
		if j.Path == "bad.pdf" {
			failures.Add(1)
			return errors.New("boom")
		}
		return nil
	}, nil, WithWorkers(1), WithProcessTimeout(time.Second))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "bad.pdf", TraceID: "trace-1"}))
	q.Shutdown(context.Background())

	assert.True(t, hasDeadline.Load())
	assert.Equal(t, "trace-1", gotID.Load())
	assert.EqualValues(t, 1, failures.Load())
}

func TestProcessorQueue_EnqueueHonoursContext(t *testing.T) {
	release := make(chan struct{})
	q := NewProcessorQueue(func(context.Context, Job) error {
		<-release
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "3"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
}
