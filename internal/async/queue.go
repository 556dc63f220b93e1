package async

import (
	"context"
	"time"
)

// Job is one document waiting for extraction.
type Job struct {
	Path        string
	Force       bool // re-extract even if identical bytes were seen before
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes one job. Errors are logged by the queue.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
