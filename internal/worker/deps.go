package worker

import (
	"context"
	"time"

	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

// JobQueue is the part of queue.RedisQueue the consumer uses.
type JobQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (*processor.JobRequest, error)
	SetStatus(ctx context.Context, id string, status queue.Status, out *processor.JobResult) error
}

// JobHandler runs one job to completion.
type JobHandler interface {
	Handle(ctx context.Context, job processor.JobRequest) processor.JobResult
}

type Deps struct {
	Queue   JobQueue
	Handler JobHandler
	Log     *logger.Logger

	// PopTimeout bounds each BRPOP so cancellation is noticed. Defaults to 5s.
	PopTimeout time.Duration
	// RetryDelay is the pause after a queue error. Defaults to 1s.
	RetryDelay time.Duration
}
