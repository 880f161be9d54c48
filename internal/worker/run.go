package worker

import (
	"context"
	"time"

	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/worker/engine"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

// Run consumes jobs until ctx is canceled. Each job result is stored back
// on the queue under the job's result key.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	popTimeout := d.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	retryDelay := d.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	log.Info("worker started", "pop_timeout", popTimeout.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		job, err := d.Queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			var derr *queue.DecodeError
			if errors.As(err, &derr) {
				dropUndecodable(ctx, d, log, derr)
				continue
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			if err := engine.Sleep(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}
		if job == nil {
			continue
		}

		processOne(ctx, d, log, *job)
	}
}

func processOne(ctx context.Context, d Deps, log *logger.Logger, job processor.JobRequest) {
	jobLog := log.WithJobID(job.ID)
	jobLog.Info("processing job")

	if err := d.Queue.SetStatus(ctx, job.ID, queue.StatusInProgress, nil); err != nil {
		jobLog.Warn("failed to mark job in progress", "error", err.Error())
	}

	start := time.Now()
	res := d.Handler.Handle(ctx, job)

	// The result is stored even when ctx was canceled mid-job.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.Queue.SetStatus(storeCtx, job.ID, queue.StatusFor(res), &res); err != nil {
		jobLog.Error("failed to store job result", "error", err.Error())
	}

	jobLog.Info("job finished",
		"status", string(res.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// dropUndecodable fails a payload the queue could not decode. The payload
// is already off the list, so it is never retried.
func dropUndecodable(ctx context.Context, d Deps, log *logger.Logger, derr *queue.DecodeError) {
	log.Error("dropping undecodable job", "error", derr.Error(), "job_id", derr.ID)
	if derr.ID == "" {
		return
	}
	res := processor.JobResult{Status: processor.StatusError, Message: errors.Message(derr)}
	if err := d.Queue.SetStatus(ctx, derr.ID, queue.StatusFailed, &res); err != nil {
		log.Warn("failed to mark undecodable job failed", "job_id", derr.ID, "error", err.Error())
	}
}
