package handlers

import (
	"context"
	"time"

	"mediabridge/internal/models"
	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

// JobRunner processes a job synchronously.
type JobRunner interface {
	Handle(ctx context.Context, job processor.JobRequest) processor.JobResult
}

// JobQueue accepts jobs for the background consumer and reports their status.
type JobQueue interface {
	Push(ctx context.Context, job processor.JobRequest) error
	Get(ctx context.Context, id string) (queue.Record, error)
	Ping(ctx context.Context) error
}

// JobStore is the Postgres record of jobs.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.Job, error)
}

// EngineProber checks that the pipeline engine answers.
type EngineProber interface {
	Probe(ctx context.Context, attempts int, interval time.Duration) bool
	BaseURL() string
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Runner JobRunner
	Queue  JobQueue
	Jobs   JobStore
	Engine EngineProber
	DB     Pinger

	Storage string
	Version string
	Log     *logger.Logger
}

// Handler serves the job runner API. Queue, Jobs and DB are optional.
type Handler struct {
	runner JobRunner
	queue  JobQueue
	jobs   JobStore
	engine EngineProber
	db     Pinger

	storage string
	version string
	log     *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		runner:  d.Runner,
		queue:   d.Queue,
		jobs:    d.Jobs,
		engine:  d.Engine,
		db:      d.DB,
		storage: d.Storage,
		version: version,
		log:     log.WithComponent("httpapi"),
	}
}

// Log is the handler logger, used by the router for error rendering.
func (h *Handler) Log() *logger.Logger {
	return h.log
}
