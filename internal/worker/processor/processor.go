package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mediabridge/internal/config"
	v0 "mediabridge/internal/contracts/engine/v0"
	"mediabridge/internal/pipeline"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/pkg/logger"
)

// Engine is the part of the engine client the processor drives.
type Engine interface {
	Probe(ctx context.Context, attempts int, interval time.Duration) bool
	Submit(ctx context.Context, pipeline any) (string, error)
	PollUntilComplete(ctx context.Context, promptID string, attempts int, interval time.Duration) (v0.HistoryEntry, error)
}

const recordTimeout = 5 * time.Second

// Recorder persists job progress. Failures are logged, never fatal.
type Recorder interface {
	MarkRunning(ctx context.Context, jobID, sourceURL string) error
	MarkSubmitted(ctx context.Context, jobID, promptID string) error
	MarkFinished(ctx context.Context, jobID string, res JobResult) error
}

type Deps struct {
	Config   config.Config
	Engine   Engine
	Encoder  Encoder
	Recorder Recorder
	Log      *logger.Logger
}

// Processor runs one job at a time against a single engine and output area.
type Processor struct {
	// mu is held for the whole job, cleanup included: the output area is
	// shared with the engine and purged at the end of every job.
	mu sync.Mutex

	cfg      config.Config
	engine   Engine
	encoder  Encoder
	recorder Recorder
	log      *logger.Logger

	resolver *Resolver
	cleanup  *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	enc := d.Encoder
	if enc == nil {
		enc = InlineEncoder{}
	}
	rec := d.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Processor{
		cfg:      d.Config,
		engine:   d.Engine,
		encoder:  enc,
		recorder: rec,
		log:      log.WithComponent("processor"),
		resolver: NewResolver(d.Config.Output.Dir, d.Config.Output.ArtifactField),
		cleanup:  NewCleanup(d.Config.Output.Dir),
	}
}

// Handle runs job to completion and always returns a result; the output
// area is purged whether the job succeeded or not.
func (p *Processor) Handle(ctx context.Context, job JobRequest) JobResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx = logger.ContextWithJobID(ctx, job.ID)
	log := p.log.FromContext(ctx)
	start := time.Now()

	source := strings.TrimSpace(job.Input.URL)
	if source == "" {
		source = p.cfg.Pipeline.DefaultSourceURL
	}
	if err := p.recorder.MarkRunning(ctx, job.ID, source); err != nil {
		log.Warn("failed to record job start", "error", err.Error())
	}

	message, state, err := p.run(ctx, job.ID, source)

	if removed, cerr := p.cleanup.Purge(); cerr != nil {
		log.Warn("output folder cleanup failed", "error", cerr.Error(), "removed", removed)
	} else {
		log.Debug("output folder cleaned", "removed", removed)
	}

	res := JobResult{RefreshWorker: p.cfg.Runner.RefreshWorker}
	if err != nil {
		res.Status = StatusError
		res.Message = errors.Message(err)
		p.logFailure(log, state, err, time.Since(start))
	} else {
		res.Status = StatusSuccess
		res.Message = message
		log.Info("job completed", "state", string(StateSuccess), "duration_ms", time.Since(start).Milliseconds())
	}

	// The outcome is recorded even when ctx was canceled mid-job.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if rerr := p.recorder.MarkFinished(storeCtx, job.ID, res); rerr != nil {
		log.Warn("failed to record job result", "error", rerr.Error())
	}
	return res
}

// run walks the job state machine. The returned state is the one that failed.
func (p *Processor) run(ctx context.Context, jobID, source string) (message string, state State, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf(errors.CodeInternal, "job handler panic: %v", rec)
		}
	}()

	log := p.log.FromContext(ctx)
	eng := p.cfg.Engine

	state = StateLoadPipeline
	doc, err := pipeline.Load(p.cfg.Pipeline.Path)
	if err != nil {
		return "", state, err
	}
	if err := pipeline.Inject(doc, p.cfg.Pipeline.SourceNodeID, p.cfg.Pipeline.SourceField, source); err != nil {
		return "", state, err
	}
	log.Debug("pipeline prepared", "source", source)

	state = StateProbeEngine
	if !p.engine.Probe(ctx, eng.ProbeAttempts, eng.ProbeInterval()) {
		if eng.AbortOnProbeFailure {
			return "", state, errors.Unavailable("engine").WithField("attempts", eng.ProbeAttempts)
		}
		log.Warn("engine did not answer the health probe, submitting anyway", "attempts", eng.ProbeAttempts)
	}

	state = StateSubmit
	promptID, err := p.engine.Submit(ctx, doc)
	if err != nil {
		return "", state, err
	}
	ctx = logger.ContextWithPromptID(ctx, promptID)
	if rerr := p.recorder.MarkSubmitted(ctx, jobID, promptID); rerr != nil {
		log.Warn("failed to record prompt id", "error", rerr.Error())
	}

	state = StatePoll
	entry, err := p.engine.PollUntilComplete(ctx, promptID, eng.PollAttempts, eng.PollInterval())
	if err != nil {
		return "", state, err
	}

	state = StateResolve
	artifact, err := p.resolver.Resolve(entry.Outputs)
	if err != nil {
		return "", state, err
	}
	p.log.FromContext(ctx).Info("artifact resolved", "path", artifact.Path, "bytes", len(artifact.Data))

	message, err = p.encoder.Encode(ctx, jobID, artifact)
	if err != nil {
		return "", state, err
	}
	return message, StateSuccess, nil
}

func (p *Processor) logFailure(log *logger.Logger, state State, cause error, took time.Duration) {
	args := []any{
		"state", string(StateFailed),
		"failed_state", string(state),
		"duration_ms", took.Milliseconds(),
	}

	var e *errors.Error
	if errors.As(cause, &e) {
		args = append(args, "code", string(e.Code), "op", e.Op, "message", e.Message)
		if e.Err != nil {
			args = append(args, "cause", e.Err.Error())
		}
	} else {
		args = append(args, "error", Truncate(cause.Error(), 2000))
	}
	log.Error("job failed", args...)
}

type nopRecorder struct{}

func (nopRecorder) MarkRunning(context.Context, string, string) error     { return nil }
func (nopRecorder) MarkSubmitted(context.Context, string, string) error   { return nil }
func (nopRecorder) MarkFinished(context.Context, string, JobResult) error { return nil }

// String is used by the CLI when printing a result summary.
func (r JobResult) String() string {
	if r.Status == StatusSuccess {
		return fmt.Sprintf("status=%s message_bytes=%d refresh_worker=%t", r.Status, len(r.Message), r.RefreshWorker)
	}
	return fmt.Sprintf("status=%s message=%q refresh_worker=%t", r.Status, r.Message, r.RefreshWorker)
}
