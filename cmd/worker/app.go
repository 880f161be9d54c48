package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mediabridge/internal/config"
	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/pkg/shutdown"
	"mediabridge/internal/repositories"
	"mediabridge/internal/storage"
	"mediabridge/internal/worker/engine"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    config.Config
	log    *logger.Logger
	engine *engine.HTTPClient
	proc   *processor.Processor

	// optional backing services
	rdb   *redis.Client
	queue *queue.RedisQueue
	pool  *pgxpool.Pool
	jobs  *repositories.JobRepository

	storage string
}

type appOptions struct {
	requireQueue bool
	// logToStderr keeps stdout free for command output.
	logToStderr bool
}

// newApp loads the configuration and connects what it names. Redis and
// Postgres are only dialed when REDIS_ADDR / DATABASE_URL are set; the
// processor works without them.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if opts.logToStderr {
		cfg.Log.Output = os.Stderr
	}
	log := logger.New(cfg.Log)
	a := &app{cfg: cfg, log: log, storage: cfg.Storage.Provider}

	if opts.requireQueue && cfg.Queue.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required for this command")
	}

	if cfg.Queue.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.queue = queue.NewRedisQueue(a.rdb, cfg.Queue.Name, cfg.Queue.ResultTTL())
		log.Info("redis connected", "addr", cfg.Queue.RedisAddr, "queue", cfg.Queue.Name)
	}

	if cfg.DatabaseURL != "" {
		a.pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := a.pool.Ping(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		a.jobs = repositories.NewJobRepository(a.pool)
		if err := a.jobs.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		log.Info("postgres connected")
	}

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a.engine = engine.NewHTTPClient(cfg.EngineBaseURL(), engine.WithLogger(log))

	deps := processor.Deps{
		Config:  cfg,
		Engine:  a.engine,
		Encoder: processor.NewEncoder(sp),
		Log:     log,
	}
	if a.jobs != nil {
		deps.Recorder = a.jobs
	}
	a.proc = processor.New(deps)

	log.Info("bridge configured",
		"engine", cfg.EngineBaseURL(),
		"pipeline", cfg.Pipeline.Path,
		"output_dir", cfg.Output.Dir,
		"storage", cfg.Storage.Provider,
		"version", version,
	)
	return a, nil
}

// registerClose hands the connections to mgr; they close after anything
// registered later.
func (a *app) registerClose(mgr *shutdown.Manager) {
	if a.pool != nil {
		mgr.RegisterSimple("postgres", a.pool.Close)
	}
	if a.rdb != nil {
		mgr.Register("redis", func(context.Context) error { return a.rdb.Close() })
	}
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
