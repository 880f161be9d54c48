package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mediabridge/internal/httpapi"
	"mediabridge/internal/httpapi/handlers"
	"mediabridge/internal/pkg/shutdown"
	"mediabridge/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job runner API and consume the Redis queue",
	Long: `Starts the HTTP API (/health, /run, /runsync, /status/{id}) and, when REDIS_ADDR
is set, a queue consumer. Both share one processor, so jobs never overlap.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}

	mgr := shutdown.NewManager(a.log, 30*time.Second)
	a.registerClose(mgr)

	hdeps := handlers.Deps{
		Runner:  a.proc,
		Engine:  a.engine,
		Storage: a.storage,
		Version: version,
		Log:     a.log,
	}
	if a.queue != nil {
		hdeps.Queue = a.queue
	}
	if a.jobs != nil {
		hdeps.Jobs = a.jobs
		hdeps.DB = a.pool
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + a.cfg.Runner.HTTPPort,
		Handler:           httpapi.NewRouter(httpapi.Deps{Handlers: hdeps, AllowedOrigins: a.cfg.Runner.CORSAllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(cmd.Context())

	if a.queue != nil {
		consumerCtx, stopConsumer := context.WithCancel(gctx)
		consumerDone := make(chan struct{})

		g.Go(func() error {
			defer close(consumerDone)
			err := worker.Run(consumerCtx, worker.Deps{Queue: a.queue, Handler: a.proc, Log: a.log})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		mgr.Register("consumer", func(ctx context.Context) error {
			stopConsumer()
			select {
			case <-consumerDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	mgr.Register("http-server", func(ctx context.Context) error {
		a.log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	g.Go(func() error {
		a.log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return mgr.Wait(gctx)
	})

	return g.Wait()
}
