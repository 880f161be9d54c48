// Package shutdown runs registered cleanup steps when the process is asked
// to stop.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mediabridge/internal/pkg/logger"
)

// Manager runs cleanup handlers once, in reverse registration order.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	handlers []Handler
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
	err      error
}

// Handler is a named cleanup step.
type Handler struct {
	Name    string
	Cleanup func(ctx context.Context) error
}

// NewManager returns a manager whose handlers share one timeout budget.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		log:     log.WithComponent("shutdown"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Cleanup: cleanup})
	m.log.Debug("registered shutdown handler", "name", name)
}

// RegisterSimple registers a cleanup step that cannot fail.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(ctx context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT/SIGTERM/SIGHUP or ctx ends, then shuts down.
func (m *Manager) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		m.log.Info("context canceled, initiating shutdown")
	}
	return m.Shutdown()
}

// Shutdown runs the handlers last-registered first, so a server registered
// after its dependencies stops before they close. Later calls return the
// first result.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		handlers := make([]Handler, len(m.handlers))
		copy(handlers, m.handlers)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.log.Info("starting graceful shutdown", "handlers", len(handlers), "timeout", m.timeout.String())

		var errs []error
		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			if ctx.Err() != nil {
				m.log.Warn("shutdown timeout exceeded, skipping handler", "name", h.Name)
				errs = append(errs, ctx.Err())
				continue
			}

			start := time.Now()
			if err := h.Cleanup(ctx); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.Name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				errs = append(errs, err)
				continue
			}
			m.log.Debug("shutdown handler completed",
				"name", h.Name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}

		m.err = errors.Join(errs...)
		if m.err != nil {
			m.log.Warn("graceful shutdown finished with errors", "error", m.err.Error())
			return
		}
		m.log.Info("graceful shutdown completed")
	})
	return m.err
}

// Done is closed once Shutdown has finished.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Context is canceled once Shutdown has finished.
func (m *Manager) Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-m.done
		cancel()
	}()
	return ctx
}
