package handlers

import (
	"context"
	"net/http"
	"time"

	"mediabridge/internal/httpkit"
)

// Health reports liveness. With ?deep=true it also checks the engine and
// the configured backing services.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{
		"status":  "ok",
		"service": "mediabridge",
		"version": h.version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				h.log.FromContext(ctx).Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := map[string]map[string]any{
		"engine":  h.checkEngine(ctx),
		"storage": {"status": "ok", "provider": h.storage},
	}
	if h.queue != nil {
		checks["redis"] = timedCheck(ctx, h.queue.Ping)
	}
	if h.db != nil {
		checks["postgres"] = timedCheck(ctx, h.db.Ping)
	}
	return checks
}

func (h *Handler) checkEngine(ctx context.Context) map[string]any {
	result := map[string]any{"status": "ok", "url": h.engine.BaseURL()}
	start := time.Now()
	if !h.engine.Probe(ctx, 1, 0) {
		result["status"] = "error"
		result["error"] = "engine did not answer"
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func timedCheck(ctx context.Context, ping func(context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
