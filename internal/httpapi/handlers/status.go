package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediabridge/internal/httpkit"
	"mediabridge/internal/models"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

// Status returns the queue record of a job, falling back to the job store
// once the record expired.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "jobId"))
	if id == "" {
		return errors.Validation("job id is required")
	}

	if h.queue != nil {
		rec, err := h.queue.Get(ctx, id)
		if err == nil {
			httpkit.WriteJSON(w, http.StatusOK, rec)
			return nil
		}
		if !errors.IsCode(err, errors.CodeNotFound) || h.jobs == nil {
			return err
		}
	}

	if h.jobs == nil {
		return errors.NotFound("job", id)
	}
	job, err := h.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, recordFromJob(job))
	return nil
}

func recordFromJob(j *models.Job) map[string]any {
	status := queue.StatusInProgress
	var out *processor.JobResult

	switch j.Status {
	case models.JobCompleted, models.JobFailed:
		res := processor.JobResult{Status: processor.StatusSuccess, Message: j.Message, RefreshWorker: j.RefreshWorker}
		status = queue.StatusCompleted
		if j.Status == models.JobFailed {
			res.Status = processor.StatusError
			status = queue.StatusFailed
		}
		out = &res
	}

	body := map[string]any{
		"id":         j.ID,
		"status":     status,
		"prompt_id":  j.PromptID,
		"created_at": j.CreatedAt,
	}
	if out != nil {
		body["output"] = out
		body["finished_at"] = j.FinishedAt
	}
	return body
}
