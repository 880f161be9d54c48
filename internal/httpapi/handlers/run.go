package handlers

import (
	"net/http"
	"strings"

	"mediabridge/internal/httpkit"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
	"mediabridge/internal/worker/util"
)

// RunResponse is returned by /run and /runsync.
type RunResponse struct {
	ID     string               `json:"id"`
	Status queue.Status         `json:"status"`
	Output *processor.JobResult `json:"output,omitempty"`
}

func decodeJob(r *http.Request) (processor.JobRequest, error) {
	var job processor.JobRequest
	if err := httpkit.DecodeJSON(r, &job); err != nil {
		return job, errors.WrapWithCode(err, errors.CodeBadRequest, "httpapi.decode", "invalid json body")
	}
	job.ID = strings.TrimSpace(job.ID)
	if job.ID == "" {
		job.ID = util.NewJobID()
	}
	return job, nil
}

// Run enqueues a job for the background consumer.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) error {
	if h.queue == nil {
		return errors.Unavailable("job queue")
	}

	job, err := decodeJob(r)
	if err != nil {
		return err
	}
	if err := h.queue.Push(r.Context(), job); err != nil {
		return err
	}

	h.log.FromContext(r.Context()).Info("job queued", "job_id", job.ID)
	httpkit.WriteJSON(w, http.StatusOK, RunResponse{ID: job.ID, Status: queue.StatusInQueue})
	return nil
}

// RunSync processes a job inline and returns its result. Job failures are
// reported in the body with status FAILED, not as HTTP errors.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) error {
	job, err := decodeJob(r)
	if err != nil {
		return err
	}

	res := h.runner.Handle(r.Context(), job)
	httpkit.WriteJSON(w, http.StatusOK, RunResponse{ID: job.ID, Status: queue.StatusFor(res), Output: &res})
	return nil
}
