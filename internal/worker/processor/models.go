package processor

// JobInput is the "input" object of a job envelope.
type JobInput struct {
	URL string `json:"url,omitempty"`
}

// JobRequest is the envelope handed over by the job runner.
type JobRequest struct {
	ID    string   `json:"id"`
	Input JobInput `json:"input"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// JobResult is the uniform answer for every job. Message holds the encoded
// artifact (or its URL) on success and the error text otherwise.
type JobResult struct {
	Status        Status `json:"status"`
	Message       string `json:"message"`
	RefreshWorker bool   `json:"refresh_worker"`
}

// State is a step of the job state machine.
type State string

const (
	StateLoadPipeline State = "LOAD_PIPELINE"
	StateProbeEngine  State = "PROBE_ENGINE"
	StateSubmit       State = "SUBMIT"
	StatePoll         State = "POLL"
	StateResolve      State = "RESOLVE"
	StateSuccess      State = "SUCCESS"
	StateFailed       State = "FAILED"
)
