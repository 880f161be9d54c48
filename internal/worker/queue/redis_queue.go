package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/worker/processor"
)

// Status is the lifecycle of a queued job as reported by /status.
type Status string

const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Record is what the queue keeps about a job under its result key.
type Record struct {
	ID        string               `json:"id"`
	Status    Status               `json:"status"`
	Output    *processor.JobResult `json:"output,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// StatusFor maps a job result to its terminal queue status.
func StatusFor(res processor.JobResult) Status {
	if res.Status == processor.StatusSuccess {
		return StatusCompleted
	}
	return StatusFailed
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
	resultTTL time.Duration
}

func NewRedisQueue(rdb *redis.Client, queueName string, resultTTL time.Duration) *RedisQueue {
	if resultTTL <= 0 {
		resultTTL = time.Hour
	}
	return &RedisQueue{rdb: rdb, queueName: queueName, resultTTL: resultTTL}
}

// ResultKey is the key holding the record of job id.
func (q *RedisQueue) ResultKey(id string) string {
	return q.queueName + ":result:" + id
}

// Push records the job as IN_QUEUE and appends it to the list.
func (q *RedisQueue) Push(ctx context.Context, job processor.JobRequest) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	rec, err := json.Marshal(Record{ID: job.ID, Status: StatusInQueue, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.ResultKey(job.ID), rec, q.resultTTL)
		pipe.LPush(ctx, q.queueName, payload)
		return nil
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "queue.push", "queue push failed")
	}
	return nil
}

// Pop blocks up to timeout for the next job (BRPOP). It returns nil, nil
// when the timeout elapses with an empty queue.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*processor.JobRequest, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return decodeJob(res[1])
}

// SetStatus overwrites the record of id and refreshes its TTL.
func (q *RedisQueue) SetStatus(ctx context.Context, id string, status Status, out *processor.JobResult) error {
	rec, err := json.Marshal(Record{ID: id, Status: status, Output: out, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return q.rdb.Set(ctx, q.ResultKey(id), rec, q.resultTTL).Err()
}

// Get returns the record of id, or a NOT_FOUND error once it expired.
func (q *RedisQueue) Get(ctx context.Context, id string) (Record, error) {
	raw, err := q.rdb.Get(ctx, q.ResultKey(id)).Bytes()
	if err == redis.Nil {
		return Record{}, errors.NotFound("job", id)
	}
	if err != nil {
		return Record{}, errors.WrapWithCode(err, errors.CodeUnavailable, "queue.get", "queue lookup failed")
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode job record %s: %w", id, err)
	}
	return rec, nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func encodeJob(job processor.JobRequest) (string, error) {
	if strings.TrimSpace(job.ID) == "" {
		return "", errors.Validation("job id is required")
	}
	b, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeError is returned by Pop when a payload was taken off the list but
// could not be decoded. ID is set when the job id could still be read.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	if e.ID == "" {
		return "undecodable job payload: " + e.Err.Error()
	}
	return "undecodable job payload " + e.ID + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeJob accepts a job envelope, or a bare id for producers that only
// push ids.
func decodeJob(payload string) (*processor.JobRequest, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &DecodeError{Err: errors.Validation("empty queue payload")}
	}
	if !strings.HasPrefix(payload, "{") {
		return &processor.JobRequest{ID: payload}, nil
	}

	var job processor.JobRequest
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, &DecodeError{
			ID:  envelopeID(payload),
			Err: errors.WrapWithCode(err, errors.CodeValidation, "queue.decode", "invalid job envelope"),
		}
	}
	if job.ID == "" {
		return nil, &DecodeError{Err: errors.Validation("job envelope has no id")}
	}
	return &job, nil
}

// envelopeID reads only the id of an envelope whose other fields are malformed.
func envelopeID(payload string) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &head); err != nil {
		return ""
	}
	return strings.TrimSpace(head.ID)
}
