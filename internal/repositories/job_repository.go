package repositories

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mediabridge/internal/models"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/worker/processor"
)

// maxStoredMessage bounds bridge_jobs.message.
const maxStoredMessage = 2000

const schema = `
CREATE TABLE IF NOT EXISTS bridge_jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	source_url     TEXT NOT NULL DEFAULT '',
	prompt_id      TEXT,
	message        TEXT,
	refresh_worker BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at    TIMESTAMPTZ
)`

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JobRepository records job progress in Postgres. It satisfies
// processor.Recorder.
type JobRepository struct {
	db DB
}

func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "jobs.schema", "failed to create bridge_jobs")
	}
	return nil
}

// MarkRunning inserts the job, or resets it when the id is retried.
func (r *JobRepository) MarkRunning(ctx context.Context, jobID, sourceURL string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bridge_jobs (id, status, source_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status=EXCLUDED.status, source_url=EXCLUDED.source_url,
		    prompt_id=NULL, message=NULL, finished_at=NULL
	`, jobID, models.JobRunning, sourceURL)
	return err
}

func (r *JobRepository) MarkSubmitted(ctx context.Context, jobID, promptID string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE bridge_jobs SET status=$2, prompt_id=$3 WHERE id=$1
	`, jobID, models.JobSubmitted, promptID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("job", jobID)
	}
	return nil
}

func (r *JobRepository) MarkFinished(ctx context.Context, jobID string, res processor.JobResult) error {
	status := models.JobFailed
	if res.Status == processor.StatusSuccess {
		status = models.JobCompleted
	}

	cmd, err := r.db.Exec(ctx, `
		UPDATE bridge_jobs
		SET status=$2, message=$3, refresh_worker=$4, finished_at=now()
		WHERE id=$1
	`, jobID, status, storedMessage(res), res.RefreshWorker)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("job", jobID)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var (
		j                 models.Job
		promptID, message *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, status, source_url, prompt_id, message, refresh_worker, created_at, finished_at
		FROM bridge_jobs
		WHERE id=$1
	`, id).Scan(&j.ID, &j.Status, &j.SourceURL, &promptID, &message, &j.RefreshWorker, &j.CreatedAt, &j.FinishedAt)
	if err != nil {
		if err == pgx.ErrNoRows || IsUndefinedTable(err) {
			return nil, errors.NotFound("job", id)
		}
		return nil, errors.Wrap(err, "jobs.get", "job lookup failed")
	}
	if promptID != nil {
		j.PromptID = *promptID
	}
	if message != nil {
		j.Message = *message
	}
	return &j, nil
}

// storedMessage keeps error texts and artifact URLs; inline payloads are
// dropped.
func storedMessage(res processor.JobResult) string {
	if res.Status == processor.StatusSuccess {
		if strings.HasPrefix(res.Message, "http://") || strings.HasPrefix(res.Message, "https://") {
			return processor.Truncate(res.Message, maxStoredMessage)
		}
		return ""
	}
	return processor.Truncate(res.Message, maxStoredMessage)
}
