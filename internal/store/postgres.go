package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"looprender/internal/jobs"
	"looprender/internal/pkg/errors"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id        TEXT PRIMARY KEY,
	client_job_id TEXT,
	template      TEXT NOT NULL,
	params        JSONB,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ,
	error         TEXT NOT NULL DEFAULT '',
	result        JSONB
);
CREATE UNIQUE INDEX IF NOT EXISTS jobs_client_job_id_uq ON jobs (client_job_id) WHERE client_job_id <> '';
`

// Postgres persists job records in a single jobs table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and ensures the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, jobsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure jobs schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Create(ctx context.Context, job *jobs.Job) error {
	params, result, err := marshalJSONCols(job)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, client_job_id, template, params, status, created_at, started_at, finished_at, error, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.JobID, job.ClientJobID, job.Template, params, string(job.Status),
		job.CreatedAt, job.StartedAt, job.FinishedAt, job.Error, result,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// CreateOrFind leans on the partial unique index over client_job_id:
// the losing insert of a race hits ON CONFLICT DO NOTHING and re-reads
// the winner's record.
func (p *Postgres) CreateOrFind(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error) {
	if job.ClientJobID == "" {
		if err := p.Create(ctx, job); err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	params, result, err := marshalJSONCols(job)
	if err != nil {
		return nil, false, err
	}

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, client_job_id, template, params, status, created_at, started_at, finished_at, error, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (client_job_id) WHERE client_job_id <> '' DO NOTHING`,
		job.JobID, job.ClientJobID, job.Template, params, string(job.Status),
		job.CreatedAt, job.StartedAt, job.FinishedAt, job.Error, result,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return job, true, nil
	}

	existing, err := p.FindByClientJobID(ctx, job.ClientJobID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("clientJobId %s conflicted but no record found", job.ClientJobID)
	}
	return existing, false, nil
}

func (p *Postgres) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT job_id, client_job_id, template, params, status, created_at, started_at, finished_at, error, result
		FROM jobs WHERE job_id = $1`, jobID)
	return scanJob(row, jobID)
}

func (p *Postgres) FindByClientJobID(ctx context.Context, clientJobID string) (*jobs.Job, error) {
	if clientJobID == "" {
		return nil, nil
	}

	// The partial unique index guarantees at most one match.
	row := p.pool.QueryRow(ctx, `
		SELECT job_id, client_job_id, template, params, status, created_at, started_at, finished_at, error, result
		FROM jobs WHERE client_job_id = $1`, clientJobID)

	job, err := scanJob(row, "")
	if errors.IsJobNotFound(err) {
		return nil, nil
	}
	return job, err
}

func (p *Postgres) Update(ctx context.Context, jobID string, mutate func(*jobs.Job) error) (*jobs.Job, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT job_id, client_job_id, template, params, status, created_at, started_at, finished_at, error, result
		FROM jobs WHERE job_id = $1 FOR UPDATE`, jobID)

	job, err := scanJob(row, jobID)
	if err != nil {
		return nil, err
	}

	if err := mutate(job); err != nil {
		return nil, err
	}

	// Params and identity columns are immutable after Create; only the
	// lifecycle columns are written back.
	var result []byte
	if job.Result != nil {
		result, err = json.Marshal(job.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs SET status = $2, started_at = $3, finished_at = $4, error = $5, result = $6
		WHERE job_id = $1`,
		job.JobID, string(job.Status), job.StartedAt, job.FinishedAt, job.Error, result,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return job, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, jobID string) (*jobs.Job, error) {
	var (
		job            jobs.Job
		status         string
		params, result []byte
		started        *time.Time
		finished       *time.Time
	)

	err := row.Scan(&job.JobID, &job.ClientJobID, &job.Template, &params, &status,
		&job.CreatedAt, &started, &finished, &job.Error, &result)
	if err == pgx.ErrNoRows {
		return nil, errors.JobNotFound(jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = jobs.Status(status)
	job.StartedAt = started
	job.FinishedAt = finished
	job.Links = jobs.Links{Self: "/v1/jobs/" + job.JobID}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if len(result) > 0 {
		var r jobs.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &r
	}
	return &job, nil
}

func marshalJSONCols(job *jobs.Job) (params, result []byte, err error) {
	if job.Params != nil {
		params, err = json.Marshal(job.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal params: %w", err)
		}
	}
	if job.Result != nil {
		result, err = json.Marshal(job.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return params, result, nil
}
