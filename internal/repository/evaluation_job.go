package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/talentsift/internal/domain"
)

type EvaluationJobRepository struct {
	db dbtx
}

func NewEvaluationJobRepository(pool *pgxpool.Pool) *EvaluationJobRepository {
	return &EvaluationJobRepository{db: pool}
}

func NewEvaluationJobRepositoryWithTx(tx pgx.Tx) *EvaluationJobRepository {
	return &EvaluationJobRepository{db: tx}
}

func (r *EvaluationJobRepository) Create(ctx context.Context, job *domain.EvaluationJob) error {
	if err := domain.ValidateEvaluationJob(job); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO evaluation_jobs (id, cv_id, report_id, job_title, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.CVID, job.ReportID, job.JobTitle, job.Status,
		job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *EvaluationJobRepository) GetByID(ctx context.Context, id string) (*domain.EvaluationJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, cv_id, report_id, job_title, status, result, retries, error, created_at, processed_at
		 FROM evaluation_jobs WHERE id = $1`,
		id,
	)
	job, err := scanEvaluationJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEvaluationJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending atomically moves up to limit queued jobs to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// job twice.
func (r *EvaluationJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EvaluationJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM evaluation_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE evaluation_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE evaluation_jobs.id = cte.id
		 RETURNING evaluation_jobs.id, evaluation_jobs.cv_id, evaluation_jobs.report_id,
		           evaluation_jobs.job_title, evaluation_jobs.status, evaluation_jobs.result,
		           evaluation_jobs.retries, evaluation_jobs.error,
		           evaluation_jobs.created_at, evaluation_jobs.processed_at`,
		domain.EvaluationJobStatusQueued, limit, domain.EvaluationJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.EvaluationJob
	for rows.Next() {
		job, err := scanEvaluationJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *EvaluationJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EvaluationJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.EvaluationJobStatusCompleted || status == domain.EvaluationJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEvaluationJobNotFound
	}
	return nil
}

// SaveResult stores the evaluation outcome and marks the job completed in one
// statement, so readers never observe a completed job without its result.
func (r *EvaluationJobRepository) SaveResult(ctx context.Context, id string, result *domain.ApplicationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs
		 SET status = $1, result = $2, error = NULL, processed_at = $3
		 WHERE id = $4`,
		domain.EvaluationJobStatusCompleted, payload, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEvaluationJobNotFound
	}
	return nil
}

func (r *EvaluationJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEvaluationJobNotFound
	}
	return nil
}

// Requeue returns a processing job to the queue so another attempt can pick
// it up.
func (r *EvaluationJobRepository) Requeue(ctx context.Context, id string, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE evaluation_jobs SET status = $1, error = $2 WHERE id = $3`,
		domain.EvaluationJobStatusQueued, nullableString(errMsg), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEvaluationJobNotFound
	}
	return nil
}

func scanEvaluationJob(row pgx.Row) (*domain.EvaluationJob, error) {
	var job domain.EvaluationJob
	var jobTitle, errMsg pgtype.Text
	var result []byte
	err := row.Scan(&job.ID, &job.CVID, &job.ReportID, &jobTitle, &job.Status,
		&result, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if jobTitle.Valid {
		job.JobTitle = jobTitle.String
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if len(result) > 0 {
		var r domain.ApplicationResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, err
		}
		job.Result = &r
	}
	return &job, nil
}
