package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a transiently failing job
	MaxRetries = 3

	// ClaimBatchSize bounds how many jobs one poll cycle claims
	ClaimBatchSize = 10
)

// EvaluationJobRepository defines the interface for evaluation job persistence
type EvaluationJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.EvaluationJob, error)
	SaveResult(ctx context.Context, id string, result *domain.ApplicationResult) error
	UpdateStatus(ctx context.Context, id string, status domain.EvaluationJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
	Requeue(ctx context.Context, id string, errMsg string) error
}

// UploadRepository looks up stored upload metadata.
type UploadRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
}

// UploadStore fetches the raw bytes of a stored upload.
type UploadStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor produces plain text from a document file.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// ApplicationEvaluator runs the full screening pipeline for one application.
type ApplicationEvaluator interface {
	EvaluateApplication(ctx context.Context, cvText, projectText, jobTitle string) (*domain.ApplicationResult, error)
}

// EvaluationWorker processes queued evaluation jobs: it loads the candidate's
// uploaded documents, extracts their text, runs the evaluation pipeline, and
// persists the result.
type EvaluationWorker struct {
	repo      EvaluationJobRepository
	uploads   UploadRepository
	store     UploadStore
	extractor TextExtractor
	evaluator ApplicationEvaluator
}

// NewEvaluationWorker creates a new EvaluationWorker instance
func NewEvaluationWorker(
	repo EvaluationJobRepository,
	uploads UploadRepository,
	store UploadStore,
	extractor TextExtractor,
	evaluator ApplicationEvaluator,
) *EvaluationWorker {
	return &EvaluationWorker{
		repo:      repo,
		uploads:   uploads,
		store:     store,
		extractor: extractor,
		evaluator: evaluator,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EvaluationWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending evaluation jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *EvaluationWorker) processJob(ctx context.Context, job *domain.EvaluationJob) error {
	ctx, span := telemetry.StartSpan(ctx, "EvaluationWorker.ProcessJob", telemetry.SpanAttributes{
		JobID:     job.ID,
		Operation: "evaluate",
	})
	defer span.End()

	log.Printf("Processing job %s (cv %s, report %s)", job.ID, job.CVID, job.ReportID)

	cvText, err := w.loadUploadText(ctx, job.CVID)
	if err != nil {
		err = fmt.Errorf("cv %s: %w", job.CVID, err)
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	projectText, err := w.loadUploadText(ctx, job.ReportID)
	if err != nil {
		err = fmt.Errorf("report %s: %w", job.ReportID, err)
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	telemetry.AddBreadcrumb(ctx, "evaluation", fmt.Sprintf("extracted documents for job %s", job.ID))

	result, err := w.evaluator.EvaluateApplication(ctx, cvText, projectText, job.JobTitle)
	if err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.SaveResult(ctx, job.ID, result); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to save result: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure requeues jobs that failed transiently and still have retry
// budget; everything else is marked failed. Structural failures (bad model
// output, missing uploads) never succeed on retry, so they fail immediately.
func (w *EvaluationWorker) handleJobFailure(ctx context.Context, job *domain.EvaluationJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	var provErr *domain.ProviderError
	retryable := errors.As(jobErr, &provErr) && provErr.Transient()

	if !retryable || job.Retries+1 >= MaxRetries {
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.EvaluationJobStatusFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.Requeue(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}

// loadUploadText fetches an upload's bytes and extracts plain text from them.
// The bytes land in a temp file so format-aware extraction can run on a path.
func (w *EvaluationWorker) loadUploadText(ctx context.Context, uploadID string) (string, error) {
	upload, err := w.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return "", err
	}

	reader, err := w.store.Get(ctx, upload.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch upload bytes: %w", err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "talentsift-*"+filepath.Ext(upload.Filename))
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return w.extractor.ExtractText(tmp.Name())
}
