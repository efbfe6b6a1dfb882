package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentsift/talentsift/internal/domain"
)

// EvaluationJobStore persists evaluation jobs.
type EvaluationJobStore interface {
	Create(ctx context.Context, job *domain.EvaluationJob) error
	GetByID(ctx context.Context, id string) (*domain.EvaluationJob, error)
}

// ScreeningService accepts evaluation requests against previously uploaded
// documents and exposes their results. The evaluation itself runs
// asynchronously in the job worker.
type ScreeningService struct {
	jobs    EvaluationJobStore
	uploads UploadRepo
}

// NewScreeningService creates a new ScreeningService instance
func NewScreeningService(jobs EvaluationJobStore, uploads UploadRepo) *ScreeningService {
	return &ScreeningService{
		jobs:    jobs,
		uploads: uploads,
	}
}

// Enqueue validates the referenced uploads and queues an evaluation job.
func (s *ScreeningService) Enqueue(ctx context.Context, cvID, reportID, jobTitle string) (*domain.EvaluationJob, error) {
	if cvID == "" || reportID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "cv_id and report_id are required")
	}

	cv, err := s.uploads.GetByID(ctx, cvID)
	if err != nil {
		return nil, err
	}
	if cv.Kind != domain.UploadKindCV {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("upload %s is a %s, expected %s", cvID, cv.Kind, domain.UploadKindCV))
	}

	report, err := s.uploads.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Kind != domain.UploadKindProjectReport {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("upload %s is a %s, expected %s", reportID, report.Kind, domain.UploadKindProjectReport))
	}

	job := domain.NewEvaluationJob(uuid.NewString(), cvID, reportID, jobTitle, time.Now().UTC())
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue evaluation job: %w", err)
	}
	return job, nil
}

// GetResult returns the current state of an evaluation job.
func (s *ScreeningService) GetResult(ctx context.Context, id string) (*domain.EvaluationJob, error) {
	return s.jobs.GetByID(ctx, id)
}
