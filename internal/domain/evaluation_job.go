package domain

import (
	"fmt"
	"time"
)

// EvaluationJobStatus represents the status of an evaluation job
type EvaluationJobStatus string

const (
	EvaluationJobStatusQueued     EvaluationJobStatus = "queued"
	EvaluationJobStatusProcessing EvaluationJobStatus = "processing"
	EvaluationJobStatusCompleted  EvaluationJobStatus = "completed"
	EvaluationJobStatusFailed     EvaluationJobStatus = "failed"
)

// EvaluationJob represents an async candidate evaluation job. The result is
// stored once the job completes and survives process restarts.
type EvaluationJob struct {
	ID          string
	CVID        string
	ReportID    string
	JobTitle    string
	Status      EvaluationJobStatus
	Result      *ApplicationResult
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEvaluationJob creates a queued EvaluationJob instance
func NewEvaluationJob(id, cvID, reportID, jobTitle string, createdAt time.Time) *EvaluationJob {
	return &EvaluationJob{
		ID:        id,
		CVID:      cvID,
		ReportID:  reportID,
		JobTitle:  jobTitle,
		Status:    EvaluationJobStatusQueued,
		CreatedAt: createdAt,
	}
}

// ValidateEvaluationJob validates an EvaluationJob instance
func ValidateEvaluationJob(j *EvaluationJob) error {
	if j == nil {
		return fmt.Errorf("evaluation job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("evaluation job ID is required")
	}
	if j.CVID == "" || j.ReportID == "" {
		return fmt.Errorf("evaluation job requires both CVID and ReportID")
	}
	if !isValidEvaluationJobStatus(j.Status) {
		return fmt.Errorf("evaluation job Status is invalid: %s", j.Status)
	}
	if j.Retries < 0 {
		return fmt.Errorf("evaluation job Retries cannot be negative")
	}
	return nil
}

func isValidEvaluationJobStatus(s EvaluationJobStatus) bool {
	switch s {
	case EvaluationJobStatusQueued, EvaluationJobStatusProcessing,
		EvaluationJobStatusCompleted, EvaluationJobStatusFailed:
		return true
	}
	return false
}
