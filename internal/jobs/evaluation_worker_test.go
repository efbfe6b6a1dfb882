package jobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/talentsift/talentsift/internal/domain"
)

// MockEvaluationJobRepository is a mock implementation of EvaluationJobRepository
type MockEvaluationJobRepository struct {
	mock.Mock
}

func (m *MockEvaluationJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EvaluationJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EvaluationJob), args.Error(1)
}

func (m *MockEvaluationJobRepository) SaveResult(ctx context.Context, id string, result *domain.ApplicationResult) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockEvaluationJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EvaluationJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockEvaluationJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEvaluationJobRepository) Requeue(ctx context.Context, id string, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

// MockUploadRepository is a mock implementation of UploadRepository
type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Upload), args.Error(1)
}

// MockUploadStore is a mock implementation of UploadStore
type MockUploadStore struct {
	mock.Mock
}

func (m *MockUploadStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockExtractor is a mock implementation of TextExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

// MockEvaluator is a mock implementation of ApplicationEvaluator
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) EvaluateApplication(ctx context.Context, cvText, projectText, jobTitle string) (*domain.ApplicationResult, error) {
	args := m.Called(ctx, cvText, projectText, jobTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplicationResult), args.Error(1)
}

type workerFixture struct {
	repo      *MockEvaluationJobRepository
	uploads   *MockUploadRepository
	store     *MockUploadStore
	extractor *MockExtractor
	evaluator *MockEvaluator
	worker    *EvaluationWorker
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		repo:      new(MockEvaluationJobRepository),
		uploads:   new(MockUploadRepository),
		store:     new(MockUploadStore),
		extractor: new(MockExtractor),
		evaluator: new(MockEvaluator),
	}
	f.worker = NewEvaluationWorker(f.repo, f.uploads, f.store, f.extractor, f.evaluator)
	return f
}

func (f *workerFixture) expectUpload(id, key, text string) {
	f.uploads.On("GetByID", mock.Anything, id).Return(&domain.Upload{
		ID:         id,
		Kind:       domain.UploadKindCV,
		Filename:   id + ".txt",
		StorageKey: key,
	}, nil)
	f.store.On("Get", mock.Anything, key).Return(io.NopCloser(strings.NewReader(text)), nil)
	f.extractor.On("ExtractText", mock.MatchedBy(func(path string) bool {
		return strings.HasSuffix(path, ".txt")
	})).Return(text, nil).Once()
}

func queuedJob(retries int32) *domain.EvaluationJob {
	return &domain.EvaluationJob{
		ID:       "job-1",
		CVID:     "cv-1",
		ReportID: "report-1",
		JobTitle: "Backend Engineer",
		Status:   domain.EvaluationJobStatusProcessing,
		Retries:  retries,
	}
}

// TestEvaluationWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestEvaluationWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	f := newWorkerFixture()
	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{}, nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.evaluator.AssertNotCalled(t, "EvaluateApplication", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestEvaluationWorker_ProcessJobs_Success tests successful job processing
func TestEvaluationWorker_ProcessJobs_Success(t *testing.T) {
	f := newWorkerFixture()
	job := queuedJob(0)

	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{job}, nil)
	f.expectUpload("cv-1", "uploads/cv-1", "cv text")
	f.expectUpload("report-1", "uploads/report-1", "project text")

	result := &domain.ApplicationResult{CVMatchRate: 0.81, ProjectScore: 4.2}
	f.evaluator.On("EvaluateApplication", mock.Anything, "cv text", "project text", "Backend Engineer").
		Return(result, nil)
	f.repo.On("SaveResult", mock.Anything, "job-1", result).Return(nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.evaluator.AssertExpectations(t)
}

// TestEvaluationWorker_ProcessJobs_TransientFailureRequeues tests retry on transient provider failure
func TestEvaluationWorker_ProcessJobs_TransientFailureRequeues(t *testing.T) {
	f := newWorkerFixture()
	job := queuedJob(0)

	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{job}, nil)
	f.expectUpload("cv-1", "uploads/cv-1", "cv text")
	f.expectUpload("report-1", "uploads/report-1", "project text")

	provErr := &domain.ProviderError{Op: "generate", Kind: domain.ProviderErrorRateLimit, Attempts: 4}
	f.evaluator.On("EvaluateApplication", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, provErr)
	f.repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	f.repo.On("Requeue", mock.Anything, "job-1", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "retry 1")
	})).Return(nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestEvaluationWorker_ProcessJobs_MaxRetriesExceeded tests job failure after max retries
func TestEvaluationWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	f := newWorkerFixture()
	job := queuedJob(2) // Already retried twice

	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{job}, nil)
	f.expectUpload("cv-1", "uploads/cv-1", "cv text")
	f.expectUpload("report-1", "uploads/report-1", "project text")

	provErr := &domain.ProviderError{Op: "generate", Kind: domain.ProviderErrorTimeout, Attempts: 4}
	f.evaluator.On("EvaluateApplication", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, provErr)
	f.repo.On("UpdateStatus", mock.Anything, "job-1", domain.EvaluationJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

// TestEvaluationWorker_ProcessJobs_StructuralFailureIsNotRetried tests that bad model output fails immediately
func TestEvaluationWorker_ProcessJobs_StructuralFailureIsNotRetried(t *testing.T) {
	f := newWorkerFixture()
	job := queuedJob(0)

	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{job}, nil)
	f.expectUpload("cv-1", "uploads/cv-1", "cv text")
	f.expectUpload("report-1", "uploads/report-1", "project text")

	evalErr := &domain.EvaluationError{Reason: domain.EvaluationReasonUnparseableOutput, RawModelOutput: "garbage"}
	f.evaluator.On("EvaluateApplication", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, evalErr)
	f.repo.On("UpdateStatus", mock.Anything, "job-1", domain.EvaluationJobStatusFailed, mock.Anything).Return(nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "IncrementRetries", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

// TestEvaluationWorker_ProcessJobs_MissingUploadFailsJob tests a job whose upload is gone
func TestEvaluationWorker_ProcessJobs_MissingUploadFailsJob(t *testing.T) {
	f := newWorkerFixture()
	job := queuedJob(0)

	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return([]*domain.EvaluationJob{job}, nil)
	f.uploads.On("GetByID", mock.Anything, "cv-1").Return(nil, domain.ErrUploadNotFound)
	f.repo.On("UpdateStatus", mock.Anything, "job-1", domain.EvaluationJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "cv-1")
	})).Return(nil)

	err := f.worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.evaluator.AssertNotCalled(t, "EvaluateApplication", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestEvaluationWorker_ProcessJobs_ClaimError tests repository error handling
func TestEvaluationWorker_ProcessJobs_ClaimError(t *testing.T) {
	f := newWorkerFixture()
	f.repo.On("ClaimPending", mock.Anything, ClaimBatchSize).Return(nil, errors.New("database error"))

	err := f.worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending jobs")
	f.repo.AssertExpectations(t)
}
