package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talentsift/talentsift/internal/api/handlers"
	"github.com/talentsift/talentsift/internal/domain"
)

type stubUploadService struct{}

func (stubUploadService) SaveUpload(ctx context.Context, kind domain.UploadKind, filename, contentType string, size int64, body io.Reader) (*domain.Upload, error) {
	return &domain.Upload{ID: "u-1", Kind: kind}, nil
}

type stubScreeningService struct{}

func (stubScreeningService) Enqueue(ctx context.Context, cvID, reportID, jobTitle string) (*domain.EvaluationJob, error) {
	return &domain.EvaluationJob{ID: "job-1", Status: domain.EvaluationJobStatusQueued}, nil
}

func (stubScreeningService) GetResult(ctx context.Context, id string) (*domain.EvaluationJob, error) {
	if id != "job-1" {
		return nil, domain.ErrEvaluationJobNotFound
	}
	return &domain.EvaluationJob{ID: id, Status: domain.EvaluationJobStatusQueued}, nil
}

func newTestRouter() http.Handler {
	return NewRouter(RouterConfig{
		UploadHandler:     handlers.NewUploadHandler(stubUploadService{}),
		EvaluationHandler: handlers.NewEvaluationHandler(stubScreeningService{}),
	})
}

func TestRouter_Health(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_ResultRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/result/job-1", nil)
	rec := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queued")
}

func TestRouter_UnknownRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/evaluate", nil)
	rec := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
