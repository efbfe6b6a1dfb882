package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/talentsift/talentsift/internal/api"
	"github.com/talentsift/talentsift/internal/domain"
)

// ScreeningService queues evaluations and exposes their results.
type ScreeningService interface {
	Enqueue(ctx context.Context, cvID, reportID, jobTitle string) (*domain.EvaluationJob, error)
	GetResult(ctx context.Context, id string) (*domain.EvaluationJob, error)
}

type EvaluationHandler struct {
	svc ScreeningService
}

func NewEvaluationHandler(svc ScreeningService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

type EvaluateRequest struct {
	CVID     string `json:"cv_id"`
	ReportID string `json:"report_id"`
	JobTitle string `json:"job_title"`
}

type EvaluationJobResponse struct {
	ID     string                    `json:"id"`
	Status string                    `json:"status"`
	Result *domain.ApplicationResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func jobToResponse(job *domain.EvaluationJob) *EvaluationJobResponse {
	resp := &EvaluationJobResponse{
		ID:     job.ID,
		Status: string(job.Status),
	}
	// Intermediate states expose nothing but the status; a failed job's
	// error and a completed job's result are the only payloads.
	switch job.Status {
	case domain.EvaluationJobStatusCompleted:
		resp.Result = job.Result
	case domain.EvaluationJobStatusFailed:
		resp.Error = job.Error
	}
	return resp
}

// Evaluate queues an evaluation of two previously uploaded documents.
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.svc.Enqueue(r.Context(), req.CVID, req.ReportID, req.JobTitle)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

// Result returns the state of an evaluation job.
func (h *EvaluationHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.GetResult(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}
