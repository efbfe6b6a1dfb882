package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/talentsift/talentsift/internal/api"
	"github.com/talentsift/talentsift/internal/domain"
)

const maxUploadMemory = 10 << 20

// UploadService stores uploaded candidate documents.
type UploadService interface {
	SaveUpload(ctx context.Context, kind domain.UploadKind, filename, contentType string, size int64, body io.Reader) (*domain.Upload, error)
}

type UploadHandler struct {
	svc UploadService
}

func NewUploadHandler(svc UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type UploadResponse struct {
	CVID     string `json:"cv_id"`
	ReportID string `json:"report_id"`
}

// Upload accepts a multipart form with a "cv" file and a "project_report"
// file and stores both.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	cv, err := h.saveFormFile(r, "cv", domain.UploadKindCV)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	report, err := h.saveFormFile(r, "project_report", domain.UploadKindProjectReport)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadResponse{
		CVID:     cv.ID,
		ReportID: report.ID,
	})
}

func (h *UploadHandler) saveFormFile(r *http.Request, field string, kind domain.UploadKind) (*domain.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, field+" file is required")
	}
	defer file.Close()

	return h.svc.SaveUpload(r.Context(), kind, header.Filename, headerContentType(header), header.Size, file)
}

func headerContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
