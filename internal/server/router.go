package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/talentsift/talentsift/internal/api"
	"github.com/talentsift/talentsift/internal/api/handlers"
	"github.com/talentsift/talentsift/internal/api/middleware"
)

type RouterConfig struct {
	UploadHandler     *handlers.UploadHandler
	EvaluationHandler *handlers.EvaluationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads carry whole PDFs, so the body cap is generous.
	const maxBodyBytes int64 = 20 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/upload", cfg.UploadHandler.Upload)
	r.Post("/evaluate", cfg.EvaluationHandler.Evaluate)
	r.Get("/result/{id}", cfg.EvaluationHandler.Result)

	return r
}
