//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/talentsift/internal/api/handlers"
	"github.com/talentsift/talentsift/internal/extract"
	"github.com/talentsift/talentsift/internal/jobs"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/server"
	"github.com/talentsift/talentsift/internal/service"
	"github.com/talentsift/talentsift/internal/storage"
	"github.com/talentsift/talentsift/internal/testutil"
)

// testDims keeps the fake embeddings small; the index stores whatever
// dimensionality it is given.
const testDims = 8

const testCollection = "e2e_screening_docs"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Provider     *fakeProvider
	Ingestion    *service.IngestionService
	ServerURL    string
	ServerCloser func()
	Worker       *jobs.Worker
	HTTPClient   *http.Client
}

// SetupE2EEnv starts PostgreSQL, runs migrations, and boots the full service
// stack against a fake model provider with a fast-polling worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	provider := newFakeProvider()
	extractor := extract.NewFileExtractor()

	chunkRepo := repository.NewChunkIndexRepository(pool, testDims)
	uploadRepo := repository.NewUploadRepository(pool)
	jobRepo := repository.NewEvaluationJobRepository(pool)

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ingestionSvc := service.NewIngestionService(
		extractor, provider, chunkRepo, nil, testCollection, service.DefaultChunkConfig())

	retriever := service.NewRetriever(provider, chunkRepo, testCollection)
	evaluationSvc := service.NewEvaluationService(retriever, provider, 2)
	uploadSvc := service.NewUploadService(uploadRepo, store, extractor.Supported)
	screeningSvc := service.NewScreeningService(jobRepo, uploadRepo)

	processor := jobs.NewEvaluationWorker(jobRepo, uploadRepo, store, extractor, evaluationSvc)
	worker := jobs.NewWorker(processor, 100*time.Millisecond)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		UploadHandler:     handlers.NewUploadHandler(uploadSvc),
		EvaluationHandler: handlers.NewEvaluationHandler(screeningSvc),
	})

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, serverCloser := startServer(t, router, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Provider:     provider,
		Ingestion:    ingestionSvc,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Worker:       worker,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// IngestGroundTruth writes the named documents to a temp directory and ingests
// them into the vector index.
func (e *E2ETestEnv) IngestGroundTruth(docs map[string]string) {
	dir := e.T.TempDir()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			e.T.Fatalf("failed to write ground-truth doc: %v", err)
		}
	}

	report, err := e.Ingestion.IngestDirectory(e.Ctx, dir)
	if err != nil {
		e.T.Fatalf("ingestion failed: %v", err)
	}
	if !report.OK() {
		e.T.Fatalf("ingestion had failures: %+v", report.Failed)
	}
}

// UploadDocuments posts a CV and project report through the upload endpoint
// and returns their ids.
func (e *E2ETestEnv) UploadDocuments(cvContent, reportContent string) (cvID, reportID string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("cv", "cv.txt")
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(cvContent)); err != nil {
		e.T.Fatalf("failed to write form file: %v", err)
	}

	part, err = writer.CreateFormFile("project_report", "report.txt")
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(reportContent)); err != nil {
		e.T.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		e.T.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest("POST", e.ServerURL+"/upload", body)
	if err != nil {
		e.T.Fatalf("failed to build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		e.T.Fatalf("upload returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var envelope struct {
		Data struct {
			CVID     string `json:"cv_id"`
			ReportID string `json:"report_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		e.T.Fatalf("failed to decode upload response: %v", err)
	}
	return envelope.Data.CVID, envelope.Data.ReportID
}

// PostJSON performs a POST with a JSON body and decodes the data envelope.
func (e *E2ETestEnv) PostJSON(path string, body interface{}) (int, map[string]interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal body: %v", err)
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeEnvelope(e.T, resp.Body)
}

// GetJSON performs a GET and decodes the data envelope.
func (e *E2ETestEnv) GetJSON(path string) (int, map[string]interface{}) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeEnvelope(e.T, resp.Body)
}

// WaitForJob polls the result endpoint until the job leaves the queue or the
// timeout elapses, returning the final response data.
func (e *E2ETestEnv) WaitForJob(jobID string, timeout time.Duration) map[string]interface{} {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, data := e.GetJSON("/result/" + jobID)
		if status != http.StatusOK {
			e.T.Fatalf("result endpoint returned HTTP %d", status)
		}
		switch data["status"] {
		case "completed", "failed":
			return data
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("job %s did not finish within %v", jobID, timeout)
	return nil
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("failed to decode response %q: %v", raw, err)
	}
	return envelope.Data
}

func startServer(t *testing.T, router http.Handler, port int) (string, func()) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// fakeProvider stands in for the model provider: embeddings are derived
// deterministically from the text, and scoring output is canned JSON covering
// every rubric criterion.
type fakeProvider struct {
	jsonResponse string
	textResponse string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		jsonResponse: `{
			"criteria": {
				"technical_skills":      {"score": 4, "justification": "Strong backend and LLM exposure."},
				"experience_level":      {"score": 4, "justification": "Several years on production systems."},
				"relevant_achievements": {"score": 4, "justification": "Measurable scaling work."},
				"cultural_fit":          {"score": 4, "justification": "Clear communication."},
				"correctness":           {"score": 4, "justification": "Implements the brief."},
				"code_quality":          {"score": 4, "justification": "Modular and tested."},
				"resilience":            {"score": 4, "justification": "Retries and error handling present."},
				"documentation":         {"score": 4, "justification": "Clear README."},
				"creativity":            {"score": 3, "justification": "Some extras."}
			},
			"feedback": "Solid submission overall."
		}`,
		textResponse: "Strong candidate; recommend advancing to interview.",
	}
}

func (p *fakeProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, testDims)
	for i := range vec {
		vec[i] = float32(sum[i]) / 255.0
	}
	return vec, nil
}

func (p *fakeProvider) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return p.jsonResponse, nil
}

func (p *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return p.textResponse, nil
}
