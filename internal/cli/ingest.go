package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/talentsift/talentsift/internal/config"
	"github.com/talentsift/talentsift/internal/database"
	"github.com/talentsift/talentsift/internal/extract"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest ground-truth documents into the vector index",
		Long: `Read the job description, case study brief, and scoring rubrics from the
source directory, chunk and embed them, and replace their entries in the
vector index. Re-running ingest for the same documents is safe.`,
		RunE: runIngest,
	}

	cmd.Flags().StringP("dir", "d", "", "Source directory (defaults to TALENTSIFT_SOURCE_DIR)")
	cmd.Flags().Bool("seed", false, "Write sample ground-truth documents to the source directory first")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to embed documents")
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.SourceDir
	}

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if err := writeSeedDocuments(dir); err != nil {
			return fmt.Errorf("failed to seed source directory: %w", err)
		}
		log.Printf("seeded sample documents in %s", dir)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	chunkRepo := repository.NewChunkIndexRepository(pool, cfg.EmbeddingDimensions)
	svc := service.NewIngestionService(
		extract.NewFileExtractor(),
		newProviderClient(cfg),
		chunkRepo,
		nil,
		cfg.Collection,
		service.ChunkConfig{MaxChars: cfg.ChunkMaxChars, Overlap: cfg.ChunkOverlap},
	)

	report, err := svc.IngestDirectory(ctx, dir)
	if err != nil {
		return err
	}

	for _, doc := range report.Succeeded {
		fmt.Printf("ingested %-28s type=%-22s chunks=%d\n", doc.SourceID, doc.DocType, doc.Chunks)
	}
	for _, failure := range report.Failed {
		fmt.Printf("failed   %-28s stage=%s: %v\n", failure.SourceID, failure.Stage, failure.Err)
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d documents failed to ingest",
			len(report.Failed), len(report.Failed)+len(report.Succeeded))
	}

	fmt.Printf("collection %q ready (%d documents)\n", report.Collection, len(report.Succeeded))
	return nil
}

// writeSeedDocuments populates dir with a minimal but usable set of
// ground-truth documents. Existing files are left untouched.
func writeSeedDocuments(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for name, content := range seedDocuments {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			log.Printf("seed: %s already exists, skipping", name)
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

var seedDocuments = map[string]string{
	"job_description.txt": `Backend Engineer

We are hiring a backend engineer to build and operate candidate screening
services. The role involves designing HTTP APIs, integrating large language
model providers, and running PostgreSQL-backed pipelines in production.

Requirements:
- Strong backend experience (Go, Python, or similar) building production APIs
- Working knowledge of relational databases and schema design
- Experience integrating third-party APIs, including LLM or ML services
- Familiarity with asynchronous job processing and retry handling
- Comfort with cloud storage, containers, and observability tooling

Nice to have:
- Experience with vector databases or retrieval-augmented generation
- Prior work on evaluation or ranking systems
`,

	"case_study_brief.txt": `Case Study Brief: Mini Screening Service

Build a small service that accepts a candidate CV and a project report,
evaluates both against this brief using an LLM, and returns a structured
result.

Deliverables:
- An upload endpoint accepting both documents
- An asynchronous evaluation endpoint returning a job id immediately
- A result endpoint that reports job status and, when finished, the scores
- Retrieval of relevant context from stored reference documents before scoring
- Handling of provider failures: timeouts and rate limits must be retried,
  malformed model output must not crash the service

Evaluation of your submission considers correctness against this brief, code
quality, resilience of the error handling, clarity of the documentation, and
any creative additions beyond the requirements.
`,

	"cv_scoring_rubric.txt": `CV Scoring Rubric

Score each parameter from 1 to 5.

Technical Skills Match (weight 40%): alignment of the candidate's skills with
the job requirements, including backend frameworks, databases, APIs, cloud
services, and AI/LLM exposure. 1 = irrelevant skills, 3 = partial overlap,
5 = excellent match plus AI/LLM experience.

Experience Level (weight 25%): years of experience and project complexity.
1 = under a year or trivial projects, 3 = two to three years with mid-scale
projects, 5 = five or more years on high-impact systems.

Relevant Achievements (weight 20%): measurable impact of past work such as
scaling, performance, or adoption. 1 = none stated, 3 = some outcomes,
5 = significant measurable outcomes.

Cultural Fit (weight 15%): communication, learning attitude, and ownership.
1 = not demonstrated, 3 = average, 5 = strong evidence across all three.
`,

	"project_scoring_rubric.txt": `Project Scoring Rubric

Score each parameter from 1 to 5.

Correctness (weight 30%): does the submission implement the brief, including
the prompt design, chaining of LLM calls, and retrieval of context.
1 = not implemented, 3 = partially works, 5 = fully correct.

Code Quality (weight 25%): clean, modular, tested code. 1 = poor structure,
3 = reasonably structured with some tests, 5 = excellent structure and
strong tests.

Resilience (weight 20%): handling of failures, timeouts, retries, and
malformed model output. 1 = fragile, 3 = basic handling, 5 = robust and
production-ready.

Documentation (weight 15%): clarity of the README, setup instructions, and
explanation of trade-offs. 1 = missing, 3 = adequate, 5 = clear and
thorough.

Creativity (weight 10%): useful additions beyond the requirements such as
authentication, deployment, or dashboards. 1 = none, 3 = minor extras,
5 = standout additions.
`,
}
