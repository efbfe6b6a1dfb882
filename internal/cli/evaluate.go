package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/talentsift/talentsift/internal/config"
	"github.com/talentsift/talentsift/internal/database"
	"github.com/talentsift/talentsift/internal/extract"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/service"
)

// EvaluateCmd returns the evaluate command
func EvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <cv-file> <project-report-file>",
		Short: "Evaluate a candidate application synchronously",
		Long: `Run the full screening pipeline against local files without going through
the HTTP API or the job queue. Useful for testing prompts and rubrics.`,
		Args: cobra.ExactArgs(2),
		RunE: runEvaluate,
	}

	cmd.Flags().StringP("job-title", "j", "", "Job title the candidate applied for")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to evaluate")
	}

	extractor := extract.NewFileExtractor()

	cvText, err := extractor.ExtractText(args[0])
	if err != nil {
		return fmt.Errorf("failed to read CV: %w", err)
	}
	projectText, err := extractor.ExtractText(args[1])
	if err != nil {
		return fmt.Errorf("failed to read project report: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	chunkRepo := repository.NewChunkIndexRepository(pool, cfg.EmbeddingDimensions)
	provider := newProviderClient(cfg)
	retriever := service.NewRetriever(provider, chunkRepo, cfg.Collection)
	evaluationSvc := service.NewEvaluationService(retriever, provider, cfg.RetrievalTopK)

	jobTitle, _ := cmd.Flags().GetString("job-title")

	result, err := evaluationSvc.EvaluateApplication(ctx, cvText, projectText, jobTitle)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
