package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/talentsift/talentsift/internal/domain"
)

// GenerativeClient defines the interface for text generation
type GenerativeClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever fetches grounding passages for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, queryText string, k int, docType domain.DocType) ([]domain.RetrievedPassage, error)
}

// EvaluationService scores candidate documents against rubrics, grounding the
// model on retrieved reference passages.
type EvaluationService struct {
	retriever     ContextRetriever
	generator     GenerativeClient
	topK          int
	cvRubric      domain.Rubric
	projectRubric domain.Rubric
}

// NewEvaluationService creates a new EvaluationService instance
func NewEvaluationService(retriever ContextRetriever, generator GenerativeClient, topK int) *EvaluationService {
	if topK <= 0 {
		topK = 2
	}
	return &EvaluationService{
		retriever:     retriever,
		generator:     generator,
		topK:          topK,
		cvRubric:      domain.DefaultCVRubric(),
		projectRubric: domain.DefaultProjectRubric(),
	}
}

// modelOutput is the JSON shape the scoring prompt asks the model to produce.
type modelOutput struct {
	Criteria map[string]struct {
		Score         *float64 `json:"score"`
		Justification string   `json:"justification"`
	} `json:"criteria"`
	Feedback string `json:"feedback"`
}

// Evaluate scores candidateText against rubric. Grounding passages are
// retrieved for the rubric and, when contextQuery is non-empty, for the given
// context document type. Empty retrieval is not an error; the report is
// flagged low confidence instead.
func (s *EvaluationService) Evaluate(
	ctx context.Context,
	candidateText string,
	rubric domain.Rubric,
	contextQuery string,
	contextType domain.DocType,
) (*domain.ScoreReport, error) {
	if strings.TrimSpace(candidateText) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "candidate text is empty")
	}
	if err := domain.ValidateRubric(&rubric); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid rubric", err)
	}

	passages, err := s.retriever.Retrieve(ctx, rubricQuery(rubric), s.topK, domain.DocTypeScoringRubric)
	if err != nil {
		return nil, err
	}
	lowConfidence := len(passages) == 0

	if contextQuery != "" && contextType != "" {
		extra, err := s.retriever.Retrieve(ctx, contextQuery, s.topK, contextType)
		if err != nil {
			return nil, err
		}
		passages = append(passages, extra...)
	}

	prompt := composeScoringPrompt(rubric, passages, candidateText, false)
	raw, err := s.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	output, parseErr := parseModelOutput(raw, rubric)
	if parseErr != nil {
		// One strict retry; the model gets told exactly how it failed.
		prompt = composeScoringPrompt(rubric, passages, candidateText, true)
		retryRaw, err := s.generator.GenerateJSON(ctx, prompt)
		if err != nil {
			return nil, err
		}
		raw = retryRaw
		output, parseErr = parseModelOutput(raw, rubric)
		if parseErr != nil {
			return nil, &domain.EvaluationError{
				Reason:         domain.EvaluationReasonUnparseableOutput,
				RawModelOutput: raw,
				Err:            parseErr,
			}
		}
	}

	report := &domain.ScoreReport{
		RubricName:     rubric.Name,
		Criteria:       make(map[string]domain.CriterionResult, len(rubric.Criteria)),
		Feedback:       output.Feedback,
		LowConfidence:  lowConfidence,
		RawModelOutput: raw,
	}

	scores := make(map[string]float64, len(rubric.Criteria))
	for _, c := range rubric.Criteria {
		got := output.Criteria[c.Name]
		score, clamped := c.Clamp(*got.Score)
		if clamped {
			report.Flagged = true
		}
		report.Criteria[c.Name] = domain.CriterionResult{
			Score:         score,
			Justification: got.Justification,
			Clamped:       clamped,
		}
		scores[c.Name] = score
	}
	report.OverallScore = rubric.Aggregate(scores)

	return report, nil
}

// EvaluateApplication screens a full application: the CV against the CV
// rubric grounded on the job description, the project report against the
// project rubric grounded on the case study brief, then a combined summary.
func (s *EvaluationService) EvaluateApplication(ctx context.Context, cvText, projectText, jobTitle string) (*domain.ApplicationResult, error) {
	jobQuery := jobTitle
	if jobQuery == "" {
		jobQuery = "role requirements and responsibilities"
	}

	cvReport, err := s.Evaluate(ctx, cvText, s.cvRubric, jobQuery, domain.DocTypeJobDescription)
	if err != nil {
		return nil, fmt.Errorf("cv evaluation failed: %w", err)
	}

	projectReport, err := s.Evaluate(ctx, projectText, s.projectRubric,
		"case study deliverables and requirements", domain.DocTypeCaseStudyBrief)
	if err != nil {
		return nil, fmt.Errorf("project evaluation failed: %w", err)
	}

	summary, err := s.generator.GenerateText(ctx, composeSummaryPrompt(cvReport, projectReport))
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	return &domain.ApplicationResult{
		CVMatchRate:     round2(cvReport.OverallScore * 0.2),
		CVFeedback:      cvReport.Feedback,
		ProjectScore:    round2(projectReport.OverallScore),
		ProjectFeedback: projectReport.Feedback,
		OverallSummary:  strings.TrimSpace(summary),
		LowConfidence:   cvReport.LowConfidence || projectReport.LowConfidence,
		Flagged:         cvReport.Flagged || projectReport.Flagged,
	}, nil
}

// rubricQuery builds the retrieval query for a rubric from its name and
// criterion names.
func rubricQuery(rubric domain.Rubric) string {
	parts := make([]string, 0, len(rubric.Criteria)+1)
	parts = append(parts, strings.ReplaceAll(rubric.Name, "_", " "))
	for _, c := range rubric.Criteria {
		parts = append(parts, strings.ReplaceAll(c.Name, "_", " "))
	}
	return strings.Join(parts, " ")
}

func composeScoringPrompt(rubric domain.Rubric, passages []domain.RetrievedPassage, candidateText string, strict bool) string {
	var sb strings.Builder

	sb.WriteString("You are an expert technical recruiter scoring a candidate document against a rubric.\n\n")

	sb.WriteString("## Reference context\n")
	if len(passages) == 0 {
		sb.WriteString("No grounding context available. Score using the rubric definition below only.\n")
	} else {
		for _, p := range passages {
			fmt.Fprintf(&sb, "[source: %s#%d]\n%s\n\n", p.SourceID, p.ChunkID, p.Text)
		}
	}

	sb.WriteString("\n## Rubric: ")
	sb.WriteString(rubric.Name)
	sb.WriteString("\nScore each criterion within its declared range:\n")
	for _, c := range rubric.Criteria {
		fmt.Fprintf(&sb, "- %s (range %g to %g)\n", c.Name, c.Min, c.Max)
	}

	sb.WriteString("\n## Candidate document\n")
	sb.WriteString(candidateText)

	sb.WriteString("\n\n## Output\n")
	sb.WriteString("Respond with a single JSON object of this exact shape:\n")
	sb.WriteString(`{"criteria": {`)
	names := criterionNames(rubric)
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, `%q: {"score": <number>, "justification": "<string>"}`, name)
	}
	sb.WriteString(`}, "feedback": "<overall feedback string>"}`)
	sb.WriteString("\n")

	if strict {
		sb.WriteString("\nYour previous response did not conform to the schema. ")
		sb.WriteString("Respond with ONLY the JSON object, no surrounding text, and include every criterion listed above with a numeric score.\n")
	}

	return sb.String()
}

func composeSummaryPrompt(cv, project *domain.ScoreReport) string {
	var sb strings.Builder
	sb.WriteString("Write a concise overall hiring summary (3 to 5 sentences) for a candidate based on two evaluations.\n\n")
	fmt.Fprintf(&sb, "CV evaluation (overall %.2f of 5): %s\n\n", cv.OverallScore, cv.Feedback)
	fmt.Fprintf(&sb, "Project evaluation (overall %.2f of 5): %s\n\n", project.OverallScore, project.Feedback)
	sb.WriteString("Cover strengths, gaps, and a hiring recommendation. Respond with plain text only.")
	return sb.String()
}

// parseModelOutput decodes the model response and checks it covers every
// rubric criterion with a numeric score. Code fences around the JSON are
// tolerated; anything structurally worse is a parse failure.
func parseModelOutput(raw string, rubric domain.Rubric) (*modelOutput, error) {
	cleaned := stripCodeFence(raw)

	var out modelOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if out.Criteria == nil {
		return nil, fmt.Errorf("response has no criteria object")
	}
	for _, c := range rubric.Criteria {
		got, ok := out.Criteria[c.Name]
		if !ok {
			return nil, fmt.Errorf("response is missing criterion %q", c.Name)
		}
		if got.Score == nil {
			return nil, fmt.Errorf("response criterion %q has no numeric score", c.Name)
		}
	}
	return &out, nil
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func criterionNames(rubric domain.Rubric) []string {
	names := make([]string, 0, len(rubric.Criteria))
	for _, c := range rubric.Criteria {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
