package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/talentsift/talentsift/internal/domain"
)

// MockGenerativeClient mocks the generation provider
type MockGenerativeClient struct {
	mock.Mock
}

func (m *MockGenerativeClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockGenerativeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockContextRetriever mocks grounding retrieval
type MockContextRetriever struct {
	mock.Mock
}

func (m *MockContextRetriever) Retrieve(ctx context.Context, queryText string, k int, docType domain.DocType) ([]domain.RetrievedPassage, error) {
	args := m.Called(ctx, queryText, k, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedPassage), args.Error(1)
}

func rubricPassages() []domain.RetrievedPassage {
	return []domain.RetrievedPassage{
		{SourceID: "cv_scoring_rubric.txt", ChunkID: 0, DocType: domain.DocTypeScoringRubric, Text: "Rate from 1 to 5.", Score: 0.9},
	}
}

// cvModelJSON builds a model response scoring every CV rubric criterion.
func cvModelJSON(technical, experience, achievements, cultural float64) string {
	return fmt.Sprintf(`{
		"criteria": {
			"technical_skills": {"score": %g, "justification": "solid stack"},
			"experience_level": {"score": %g, "justification": "mid-level"},
			"relevant_achievements": {"score": %g, "justification": "some impact"},
			"cultural_fit": {"score": %g, "justification": "collaborative"}
		},
		"feedback": "Strong backend profile."
	}`, technical, experience, achievements, cultural)
}

func TestEvaluationService_Evaluate_WeightedAggregation(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Return(cvModelJSON(4, 4, 5, 3), nil).Once()

	report, err := svc.Evaluate(context.Background(), "candidate cv text", domain.DefaultCVRubric(), "", "")

	require.NoError(t, err)
	assert.Equal(t, "cv_scoring_rubric", report.RubricName)
	// 4*0.40 + 4*0.25 + 5*0.20 + 3*0.15 = 4.05
	assert.InDelta(t, 4.05, report.OverallScore, 1e-9)
	assert.False(t, report.Flagged)
	assert.False(t, report.LowConfidence)
	assert.Equal(t, "Strong backend profile.", report.Feedback)
	assert.Equal(t, 4.0, report.Criteria["technical_skills"].Score)
	assert.Equal(t, "solid stack", report.Criteria["technical_skills"].Justification)
}

func TestEvaluationService_Evaluate_OutOfRangeScoreClampedAndFlagged(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Return(cvModelJSON(9, 4, 4, 0), nil).Once()

	report, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	require.NoError(t, err)
	assert.True(t, report.Flagged)
	assert.Equal(t, 5.0, report.Criteria["technical_skills"].Score)
	assert.True(t, report.Criteria["technical_skills"].Clamped)
	assert.Equal(t, 1.0, report.Criteria["cultural_fit"].Score)
	assert.True(t, report.Criteria["cultural_fit"].Clamped)
	assert.False(t, report.Criteria["experience_level"].Clamped)
	// 5*0.40 + 4*0.25 + 4*0.20 + 1*0.15 = 3.95
	assert.InDelta(t, 3.95, report.OverallScore, 1e-9)
}

func TestEvaluationService_Evaluate_EmptyContextIsLowConfidence(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return([]domain.RetrievedPassage{}, nil)

	var prompt string
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return(cvModelJSON(3, 3, 3, 3), nil).Once()

	report, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	require.NoError(t, err)
	assert.True(t, report.LowConfidence)
	assert.Contains(t, prompt, "No grounding context available")
	assert.InDelta(t, 3.0, report.OverallScore, 1e-9)
}

func TestEvaluationService_Evaluate_ParseFailureRetriesOnceStrict(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)

	var prompts []string
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.String(1)) }).
		Return("Sure! Here are the scores: technical skills four out of five.", nil).Once()
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.String(1)) }).
		Return(cvModelJSON(4, 3, 3, 3), nil).Once()

	report, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "did not conform")
	assert.Contains(t, prompts[1], "did not conform to the schema")
	assert.Equal(t, 4.0, report.Criteria["technical_skills"].Score)
}

func TestEvaluationService_Evaluate_UnparseableAfterRetry(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Return("still not json", nil).Twice()

	_, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	var evalErr *domain.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, domain.EvaluationReasonUnparseableOutput, evalErr.Reason)
	assert.Equal(t, "still not json", evalErr.RawModelOutput)
	generator.AssertNumberOfCalls(t, "GenerateJSON", 2)
}

func TestEvaluationService_Evaluate_MissingCriterionIsParseFailure(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	// Valid JSON, but cultural_fit is absent in both attempts.
	partial := `{"criteria": {"technical_skills": {"score": 4}, "experience_level": {"score": 4}, "relevant_achievements": {"score": 4}}, "feedback": "ok"}`
	generator.On("GenerateJSON", mock.Anything, mock.Anything).Return(partial, nil).Twice()

	_, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	var evalErr *domain.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, evalErr.Err.Error(), "cultural_fit")
}

func TestEvaluationService_Evaluate_CodeFencedJSONAccepted(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	fenced := "```json\n" + cvModelJSON(4, 4, 4, 4) + "\n```"
	generator.On("GenerateJSON", mock.Anything, mock.Anything).Return(fenced, nil).Once()

	report, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	require.NoError(t, err)
	assert.InDelta(t, 4.0, report.OverallScore, 1e-9)
	generator.AssertNumberOfCalls(t, "GenerateJSON", 1)
}

func TestEvaluationService_Evaluate_ProviderErrorPropagates(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	provErr := &domain.ProviderError{Op: "generate", Kind: domain.ProviderErrorTimeout, Attempts: 4}
	generator.On("GenerateJSON", mock.Anything, mock.Anything).Return("", provErr).Once()

	_, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "", "")

	var got *domain.ProviderError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, domain.ProviderErrorTimeout, got.Kind)
}

func TestEvaluationService_Evaluate_EmptyCandidateText(t *testing.T) {
	svc := NewEvaluationService(new(MockContextRetriever), new(MockGenerativeClient), 2)

	_, err := svc.Evaluate(context.Background(), "   ", domain.DefaultCVRubric(), "", "")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestEvaluationService_Evaluate_SingleCriterionRubric(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	rubric := domain.Rubric{
		Name:     "code_review_rubric",
		Criteria: []domain.Criterion{{Name: "code_quality", Weight: 1.0, Min: 0, Max: 10}},
	}

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Return(`{"criteria": {"code_quality": {"score": 8, "justification": "clean"}}, "feedback": "good"}`, nil).Once()

	report, err := svc.Evaluate(context.Background(), "submission", rubric, "", "")

	require.NoError(t, err)
	assert.InDelta(t, 8.0, report.OverallScore, 1e-9)
	assert.False(t, report.Flagged)
}

func TestEvaluationService_Evaluate_ContextQueryAddsPassages(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	retriever.On("Retrieve", mock.Anything, "backend engineer", 2, domain.DocTypeJobDescription).
		Return([]domain.RetrievedPassage{
			{SourceID: "job_description.txt", ChunkID: 0, DocType: domain.DocTypeJobDescription, Text: "Go and Postgres required.", Score: 0.8},
		}, nil)

	var prompt string
	generator.On("GenerateJSON", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return(cvModelJSON(4, 4, 4, 4), nil).Once()

	_, err := svc.Evaluate(context.Background(), "cv", domain.DefaultCVRubric(), "backend engineer", domain.DocTypeJobDescription)

	require.NoError(t, err)
	assert.Contains(t, prompt, "[source: job_description.txt#0]")
	assert.Contains(t, prompt, "Go and Postgres required.")
	retriever.AssertExpectations(t)
}

func TestEvaluationService_EvaluateApplication(t *testing.T) {
	retriever := new(MockContextRetriever)
	generator := new(MockGenerativeClient)
	svc := NewEvaluationService(retriever, generator, 2)

	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeScoringRubric).
		Return(rubricPassages(), nil)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeJobDescription).
		Return([]domain.RetrievedPassage{}, nil)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 2, domain.DocTypeCaseStudyBrief).
		Return([]domain.RetrievedPassage{}, nil)

	cvJSON := cvModelJSON(4, 4, 5, 3) // weighted: 4.05
	projectJSON := `{
		"criteria": {
			"correctness": {"score": 4, "justification": ""},
			"code_quality": {"score": 4, "justification": ""},
			"resilience": {"score": 3, "justification": ""},
			"documentation": {"score": 4, "justification": ""},
			"creativity": {"score": 3, "justification": ""}
		},
		"feedback": "Solid delivery with thin resilience."
	}`
	generator.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "cv_scoring_rubric")
	})).Return(cvJSON, nil).Once()
	generator.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "project_scoring_rubric")
	})).Return(projectJSON, nil).Once()
	generator.On("GenerateText", mock.Anything, mock.Anything).
		Return("Recommend advancing to interview.\n", nil).Once()

	result, err := svc.EvaluateApplication(context.Background(), "cv text", "project text", "Backend Engineer")

	require.NoError(t, err)
	// cv_match_rate = 4.05 * 0.2 = 0.81
	assert.InDelta(t, 0.81, result.CVMatchRate, 1e-9)
	// project weighted: 4*0.30 + 4*0.25 + 3*0.20 + 4*0.15 + 3*0.10 = 3.70
	assert.InDelta(t, 3.70, result.ProjectScore, 1e-9)
	assert.Equal(t, "Strong backend profile.", result.CVFeedback)
	assert.Equal(t, "Solid delivery with thin resilience.", result.ProjectFeedback)
	assert.Equal(t, "Recommend advancing to interview.", result.OverallSummary)
	assert.False(t, result.Flagged)
}
