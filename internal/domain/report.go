package domain

// CriterionResult is the scored outcome for one rubric criterion.
type CriterionResult struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification,omitempty"`
	Clamped       bool    `json:"clamped,omitempty"`
}

// ScoreReport is the validated output of one evaluation against one rubric.
// RawModelOutput retains the unparsed model response for auditability.
type ScoreReport struct {
	RubricName     string                     `json:"rubric_name"`
	Criteria       map[string]CriterionResult `json:"criteria"`
	OverallScore   float64                    `json:"overall_score"`
	Feedback       string                     `json:"feedback,omitempty"`
	Flagged        bool                       `json:"flagged"`
	LowConfidence  bool                       `json:"low_confidence"`
	RawModelOutput string                     `json:"-"`
}

// ApplicationResult is the combined outcome of screening one application:
// the CV evaluated against the CV rubric, the project report against the
// project rubric, plus a generated overall summary.
type ApplicationResult struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
	LowConfidence   bool    `json:"low_confidence,omitempty"`
	Flagged         bool    `json:"flagged,omitempty"`
}
