package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DocType categorizes a reference or candidate document.
type DocType string

const (
	DocTypeJobDescription  DocType = "job_description"
	DocTypeScoringRubric   DocType = "scoring_rubric"
	DocTypeCaseStudyBrief  DocType = "case_study_brief"
	DocTypeCandidateResume DocType = "candidate_resume"
	DocTypeProjectReport   DocType = "project_report"
)

// Document is a unit of reference or candidate content. Candidate documents
// are never persisted to the index; reference documents are discarded once
// their chunks are stored.
type Document struct {
	SourceID string
	DocType  DocType
	RawText  string
}

// NewDocument creates a new Document instance
func NewDocument(sourceID string, docType DocType, rawText string) *Document {
	return &Document{
		SourceID: sourceID,
		DocType:  docType,
		RawText:  rawText,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.SourceID == "" {
		return fmt.Errorf("document SourceID is required")
	}
	if !isValidDocType(d.DocType) {
		return fmt.Errorf("document DocType is invalid: %s", d.DocType)
	}
	return nil
}

func isValidDocType(t DocType) bool {
	switch t {
	case DocTypeJobDescription, DocTypeScoringRubric, DocTypeCaseStudyBrief,
		DocTypeCandidateResume, DocTypeProjectReport:
		return true
	}
	return false
}

// DocTypeRegistry maps source names to document types. Ingestion resolves
// types through an explicit registration step instead of scattering filename
// string-matching across the pipeline.
type DocTypeRegistry struct {
	byStem map[string]DocType
}

// NewDocTypeRegistry creates an empty registry.
func NewDocTypeRegistry() *DocTypeRegistry {
	return &DocTypeRegistry{byStem: make(map[string]DocType)}
}

// DefaultDocTypeRegistry returns a registry covering the standard ground-truth
// document names.
func DefaultDocTypeRegistry() *DocTypeRegistry {
	r := NewDocTypeRegistry()
	r.Register("job_description", DocTypeJobDescription)
	r.Register("cv_scoring_rubric", DocTypeScoringRubric)
	r.Register("project_scoring_rubric", DocTypeScoringRubric)
	r.Register("scoring_rubric", DocTypeScoringRubric)
	r.Register("case_study_brief", DocTypeCaseStudyBrief)
	return r
}

// Register associates a source name stem (filename without extension) with a
// document type. Registration is case-insensitive.
func (r *DocTypeRegistry) Register(stem string, docType DocType) {
	r.byStem[strings.ToLower(stem)] = docType
}

// Resolve returns the document type for a source filename. The extension is
// stripped before lookup.
func (r *DocTypeRegistry) Resolve(filename string) (DocType, bool) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	t, ok := r.byStem[strings.ToLower(stem)]
	return t, ok
}
