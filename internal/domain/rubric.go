package domain

import "fmt"

const weightSumTolerance = 0.001

// Criterion is one named scoring dimension of a rubric.
type Criterion struct {
	Name   string
	Weight float64
	Min    float64
	Max    float64
}

// Rubric is a structured scoring guide: named criteria with value ranges and
// optional weights. A rubric with all-zero weights is unweighted and scored
// by plain mean.
type Rubric struct {
	Name     string
	Criteria []Criterion
}

// ValidateRubric rejects rubrics with duplicate criterion names, inverted
// ranges, or declared weights that do not sum to 1.0. Silently normalizing
// bad weights would hide authoring mistakes, so they are treated as errors.
func ValidateRubric(r *Rubric) error {
	if r == nil {
		return fmt.Errorf("rubric cannot be nil")
	}
	if len(r.Criteria) == 0 {
		return fmt.Errorf("rubric %q has no criteria", r.Name)
	}

	seen := make(map[string]bool, len(r.Criteria))
	weightSum := 0.0
	weighted := false
	for _, c := range r.Criteria {
		if c.Name == "" {
			return fmt.Errorf("rubric %q has a criterion with no name", r.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("rubric %q declares criterion %q more than once", r.Name, c.Name)
		}
		seen[c.Name] = true

		if c.Weight < 0 {
			return fmt.Errorf("rubric %q criterion %q has negative weight", r.Name, c.Name)
		}
		if c.Weight > 0 {
			weighted = true
		}
		if c.Max <= c.Min {
			return fmt.Errorf("rubric %q criterion %q has invalid range [%v, %v]", r.Name, c.Name, c.Min, c.Max)
		}
		weightSum += c.Weight
	}

	if weighted && (weightSum < 1-weightSumTolerance || weightSum > 1+weightSumTolerance) {
		return fmt.Errorf("rubric %q weights sum to %v, expected 1.0", r.Name, weightSum)
	}

	return nil
}

// Weighted reports whether the rubric declares criterion weights.
func (r *Rubric) Weighted() bool {
	for _, c := range r.Criteria {
		if c.Weight > 0 {
			return true
		}
	}
	return false
}

// Criterion returns the named criterion, if declared.
func (r *Rubric) Criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Aggregate computes the overall score for a full set of criterion scores:
// the weighted sum when the rubric declares weights, otherwise the plain
// mean. Criteria missing from scores contribute zero.
func (r *Rubric) Aggregate(scores map[string]float64) float64 {
	if len(r.Criteria) == 0 {
		return 0
	}

	if !r.Weighted() {
		total := 0.0
		for _, c := range r.Criteria {
			total += scores[c.Name]
		}
		return total / float64(len(r.Criteria))
	}

	total := 0.0
	weightSum := 0.0
	for _, c := range r.Criteria {
		total += scores[c.Name] * c.Weight
		weightSum += c.Weight
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// Clamp forces a criterion score into the declared range. The second return
// value reports whether clamping was applied.
func (c Criterion) Clamp(score float64) (float64, bool) {
	if score < c.Min {
		return c.Min, true
	}
	if score > c.Max {
		return c.Max, true
	}
	return score, false
}

// DefaultCVRubric returns the standard CV screening rubric.
func DefaultCVRubric() Rubric {
	return Rubric{
		Name: "cv_scoring_rubric",
		Criteria: []Criterion{
			{Name: "technical_skills", Weight: 0.40, Min: 1, Max: 5},
			{Name: "experience_level", Weight: 0.25, Min: 1, Max: 5},
			{Name: "relevant_achievements", Weight: 0.20, Min: 1, Max: 5},
			{Name: "cultural_fit", Weight: 0.15, Min: 1, Max: 5},
		},
	}
}

// DefaultProjectRubric returns the standard project report rubric.
func DefaultProjectRubric() Rubric {
	return Rubric{
		Name: "project_scoring_rubric",
		Criteria: []Criterion{
			{Name: "correctness", Weight: 0.30, Min: 1, Max: 5},
			{Name: "code_quality", Weight: 0.25, Min: 1, Max: 5},
			{Name: "resilience", Weight: 0.20, Min: 1, Max: 5},
			{Name: "documentation", Weight: 0.15, Min: 1, Max: 5},
			{Name: "creativity", Weight: 0.10, Min: 1, Max: 5},
		},
	}
}
