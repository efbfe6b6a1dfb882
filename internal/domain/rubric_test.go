package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRubric_Defaults(t *testing.T) {
	cv := DefaultCVRubric()
	require.NoError(t, ValidateRubric(&cv))

	project := DefaultProjectRubric()
	require.NoError(t, ValidateRubric(&project))
}

func TestValidateRubric_DuplicateCriterion(t *testing.T) {
	r := Rubric{
		Name: "broken",
		Criteria: []Criterion{
			{Name: "code_quality", Weight: 0.5, Min: 0, Max: 10},
			{Name: "code_quality", Weight: 0.5, Min: 0, Max: 10},
		},
	}

	err := ValidateRubric(&r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestValidateRubric_WeightsMustSumToOne(t *testing.T) {
	r := Rubric{
		Name: "broken",
		Criteria: []Criterion{
			{Name: "a", Weight: 0.5, Min: 0, Max: 10},
			{Name: "b", Weight: 0.3, Min: 0, Max: 10},
		},
	}

	err := ValidateRubric(&r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestValidateRubric_UnweightedIsValid(t *testing.T) {
	r := Rubric{
		Name: "unweighted",
		Criteria: []Criterion{
			{Name: "a", Min: 0, Max: 10},
			{Name: "b", Min: 0, Max: 10},
		},
	}

	require.NoError(t, ValidateRubric(&r))
	assert.False(t, r.Weighted())
}

func TestValidateRubric_InvalidRange(t *testing.T) {
	r := Rubric{
		Name: "broken",
		Criteria: []Criterion{
			{Name: "a", Min: 5, Max: 5},
		},
	}

	assert.Error(t, ValidateRubric(&r))
}

func TestRubric_Aggregate_Weighted(t *testing.T) {
	r := DefaultCVRubric()
	scores := map[string]float64{
		"technical_skills":      4,
		"experience_level":      5,
		"relevant_achievements": 3,
		"cultural_fit":          4,
	}

	// 4*.40 + 5*.25 + 3*.20 + 4*.15 = 4.05
	assert.InDelta(t, 4.05, r.Aggregate(scores), 0.0001)
}

func TestRubric_Aggregate_SingleCriterionWeightOne(t *testing.T) {
	r := Rubric{
		Name: "single",
		Criteria: []Criterion{
			{Name: "code_quality", Weight: 1.0, Min: 0, Max: 10},
		},
	}
	require.NoError(t, ValidateRubric(&r))

	assert.InDelta(t, 8.0, r.Aggregate(map[string]float64{"code_quality": 8}), 0.0001)
}

func TestRubric_Aggregate_UnweightedMean(t *testing.T) {
	r := Rubric{
		Name: "unweighted",
		Criteria: []Criterion{
			{Name: "a", Min: 0, Max: 10},
			{Name: "b", Min: 0, Max: 10},
		},
	}

	assert.InDelta(t, 5.0, r.Aggregate(map[string]float64{"a": 4, "b": 6}), 0.0001)
}

func TestCriterion_Clamp(t *testing.T) {
	c := Criterion{Name: "a", Min: 1, Max: 5}

	score, clamped := c.Clamp(7)
	assert.Equal(t, 5.0, score)
	assert.True(t, clamped)

	score, clamped = c.Clamp(0)
	assert.Equal(t, 1.0, score)
	assert.True(t, clamped)

	score, clamped = c.Clamp(3)
	assert.Equal(t, 3.0, score)
	assert.False(t, clamped)
}
