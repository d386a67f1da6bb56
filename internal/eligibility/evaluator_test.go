// internal/eligibility/evaluator_test.go
package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func validProfile() *models.ApplicantProfile {
	return &models.ApplicantProfile{
		ID:        "prof-1",
		UserID:    "user-1",
		Name:      "Ravi Kumar",
		Role:      models.RoleFarmer,
		FarmSize:  1.5,
		CropTypes: []string{"Wheat"},
		Category:  models.CategorySmall,
		State:     "Punjab",
		Active:    true,
	}
}

func activeScheme(rules models.EligibilityRules) *models.Scheme {
	return &models.Scheme{
		ID:       "scheme-1",
		Name:     "Income Support",
		Category: models.SchemeCategorySubsidy,
		Provider: "Ministry of Agriculture",
		Rules:    rules,
		Benefit:  models.Benefit{Type: models.BenefitMonetary, Amount: 6000},
		Active:   true,
		Priority: 8,
	}
}

func TestEvaluate_EmptyRuleSet(t *testing.T) {
	ev := NewEvaluator()

	result, err := ev.Evaluate(validProfile(), activeScheme(models.EligibilityRules{}))
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Criteria)
}

func TestEvaluate_AllRulesPass(t *testing.T) {
	ev := NewEvaluator()

	scheme := activeScheme(models.EligibilityRules{
		FarmSize:   &models.Range{Max: floatPtr(2)},
		Categories: []models.FarmCategory{models.CategoryMarginal, models.CategorySmall},
	})

	result, err := ev.Evaluate(validProfile(), scheme)
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 100, result.Score)
	require.Len(t, result.Criteria, 2)
	for _, c := range result.Criteria {
		assert.Equal(t, models.CriterionPassed, c.Status)
	}
}

func TestEvaluate_SingleFailure(t *testing.T) {
	ev := NewEvaluator()

	profile := validProfile()
	profile.Category = models.CategoryLarge
	profile.FarmSize = 12

	scheme := activeScheme(models.EligibilityRules{
		Categories: []models.FarmCategory{models.CategoryMarginal, models.CategorySmall},
	})

	result, err := ev.Evaluate(profile, scheme)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.Score)
	require.Len(t, result.Criteria, 1)
	assert.Equal(t, "farm category", result.Criteria[0].Name)
	assert.Equal(t, models.CriterionFailed, result.Criteria[0].Status)
	assert.NotEmpty(t, result.Criteria[0].Message)
}

func TestEvaluate_PartialScore(t *testing.T) {
	ev := NewEvaluator()

	profile := validProfile()
	profile.State = "Kerala"

	// Three rules specified, state fails: round(100 * 2/3) = 67.
	scheme := activeScheme(models.EligibilityRules{
		FarmSize:   &models.Range{Max: floatPtr(2)},
		Categories: []models.FarmCategory{models.CategorySmall},
		States:     []string{"Punjab", "Haryana"},
	})

	result, err := ev.Evaluate(profile, scheme)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, 67, result.Score)
	assert.Len(t, result.Criteria, 3)
}

func TestEvaluate_SkippedRuleExcludedFromScore(t *testing.T) {
	ev := NewEvaluator()

	// Profile has no date of birth, so the age rule is skipped and the
	// denominator only counts the remaining rule.
	scheme := activeScheme(models.EligibilityRules{
		Age:      &models.Range{Min: floatPtr(18), Max: floatPtr(60)},
		FarmSize: &models.Range{Max: floatPtr(2)},
	})

	result, err := ev.Evaluate(validProfile(), scheme)
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 100, result.Score)
	require.Len(t, result.Criteria, 2)

	byName := map[string]models.CriterionStatus{}
	for _, c := range result.Criteria {
		byName[c.Name] = c.Status
	}
	assert.Equal(t, models.CriterionSkipped, byName["age"])
	assert.Equal(t, models.CriterionPassed, byName["farm size"])
}

func TestEvaluate_AgeRule(t *testing.T) {
	ev := NewEvaluator()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		dob        time.Time
		wantStatus models.CriterionStatus
	}{
		{"within range", time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC), models.CriterionPassed},
		{"too young", time.Date(2012, 3, 10, 0, 0, 0, 0, time.UTC), models.CriterionFailed},
		{"too old", time.Date(1950, 7, 1, 0, 0, 0, 0, time.UTC), models.CriterionFailed},
		{"boundary birthday not yet reached", time.Date(2008, 7, 1, 0, 0, 0, 0, time.UTC), models.CriterionFailed},
	}

	scheme := activeScheme(models.EligibilityRules{
		Age: &models.Range{Min: floatPtr(18), Max: floatPtr(60)},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := validProfile()
			dob := tt.dob
			profile.DateOfBirth = &dob

			result, err := ev.EvaluateAt(profile, scheme, now)
			require.NoError(t, err)
			require.Len(t, result.Criteria, 1)
			assert.Equal(t, tt.wantStatus, result.Criteria[0].Status)
		})
	}
}

func TestEvaluate_CropOverlap(t *testing.T) {
	ev := NewEvaluator()

	tests := []struct {
		name     string
		crops    []string
		expected bool
	}{
		{"overlap on one crop", []string{"Rice", "Wheat"}, true},
		{"no overlap", []string{"Cotton"}, false},
	}

	scheme := activeScheme(models.EligibilityRules{
		Crops: []string{"Wheat", "Maize"},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := validProfile()
			profile.CropTypes = tt.crops

			result, err := ev.Evaluate(profile, scheme)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Passed)
		})
	}
}

func TestEvaluate_OpenEndedRanges(t *testing.T) {
	ev := NewEvaluator()

	profile := validProfile()
	profile.AnnualIncome = 250000

	// Only a lower bound: any income at or above it passes.
	scheme := activeScheme(models.EligibilityRules{
		AnnualIncome: &models.Range{Min: floatPtr(100000)},
	})

	result, err := ev.Evaluate(profile, scheme)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestEvaluate_InactiveScheme(t *testing.T) {
	ev := NewEvaluator()

	scheme := activeScheme(models.EligibilityRules{})
	scheme.Active = false

	_, err := ev.Evaluate(validProfile(), scheme)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestEvaluate_InvalidProfile(t *testing.T) {
	ev := NewEvaluator()
	scheme := activeScheme(models.EligibilityRules{})

	tests := []struct {
		name   string
		mutate func(p *models.ApplicantProfile)
	}{
		{"nil profile", nil},
		{"zero farm size", func(p *models.ApplicantProfile) { p.FarmSize = 0 }},
		{"unknown category", func(p *models.ApplicantProfile) { p.Category = "huge" }},
		{"no crops", func(p *models.ApplicantProfile) { p.CropTypes = nil }},
		{"no state", func(p *models.ApplicantProfile) { p.State = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profile *models.ApplicantProfile
			if tt.mutate != nil {
				profile = validProfile()
				tt.mutate(profile)
			}

			_, err := ev.Evaluate(profile, scheme)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	ev := NewEvaluator()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	scheme := activeScheme(models.EligibilityRules{
		FarmSize:   &models.Range{Max: floatPtr(2)},
		Categories: []models.FarmCategory{models.CategorySmall},
		States:     []string{"Punjab"},
	})

	first, err := ev.EvaluateAt(validProfile(), scheme, now)
	require.NoError(t, err)
	second, err := ev.EvaluateAt(validProfile(), scheme, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
