// internal/eligibility/evaluator.go
package eligibility

import (
	"fmt"
	"math"
	"strings"
	"time"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/models"
)

// Evaluator tests an applicant profile against a scheme's eligibility rules.
// Evaluation is pure: no stores, no side effects, same inputs same verdict.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs the scheme's rule set against the profile. Aggregate passed
// is true iff every specified rule passes; skipped rules do not count toward
// the score denominator. An empty rule set yields passed=true, score=100.
func (e *Evaluator) Evaluate(profile *models.ApplicantProfile, scheme *models.Scheme) (*models.EligibilityResult, error) {
	return e.EvaluateAt(profile, scheme, time.Now().UTC())
}

// EvaluateAt is Evaluate with an explicit clock, used for age rules.
func (e *Evaluator) EvaluateAt(profile *models.ApplicantProfile, scheme *models.Scheme, now time.Time) (*models.EligibilityResult, error) {
	if err := validateScheme(scheme); err != nil {
		return nil, err
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	criteria := make([]models.CriterionResult, 0)
	evaluated := 0
	passed := 0

	for _, r := range rulesFor(&scheme.Rules, now) {
		status, message := r.evaluate(profile)
		criteria = append(criteria, models.CriterionResult{
			Name:    r.name(),
			Status:  status,
			Message: message,
		})
		if status == models.CriterionSkipped {
			continue
		}
		evaluated++
		if status == models.CriterionPassed {
			passed++
		}
	}

	result := &models.EligibilityResult{
		Passed:      passed == evaluated,
		Score:       100,
		Criteria:    criteria,
		EvaluatedAt: now,
	}
	if evaluated > 0 {
		result.Score = int(math.Round(100 * float64(passed) / float64(evaluated)))
	}
	return result, nil
}

func validateScheme(s *models.Scheme) error {
	if s == nil {
		return errors.NewInvalidInputError("scheme is required")
	}
	if !s.Active {
		return errors.NewInvalidInputError(fmt.Sprintf("scheme %s is inactive", s.ID))
	}
	if s.Benefit.Type == "" {
		return errors.NewInvalidInputError(fmt.Sprintf("scheme %s has no benefit type", s.ID))
	}
	if s.Category == "" {
		return errors.NewInvalidInputError(fmt.Sprintf("scheme %s has no category", s.ID))
	}
	return nil
}

func validateProfile(p *models.ApplicantProfile) error {
	if p == nil {
		return errors.NewInvalidInputError("profile is required")
	}
	var missing []string
	if p.FarmSize <= 0 {
		missing = append(missing, "farmSize")
	}
	if !models.ValidFarmCategory(p.Category) {
		missing = append(missing, "category")
	}
	if len(p.CropTypes) == 0 {
		missing = append(missing, "cropTypes")
	}
	if p.State == "" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return errors.NewInvalidInputError("profile missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
