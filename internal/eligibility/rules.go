// internal/eligibility/rules.go
package eligibility

import (
	"fmt"
	"strings"
	"time"

	"agrischemes/internal/models"
)

// rule is one eligibility criterion. The closed set of variants below (range,
// set membership, list overlap) covers every dimension a scheme can restrict;
// the evaluator treats them uniformly.
type rule interface {
	name() string
	evaluate(p *models.ApplicantProfile) (models.CriterionStatus, string)
}

// rangeRule passes when a numeric profile attribute falls inside the scheme's
// bounds. Open-ended bounds default to unbounded. A value==false result from
// the accessor means the profile does not supply the attribute; the rule is
// skipped rather than failed.
type rangeRule struct {
	label  string
	bounds *models.Range
	unit   string
	value  func(p *models.ApplicantProfile) (float64, bool)
}

func (r *rangeRule) name() string { return r.label }

func (r *rangeRule) evaluate(p *models.ApplicantProfile) (models.CriterionStatus, string) {
	v, ok := r.value(p)
	if !ok {
		return models.CriterionSkipped, fmt.Sprintf("%s not provided, criterion not applicable", r.label)
	}
	if r.bounds.Contains(v) {
		return models.CriterionPassed, fmt.Sprintf("%s %.2f %s is within the required range", r.label, v, r.unit)
	}
	return models.CriterionFailed, fmt.Sprintf("%s %.2f %s is outside the required range %s", r.label, v, r.unit, formatRange(r.bounds))
}

// membershipRule passes when a profile attribute is one of the scheme's
// allowed values. Schemes with an empty allowed set never produce this rule.
type membershipRule struct {
	label   string
	allowed []string
	value   func(p *models.ApplicantProfile) string
}

func (r *membershipRule) name() string { return r.label }

func (r *membershipRule) evaluate(p *models.ApplicantProfile) (models.CriterionStatus, string) {
	v := r.value(p)
	for _, a := range r.allowed {
		if a == v {
			return models.CriterionPassed, fmt.Sprintf("%s %q is eligible", r.label, v)
		}
	}
	return models.CriterionFailed, fmt.Sprintf("%s %q is not among the eligible values: %s", r.label, v, strings.Join(r.allowed, ", "))
}

// overlapRule passes when the profile's list shares at least one entry with
// the scheme's list.
type overlapRule struct {
	label   string
	allowed []string
	values  func(p *models.ApplicantProfile) []string
}

func (r *overlapRule) name() string { return r.label }

func (r *overlapRule) evaluate(p *models.ApplicantProfile) (models.CriterionStatus, string) {
	for _, v := range r.values(p) {
		for _, a := range r.allowed {
			if a == v {
				return models.CriterionPassed, fmt.Sprintf("%s includes eligible entry %q", r.label, v)
			}
		}
	}
	return models.CriterionFailed, fmt.Sprintf("%s has no overlap with the eligible values: %s", r.label, strings.Join(r.allowed, ", "))
}

// rulesFor maps a scheme's rule set onto the typed variants. Unspecified
// dimensions (nil ranges, empty lists) mean no restriction and produce no
// rule at all.
func rulesFor(rs *models.EligibilityRules, now time.Time) []rule {
	var rules []rule

	if rs.FarmSize != nil {
		rules = append(rules, &rangeRule{
			label:  "farm size",
			bounds: rs.FarmSize,
			unit:   "ha",
			value: func(p *models.ApplicantProfile) (float64, bool) {
				return p.FarmSize, p.FarmSize > 0
			},
		})
	}
	if rs.AnnualIncome != nil {
		rules = append(rules, &rangeRule{
			label:  "annual income",
			bounds: rs.AnnualIncome,
			unit:   "per year",
			value: func(p *models.ApplicantProfile) (float64, bool) {
				return p.AnnualIncome, p.AnnualIncome > 0
			},
		})
	}
	if rs.Age != nil {
		rules = append(rules, &rangeRule{
			label:  "age",
			bounds: rs.Age,
			unit:   "years",
			value: func(p *models.ApplicantProfile) (float64, bool) {
				age, ok := p.AgeAt(now)
				return float64(age), ok
			},
		})
	}
	if len(rs.Categories) > 0 {
		allowed := make([]string, len(rs.Categories))
		for i, c := range rs.Categories {
			allowed[i] = string(c)
		}
		rules = append(rules, &membershipRule{
			label:   "farm category",
			allowed: allowed,
			value: func(p *models.ApplicantProfile) string {
				return string(p.Category)
			},
		})
	}
	if len(rs.Crops) > 0 {
		rules = append(rules, &overlapRule{
			label:   "crop types",
			allowed: rs.Crops,
			values: func(p *models.ApplicantProfile) []string {
				return p.CropTypes
			},
		})
	}
	if len(rs.States) > 0 {
		rules = append(rules, &membershipRule{
			label:   "state",
			allowed: rs.States,
			value: func(p *models.ApplicantProfile) string {
				return p.State
			},
		})
	}

	return rules
}

func formatRange(r *models.Range) string {
	min, max := "-", "-"
	if r.Min != nil {
		min = fmt.Sprintf("%.2f", *r.Min)
	}
	if r.Max != nil {
		max = fmt.Sprintf("%.2f", *r.Max)
	}
	return fmt.Sprintf("[%s, %s]", min, max)
}
