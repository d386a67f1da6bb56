// internal/models/scheme.go
package models

import "time"

// SchemeCategory classifies a government or institutional benefit program.
type SchemeCategory string

const (
	SchemeCategorySubsidy        SchemeCategory = "subsidy"
	SchemeCategoryInsurance      SchemeCategory = "insurance"
	SchemeCategoryLoan           SchemeCategory = "loan"
	SchemeCategoryTraining       SchemeCategory = "training"
	SchemeCategoryEquipment      SchemeCategory = "equipment"
	SchemeCategoryInfrastructure SchemeCategory = "infrastructure"
)

// BenefitType describes how a scheme pays out.
type BenefitType string

const (
	BenefitMonetary  BenefitType = "monetary"
	BenefitSubsidy   BenefitType = "subsidy"
	BenefitInsurance BenefitType = "insurance"
	BenefitTraining  BenefitType = "training"
	BenefitEquipment BenefitType = "equipment"
)

// RequiresAmount reports whether an approval of this benefit type must carry
// an approved amount.
func (b BenefitType) RequiresAmount() bool {
	return b == BenefitMonetary || b == BenefitSubsidy
}

// Benefit describes what an approved applicant receives.
type Benefit struct {
	Type        BenefitType `json:"type"`
	Amount      float64     `json:"amount,omitempty"`
	Percentage  float64     `json:"percentage,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Range is a numeric eligibility bound. Nil ends are open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the range, treating nil bounds as
// unbounded.
func (r *Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// EligibilityRules is the closed set of rule variants a scheme may specify.
// A nil range or empty list means the dimension is unrestricted.
type EligibilityRules struct {
	FarmSize     *Range         `json:"farmSize,omitempty"`     // hectares
	AnnualIncome *Range         `json:"annualIncome,omitempty"` // per year
	Age          *Range         `json:"age,omitempty"`          // years
	Categories   []FarmCategory `json:"categories,omitempty"`
	Crops        []string       `json:"crops,omitempty"`
	States       []string       `json:"states,omitempty"`

	// Criteria are human-readable descriptions shown alongside the scheme;
	// they are display-only and never evaluated.
	Criteria []string `json:"criteria,omitempty"`
}

// Scheme is a benefit program with fixed eligibility rules. Created and
// updated only by admins; substantive fields are frozen once a submitted
// application references the scheme.
type Scheme struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    SchemeCategory   `json:"category"`
	Provider    string           `json:"provider"`
	Description string           `json:"description,omitempty"`
	Rules       EligibilityRules `json:"eligibilityRules"`
	Benefit     Benefit          `json:"benefit"`

	RequiredDocuments []string `json:"requiredDocuments,omitempty"`
	ProcessSteps      []string `json:"processSteps,omitempty"`

	Active    bool      `json:"active"`
	Priority  int       `json:"priority"` // 1..10, default listing order
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
