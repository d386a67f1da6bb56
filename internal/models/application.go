// internal/models/application.go
package models

import "time"

// ApplicationStatus is the lifecycle state of a scheme application.
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under-review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusDisbursed   ApplicationStatus = "disbursed"
)

// statusTransitions is the closed transition graph. Anything not listed here
// is an invalid transition; rejected and disbursed are terminal.
var statusTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusDisbursed},
	StatusRejected:    {},
	StatusDisbursed:   {},
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s ApplicationStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the graph permits moving from one state to
// the target state.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s ApplicationStatus) bool {
	return len(statusTransitions[s]) == 0
}

// CriterionStatus marks the result of a single eligibility rule.
type CriterionStatus string

const (
	CriterionPassed  CriterionStatus = "passed"
	CriterionFailed  CriterionStatus = "failed"
	CriterionSkipped CriterionStatus = "skipped"
)

// CriterionResult is the verdict for one eligibility rule.
type CriterionResult struct {
	Name    string          `json:"name"`
	Status  CriterionStatus `json:"status"`
	Message string          `json:"message"`
}

// EligibilityResult is the outcome of evaluating a profile against a
// scheme's rule set.
type EligibilityResult struct {
	Passed      bool              `json:"passed"`
	Score       int               `json:"score"` // 0..100
	Criteria    []CriterionResult `json:"criteria"`
	EvaluatedAt time.Time         `json:"evaluatedAt"`
}

// PersonalDetails is the identity section of an application snapshot.
type PersonalDetails struct {
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	IDNumber    string     `json:"idNumber,omitempty"`
}

// ContactDetails is the contact section of an application snapshot.
type ContactDetails struct {
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	Village  string `json:"village,omitempty"`
	District string `json:"district"`
	State    string `json:"state"`
	Pincode  string `json:"pincode,omitempty"`
}

// FarmDetails is the holding section of an application snapshot.
type FarmDetails struct {
	Size              float64      `json:"size"` // hectares
	OwnershipType     string       `json:"ownershipType,omitempty"`
	Crops             []string     `json:"crops"`
	Category          FarmCategory `json:"category"`
	FarmingExperience int          `json:"farmingExperience,omitempty"`
}

// FinancialDetails is the income and bank section of an application snapshot.
type FinancialDetails struct {
	AnnualIncome  float64 `json:"annualIncome"`
	BankName      string  `json:"bankName"`
	AccountNumber string  `json:"accountNumber"`
	IFSC          string  `json:"ifsc"`
}

// Snapshot captures the applicant's details as of submission time. An
// approved application must reflect this snapshot, not the live profile.
type Snapshot struct {
	Personal  PersonalDetails  `json:"personal"`
	Contact   ContactDetails   `json:"contact"`
	Farm      FarmDetails      `json:"farm"`
	Financial FinancialDetails `json:"financial"`
}

// Disbursement records how an approved benefit was paid out.
type Disbursement struct {
	Amount         float64   `json:"amount"`
	Date           time.Time `json:"date"`
	TransactionRef string    `json:"transactionRef"`
	Method         string    `json:"method"`
}

// Timeline records when each lifecycle transition happened.
type Timeline struct {
	CreatedAt   time.Time  `json:"createdAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	RejectedAt  *time.Time `json:"rejectedAt,omitempty"`
	DisbursedAt *time.Time `json:"disbursedAt,omitempty"`
}

// Application is one applicant's application to one scheme. Records are
// never deleted; rejected and disbursed applications are kept for audit.
type Application struct {
	ApplicationID string `json:"applicationId"`
	ApplicantID   string `json:"applicantId"`
	SchemeID      string `json:"schemeId"`

	Snapshot Snapshot          `json:"snapshot"`
	Status   ApplicationStatus `json:"status"`

	MatchScore       int                `json:"matchScore"`
	EligibilityCheck *EligibilityResult `json:"eligibilityCheck,omitempty"`

	ApprovedAmount  *float64      `json:"approvedAmount,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	ReviewNotes     string        `json:"reviewNotes,omitempty"`
	Disbursement    *Disbursement `json:"disbursement,omitempty"`

	Timeline Timeline `json:"timeline"`

	// Version backs the optimistic concurrency check at the persistence
	// boundary; it increments on every status update.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
