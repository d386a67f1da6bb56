// internal/models/applicant.go
package models

import "time"

// Role identifies the kind of account acting on the system.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
)

// FarmCategory buckets a holding by size, following the standard
// marginal/small/medium/large classification used by scheme providers.
type FarmCategory string

const (
	CategoryMarginal FarmCategory = "marginal"
	CategorySmall    FarmCategory = "small"
	CategoryMedium   FarmCategory = "medium"
	CategoryLarge    FarmCategory = "large"
)

// ValidFarmCategory reports whether c is one of the known categories.
func ValidFarmCategory(c FarmCategory) bool {
	switch c {
	case CategoryMarginal, CategorySmall, CategoryMedium, CategoryLarge:
		return true
	}
	return false
}

// ApplicantProfile holds the farming and identity attributes used to test
// scheme eligibility. Profiles are owned by the user account; they are never
// deleted, only deactivated.
type ApplicantProfile struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`

	FarmSize          float64      `json:"farmSize"` // hectares
	CropTypes         []string     `json:"cropTypes"`
	OwnershipType     string       `json:"ownershipType"`
	FarmingExperience int          `json:"farmingExperience"` // years
	AnnualIncome      float64      `json:"annualIncome"`
	Category          FarmCategory `json:"category"`

	State    string `json:"state"`
	District string `json:"district"`
	Village  string `json:"village,omitempty"`
	Pincode  string `json:"pincode,omitempty"`

	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AgeAt returns the applicant's age in whole years at the given instant,
// or false when no date of birth is recorded.
func (p *ApplicantProfile) AgeAt(now time.Time) (int, bool) {
	if p.DateOfBirth == nil {
		return 0, false
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age, true
}

// HasCrop reports whether the profile lists the given crop type.
func (p *ApplicantProfile) HasCrop(crop string) bool {
	for _, c := range p.CropTypes {
		if c == crop {
			return true
		}
	}
	return false
}
