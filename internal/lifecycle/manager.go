// internal/lifecycle/manager.go
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/common/metrics"
	"agrischemes/internal/eligibility"
	"agrischemes/internal/models"
)

// ApplicationStore is the persistence capability the manager depends on.
// UpdateStatus must apply an optimistic version check and return an
// APPLICATION_LOCKED error when a concurrent writer got there first.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, applicationID string) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	UpdateStatus(ctx context.Context, app *models.Application) error
	ListByApplicant(ctx context.Context, applicantID string) ([]*models.Application, error)
}

// SchemeResolver resolves a scheme by identifier.
type SchemeResolver interface {
	GetScheme(ctx context.Context, schemeID string) (*models.Scheme, error)
}

// ProfileResolver resolves an applicant profile by user identifier.
type ProfileResolver interface {
	GetProfile(ctx context.Context, userID string) (*models.ApplicantProfile, error)
}

// Actor identifies who is driving an operation.
type Actor struct {
	UserID string
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// TransitionRequest carries an admin-driven status change and the fields the
// target state requires.
type TransitionRequest struct {
	Target          models.ApplicationStatus
	ApprovedAmount  *float64
	RejectionReason string
	ReviewNotes     string
	Disbursement    *models.Disbursement
}

// OperationRecorder receives one measurement per completed core operation.
// A nil recorder disables the meters without branching at every call site.
type OperationRecorder interface {
	RecordOperation(ctx context.Context, operation, status string)
	RecordDuration(ctx context.Context, operation string, duration time.Duration)
}

// Manager owns the application lifecycle: draft creation, submission with
// eligibility evaluation, and the admin-driven transition graph. It applies
// at most one transition at a time per application; concurrent conflicts are
// detected by the store's version check.
type Manager struct {
	apps      ApplicationStore
	schemes   SchemeResolver
	profiles  ProfileResolver
	evaluator *eligibility.Evaluator
	recorder  OperationRecorder
	logger    logger.Logger
}

func NewManager(apps ApplicationStore, schemes SchemeResolver, profiles ProfileResolver, evaluator *eligibility.Evaluator, recorder OperationRecorder, log logger.Logger) *Manager {
	return &Manager{
		apps:      apps,
		schemes:   schemes,
		profiles:  profiles,
		evaluator: evaluator,
		recorder:  recorder,
		logger:    log.WithFields(map[string]interface{}{"component": "lifecycle"}),
	}
}

func (m *Manager) observe(ctx context.Context, operation string, start time.Time, err error) {
	if m.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.recorder.RecordOperation(ctx, operation, status)
	m.recorder.RecordDuration(ctx, operation, time.Since(start))
}

// CreateDraft starts a new application in draft state. The applicationId is
// assigned here, exactly once, and never changes; uniqueness is enforced at
// the persistence boundary.
func (m *Manager) CreateDraft(ctx context.Context, applicantID, schemeID string, snapshot models.Snapshot) (*models.Application, error) {
	profile, err := m.profiles.GetProfile(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if !profile.Active {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("profile %s is deactivated", applicantID))
	}

	scheme, err := m.schemes.GetScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	if !scheme.Active {
		return nil, errors.NewSchemeInactiveError(schemeID)
	}

	now := time.Now().UTC()
	app := &models.Application{
		ApplicationID: NewApplicationID(now),
		ApplicantID:   applicantID,
		SchemeID:      schemeID,
		Snapshot:      snapshot,
		Status:        models.StatusDraft,
		Timeline:      models.Timeline{CreatedAt: now},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	m.logger.Info("application draft created", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"applicantId":   applicantID,
		"schemeId":      schemeID,
	})
	return app, nil
}

// UpdateDraft replaces the snapshot of a draft application. Drafts may be
// edited freely by their owner; anything past draft is locked for non-admin
// edits.
func (m *Manager) UpdateDraft(ctx context.Context, applicationID string, snapshot models.Snapshot, actor Actor) (*models.Application, error) {
	app, err := m.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.UserID && !actor.IsAdmin() {
		return nil, errors.NewForbiddenError(fmt.Sprintf("user %s does not own application %s", actor.UserID, applicationID))
	}
	if app.Status != models.StatusDraft {
		return nil, errors.NewApplicationLockedError(fmt.Sprintf("application %s is %s", applicationID, app.Status))
	}

	app.Snapshot = snapshot
	app.UpdatedAt = time.Now().UTC()
	if err := m.apps.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit moves a draft to submitted: it checks section completeness, runs the
// eligibility evaluation against the snapshot, stores the result, and stamps
// the timeline. Submitting anything other than a draft is an invalid
// transition, not a re-evaluation.
func (m *Manager) Submit(ctx context.Context, applicationID string, actor Actor) (*models.Application, error) {
	start := time.Now()
	app, err := m.submit(ctx, applicationID, actor)
	m.observe(ctx, "submit", start, err)
	return app, err
}

func (m *Manager) submit(ctx context.Context, applicationID string, actor Actor) (*models.Application, error) {
	app, err := m.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.UserID && !actor.IsAdmin() {
		return nil, errors.NewForbiddenError(fmt.Sprintf("user %s does not own application %s", actor.UserID, applicationID))
	}
	if app.Status != models.StatusDraft {
		metrics.ApplicationTransitionFailures.WithLabelValues(string(errors.ErrCodeInvalidTransition)).Inc()
		return nil, errors.NewInvalidTransitionError(string(app.Status), string(models.StatusSubmitted))
	}

	if missing := missingSections(&app.Snapshot); len(missing) > 0 {
		return nil, errors.NewInvalidInputError("application incomplete: " + strings.Join(missing, ", "))
	}

	scheme, err := m.schemes.GetScheme(ctx, app.SchemeID)
	if err != nil {
		return nil, err
	}

	// Evaluate against the snapshot, not the live profile: the stored result
	// must reflect the data as of submission.
	result, err := m.evaluator.Evaluate(profileFromSnapshot(app.ApplicantID, &app.Snapshot), scheme)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app.Status = models.StatusSubmitted
	app.MatchScore = result.Score
	app.EligibilityCheck = result
	app.Timeline.SubmittedAt = &now
	app.UpdatedAt = now

	if err := m.apps.UpdateStatus(ctx, app); err != nil {
		return nil, err
	}

	metrics.ApplicationTransitions.WithLabelValues(string(models.StatusDraft), string(models.StatusSubmitted)).Inc()
	metrics.EligibilityScore.Observe(float64(result.Score))
	if result.Passed {
		metrics.EligibilityEvaluations.WithLabelValues("passed").Inc()
	} else {
		metrics.EligibilityEvaluations.WithLabelValues("failed").Inc()
	}

	m.logger.Info("application submitted", map[string]interface{}{
		"applicationId": applicationID,
		"schemeId":      app.SchemeID,
		"matchScore":    result.Score,
		"passed":        result.Passed,
	})
	return app, nil
}

// Transition applies an admin-driven status change. The transition graph is
// closed: any edge it does not contain fails with INVALID_TRANSITION and
// leaves the record unchanged.
func (m *Manager) Transition(ctx context.Context, applicationID string, req TransitionRequest, actor Actor) (*models.Application, error) {
	start := time.Now()
	app, err := m.transition(ctx, applicationID, req, actor)
	m.observe(ctx, "transition", start, err)
	return app, err
}

func (m *Manager) transition(ctx context.Context, applicationID string, req TransitionRequest, actor Actor) (*models.Application, error) {
	if !actor.IsAdmin() {
		return nil, errors.NewForbiddenError(fmt.Sprintf("role %s cannot drive application transitions", actor.Role))
	}
	if !models.ValidStatus(req.Target) {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown target status %q", req.Target))
	}

	app, err := m.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// draft→submitted belongs to the applicant via Submit, never to admins.
	if req.Target == models.StatusSubmitted || !models.CanTransition(app.Status, req.Target) {
		metrics.ApplicationTransitionFailures.WithLabelValues(string(errors.ErrCodeInvalidTransition)).Inc()
		return nil, errors.NewInvalidTransitionError(string(app.Status), string(req.Target))
	}

	scheme, err := m.schemes.GetScheme(ctx, app.SchemeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := app.Status

	switch req.Target {
	case models.StatusUnderReview:
		app.Timeline.ReviewedAt = &now

	case models.StatusApproved:
		if scheme.Benefit.Type.RequiresAmount() {
			if req.ApprovedAmount == nil || *req.ApprovedAmount <= 0 {
				return nil, errors.NewInvalidInputError("approvedAmount is required for monetary benefits")
			}
			app.ApprovedAmount = req.ApprovedAmount
		} else if req.ApprovedAmount != nil {
			app.ApprovedAmount = req.ApprovedAmount
		}
		app.Timeline.ApprovedAt = &now

	case models.StatusRejected:
		if strings.TrimSpace(req.RejectionReason) == "" {
			return nil, errors.NewInvalidInputError("rejectionReason is required")
		}
		app.RejectionReason = req.RejectionReason
		app.Timeline.RejectedAt = &now

	case models.StatusDisbursed:
		if err := validateDisbursement(req.Disbursement); err != nil {
			return nil, err
		}
		app.Disbursement = req.Disbursement
		app.Timeline.DisbursedAt = &now
	}

	if req.ReviewNotes != "" {
		app.ReviewNotes = req.ReviewNotes
	}
	app.Status = req.Target
	app.UpdatedAt = now

	if err := m.apps.UpdateStatus(ctx, app); err != nil {
		if errors.IsCode(err, errors.ErrCodeApplicationLocked) {
			metrics.ApplicationTransitionFailures.WithLabelValues(string(errors.ErrCodeApplicationLocked)).Inc()
		}
		return nil, err
	}

	metrics.ApplicationTransitions.WithLabelValues(string(from), string(req.Target)).Inc()
	m.logger.Info("application transitioned", map[string]interface{}{
		"applicationId": applicationID,
		"from":          from,
		"to":            req.Target,
		"adminId":       actor.UserID,
	})
	return app, nil
}

// GetApplication loads a single application.
func (m *Manager) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	return m.apps.FindByID(ctx, applicationID)
}

// ListByApplicant returns every application the applicant has created.
// Callers may only list their own applications unless they are admins.
func (m *Manager) ListByApplicant(ctx context.Context, applicantID string, actor Actor) ([]*models.Application, error) {
	if applicantID != actor.UserID && !actor.IsAdmin() {
		return nil, errors.NewForbiddenError(fmt.Sprintf("user %s cannot list applications of %s", actor.UserID, applicantID))
	}
	return m.apps.ListByApplicant(ctx, applicantID)
}

func validateDisbursement(d *models.Disbursement) error {
	if d == nil {
		return errors.NewInvalidInputError("disbursement details are required")
	}
	var missing []string
	if d.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if d.Date.IsZero() {
		missing = append(missing, "date")
	}
	if d.TransactionRef == "" {
		missing = append(missing, "transactionRef")
	}
	if d.Method == "" {
		missing = append(missing, "method")
	}
	if len(missing) > 0 {
		return errors.NewInvalidInputError("disbursement missing: " + strings.Join(missing, ", "))
	}
	return nil
}

// missingSections checks the mandatory snapshot sections submit requires.
func missingSections(s *models.Snapshot) []string {
	var missing []string
	if s.Personal.Name == "" {
		missing = append(missing, "personal.name")
	}
	if s.Contact.Phone == "" {
		missing = append(missing, "contact.phone")
	}
	if s.Contact.State == "" {
		missing = append(missing, "contact.state")
	}
	if s.Contact.District == "" {
		missing = append(missing, "contact.district")
	}
	if s.Farm.Size <= 0 {
		missing = append(missing, "farm.size")
	}
	if len(s.Farm.Crops) == 0 {
		missing = append(missing, "farm.crops")
	}
	if !models.ValidFarmCategory(s.Farm.Category) {
		missing = append(missing, "farm.category")
	}
	if s.Financial.BankName == "" {
		missing = append(missing, "financial.bankName")
	}
	if s.Financial.AccountNumber == "" {
		missing = append(missing, "financial.accountNumber")
	}
	if s.Financial.IFSC == "" {
		missing = append(missing, "financial.ifsc")
	}
	return missing
}

// profileFromSnapshot projects the submission snapshot onto the evaluator's
// input shape so the stored verdict is independent of later profile edits.
func profileFromSnapshot(applicantID string, s *models.Snapshot) *models.ApplicantProfile {
	return &models.ApplicantProfile{
		ID:                applicantID,
		UserID:            applicantID,
		Name:              s.Personal.Name,
		Role:              models.RoleFarmer,
		FarmSize:          s.Farm.Size,
		CropTypes:         s.Farm.Crops,
		OwnershipType:     s.Farm.OwnershipType,
		FarmingExperience: s.Farm.FarmingExperience,
		AnnualIncome:      s.Financial.AnnualIncome,
		Category:          s.Farm.Category,
		State:             s.Contact.State,
		District:          s.Contact.District,
		Village:           s.Contact.Village,
		Pincode:           s.Contact.Pincode,
		DateOfBirth:       s.Personal.DateOfBirth,
		Active:            true,
	}
}
