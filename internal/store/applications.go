// internal/store/applications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/models"

	"github.com/lib/pq"
)

// ApplicationStore persists applications in Postgres. Status updates carry an
// optimistic version check: the losing side of a concurrent transition gets
// an APPLICATION_LOCKED error instead of silently overwriting state.
type ApplicationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewApplicationStore(db *sql.DB, log logger.Logger) *ApplicationStore {
	return &ApplicationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "applications"}),
	}
}

const applicationColumns = `
	application_id, applicant_id, scheme_id, snapshot, status,
	match_score, eligibility_check, approved_amount, rejection_reason,
	review_notes, disbursement, timeline, version, created_at, updated_at`

// Create inserts a new application record.
func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	snapshot, timeline, eligibility, disbursement, err := marshalApplication(app)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		app.ApplicationID, app.ApplicantID, app.SchemeID, snapshot, app.Status,
		app.MatchScore, eligibility, nullFloat(app.ApprovedAmount), app.RejectionReason,
		app.ReviewNotes, disbursement, timeline, app.Version, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.NewInvalidInputError(fmt.Sprintf("applicationId %s already exists", app.ApplicationID))
		}
		return errors.NewQueryExecutionFailedError("applications.create", err)
	}

	s.appendAudit(ctx, "application_created", app.ApplicationID, map[string]interface{}{
		"applicantId": app.ApplicantID,
		"schemeId":    app.SchemeID,
	})
	return nil
}

// FindByID loads one application.
func (s *ApplicationStore) FindByID(ctx context.Context, applicationID string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE application_id = $1`, applicationID)
	return scanApplication(row)
}

// Update replaces the snapshot of a draft without advancing the lifecycle.
// It still bumps the version so concurrent editors cannot clobber each other.
func (s *ApplicationStore) Update(ctx context.Context, app *models.Application) error {
	snapshot, err := json.Marshal(app.Snapshot)
	if err != nil {
		return errors.NewInvalidInputError("snapshot not serializable: " + err.Error())
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET snapshot = $1, updated_at = $2, version = version + 1
		WHERE application_id = $3 AND version = $4`,
		snapshot, app.UpdatedAt, app.ApplicationID, app.Version,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("applications.update", err)
	}
	if err := s.checkVersionedWrite(ctx, res, app.ApplicationID); err != nil {
		return err
	}
	app.Version++
	return nil
}

// UpdateStatus persists a lifecycle transition with the optimistic version
// check, then records a best-effort audit row.
func (s *ApplicationStore) UpdateStatus(ctx context.Context, app *models.Application) error {
	_, timeline, eligibility, disbursement, err := marshalApplication(app)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $1, match_score = $2, eligibility_check = $3,
		    approved_amount = $4, rejection_reason = $5, review_notes = $6,
		    disbursement = $7, timeline = $8, updated_at = $9,
		    version = version + 1
		WHERE application_id = $10 AND version = $11`,
		app.Status, app.MatchScore, eligibility,
		nullFloat(app.ApprovedAmount), app.RejectionReason, app.ReviewNotes,
		disbursement, timeline, app.UpdatedAt,
		app.ApplicationID, app.Version,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("applications.updateStatus", err)
	}
	if err := s.checkVersionedWrite(ctx, res, app.ApplicationID); err != nil {
		return err
	}
	app.Version++

	s.appendAudit(ctx, "application_status_changed", app.ApplicationID, map[string]interface{}{
		"status":     app.Status,
		"matchScore": app.MatchScore,
	})
	return nil
}

// ListByApplicant returns all applications belonging to one applicant, newest
// first.
func (s *ApplicationStore) ListByApplicant(ctx context.Context, applicantID string) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE applicant_id = $1
		ORDER BY created_at DESC`, applicantID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("applications.listByApplicant", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("applications.listByApplicant", err)
	}
	return apps, nil
}

// HasSubmittedForScheme reports whether any non-draft application references
// the scheme; the catalog uses it to freeze substantive scheme edits.
func (s *ApplicationStore) HasSubmittedForScheme(ctx context.Context, schemeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE scheme_id = $1 AND status <> 'draft'
		)`, schemeID).Scan(&exists)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("applications.hasSubmittedForScheme", err)
	}
	return exists, nil
}

// checkVersionedWrite distinguishes a missing record from a version conflict
// when a guarded UPDATE touched no rows.
func (s *ApplicationStore) checkVersionedWrite(ctx context.Context, res sql.Result, applicationID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("applications.rowsAffected", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM applications WHERE application_id = $1)`,
		applicationID).Scan(&exists)
	if err != nil {
		return errors.NewQueryExecutionFailedError("applications.existsCheck", err)
	}
	if !exists {
		return errors.NewNotFoundError("application", applicationID)
	}
	return errors.NewApplicationLockedError(fmt.Sprintf("application %s was modified concurrently", applicationID))
}

// appendAudit writes an audit row; failures are logged, never propagated.
func (s *ApplicationStore) appendAudit(ctx context.Context, eventType, resourceID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, 'application', $2, $3, NOW())`,
		eventType, resourceID, detailsJSON,
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": resourceID,
		})
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app                    models.Application
		snapshot, timeline     []byte
		eligibility, disbursed []byte
		approvedAmount         sql.NullFloat64
	)
	err := row.Scan(
		&app.ApplicationID, &app.ApplicantID, &app.SchemeID, &snapshot, &app.Status,
		&app.MatchScore, &eligibility, &approvedAmount, &app.RejectionReason,
		&app.ReviewNotes, &disbursed, &timeline, &app.Version, &app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("application", "")
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("applications.scan", err)
	}

	if err := json.Unmarshal(snapshot, &app.Snapshot); err != nil {
		return nil, errors.NewQueryExecutionFailedError("applications.snapshot", err)
	}
	if err := json.Unmarshal(timeline, &app.Timeline); err != nil {
		return nil, errors.NewQueryExecutionFailedError("applications.timeline", err)
	}
	if len(eligibility) > 0 {
		app.EligibilityCheck = &models.EligibilityResult{}
		if err := json.Unmarshal(eligibility, app.EligibilityCheck); err != nil {
			return nil, errors.NewQueryExecutionFailedError("applications.eligibilityCheck", err)
		}
	}
	if len(disbursed) > 0 {
		app.Disbursement = &models.Disbursement{}
		if err := json.Unmarshal(disbursed, app.Disbursement); err != nil {
			return nil, errors.NewQueryExecutionFailedError("applications.disbursement", err)
		}
	}
	if approvedAmount.Valid {
		app.ApprovedAmount = &approvedAmount.Float64
	}
	return &app, nil
}

func marshalApplication(app *models.Application) (snapshot, timeline, eligibility, disbursement []byte, err error) {
	if snapshot, err = json.Marshal(app.Snapshot); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("snapshot not serializable: " + err.Error())
	}
	if timeline, err = json.Marshal(app.Timeline); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("timeline not serializable: " + err.Error())
	}
	if app.EligibilityCheck != nil {
		if eligibility, err = json.Marshal(app.EligibilityCheck); err != nil {
			return nil, nil, nil, nil, errors.NewInvalidInputError("eligibilityCheck not serializable: " + err.Error())
		}
	}
	if app.Disbursement != nil {
		if disbursement, err = json.Marshal(app.Disbursement); err != nil {
			return nil, nil, nil, nil, errors.NewInvalidInputError("disbursement not serializable: " + err.Error())
		}
	}
	return snapshot, timeline, eligibility, disbursement, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
