// internal/store/applications_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/models"
)

func newAppStore(t *testing.T) (*ApplicationStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApplicationStore(db, logger.NewNoOpLogger()), mock
}

func sampleApplication() *models.Application {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	return &models.Application{
		ApplicationID: "AGS-M1X2K3ZQ-9F41C7",
		ApplicantID:   "user-1",
		SchemeID:      "scheme-1",
		Snapshot: models.Snapshot{
			Personal: models.PersonalDetails{Name: "Ravi Kumar"},
			Contact:  models.ContactDetails{Phone: "9876543210", State: "Punjab", District: "Ludhiana"},
			Farm:     models.FarmDetails{Size: 1.5, Crops: []string{"Wheat"}, Category: models.CategorySmall},
			Financial: models.FinancialDetails{
				AnnualIncome: 180000, BankName: "SBI", AccountNumber: "1234567890", IFSC: "SBIN0001234",
			},
		},
		Status:    models.StatusDraft,
		Timeline:  models.Timeline{CreatedAt: now},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applicationRow(t *testing.T, app *models.Application) *sqlmock.Rows {
	t.Helper()
	snapshot, err := json.Marshal(app.Snapshot)
	require.NoError(t, err)
	timeline, err := json.Marshal(app.Timeline)
	require.NoError(t, err)

	var eligibility []byte
	if app.EligibilityCheck != nil {
		eligibility, err = json.Marshal(app.EligibilityCheck)
		require.NoError(t, err)
	}

	return sqlmock.NewRows([]string{
		"application_id", "applicant_id", "scheme_id", "snapshot", "status",
		"match_score", "eligibility_check", "approved_amount", "rejection_reason",
		"review_notes", "disbursement", "timeline", "version", "created_at", "updated_at",
	}).AddRow(
		app.ApplicationID, app.ApplicantID, app.SchemeID, snapshot, app.Status,
		app.MatchScore, eligibility, nil, app.RejectionReason,
		app.ReviewNotes, nil, timeline, app.Version, app.CreatedAt, app.UpdatedAt,
	)
}

func TestApplicationCreate(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), app)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreate_DuplicateID(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Create(context.Background(), app)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestApplicationFindByID(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectQuery("SELECT (.+) FROM applications WHERE application_id").
		WithArgs(app.ApplicationID).
		WillReturnRows(applicationRow(t, app))

	found, err := store.FindByID(context.Background(), app.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, app.ApplicationID, found.ApplicationID)
	assert.Equal(t, app.Snapshot, found.Snapshot)
	assert.Equal(t, 1, found.Version)
}

func TestApplicationFindByID_NotFound(t *testing.T) {
	store, mock := newAppStore(t)

	mock.ExpectQuery("SELECT (.+) FROM applications WHERE application_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"application_id"}))

	_, err := store.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestUpdateStatus(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()
	app.Status = models.StatusSubmitted
	app.MatchScore = 100

	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateStatus(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, 2, app.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_VersionConflict(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(app.ApplicationID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.UpdateStatus(context.Background(), app)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeApplicationLocked))
	assert.Equal(t, 1, app.Version)
}

func TestUpdateStatus_MissingRecord(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(app.ApplicationID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.UpdateStatus(context.Background(), app)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestHasSubmittedForScheme(t *testing.T) {
	store, mock := newAppStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("scheme-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	frozen, err := store.HasSubmittedForScheme(context.Background(), "scheme-1")
	require.NoError(t, err)
	assert.True(t, frozen)
}

func TestListByApplicant(t *testing.T) {
	store, mock := newAppStore(t)
	app := sampleApplication()

	mock.ExpectQuery("SELECT (.+) FROM applications WHERE applicant_id").
		WithArgs("user-1").
		WillReturnRows(applicationRow(t, app))

	apps, err := store.ListByApplicant(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, app.ApplicationID, apps[0].ApplicationID)
}
