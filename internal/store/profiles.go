// internal/store/profiles.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/models"
)

// ProfileStore persists applicant profiles in Postgres. Profiles are never
// deleted, only deactivated.
type ProfileStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewProfileStore(db *sql.DB, log logger.Logger) *ProfileStore {
	return &ProfileStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "profiles"}),
	}
}

const profileColumns = `
	id, user_id, name, role, farm_size, crop_types, ownership_type,
	farming_experience, annual_income, category, state, district, village,
	pincode, date_of_birth, active, created_at, updated_at`

// GetProfile loads the profile owned by the given user.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*models.ApplicantProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM applicant_profiles WHERE user_id = $1`, userID)

	var (
		p     models.ApplicantProfile
		crops []byte
		dob   sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Role, &p.FarmSize, &crops, &p.OwnershipType,
		&p.FarmingExperience, &p.AnnualIncome, &p.Category, &p.State, &p.District,
		&p.Village, &p.Pincode, &dob, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("profile", userID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("profiles.get", err)
	}

	if len(crops) > 0 {
		if err := json.Unmarshal(crops, &p.CropTypes); err != nil {
			return nil, errors.NewQueryExecutionFailedError("profiles.cropTypes", err)
		}
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	return &p, nil
}

// Save upserts a profile keyed by user_id. Only the owner or an admin may
// reach this through the API surface.
func (s *ProfileStore) Save(ctx context.Context, p *models.ApplicantProfile) error {
	crops, err := json.Marshal(p.CropTypes)
	if err != nil {
		return errors.NewInvalidInputError("cropTypes not serializable: " + err.Error())
	}

	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	var dob sql.NullTime
	if p.DateOfBirth != nil {
		dob = sql.NullTime{Time: *p.DateOfBirth, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applicant_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name, role = EXCLUDED.role,
			farm_size = EXCLUDED.farm_size, crop_types = EXCLUDED.crop_types,
			ownership_type = EXCLUDED.ownership_type,
			farming_experience = EXCLUDED.farming_experience,
			annual_income = EXCLUDED.annual_income, category = EXCLUDED.category,
			state = EXCLUDED.state, district = EXCLUDED.district,
			village = EXCLUDED.village, pincode = EXCLUDED.pincode,
			date_of_birth = EXCLUDED.date_of_birth, active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.Name, p.Role, p.FarmSize, crops, p.OwnershipType,
		p.FarmingExperience, p.AnnualIncome, p.Category, p.State, p.District,
		p.Village, p.Pincode, dob, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("profiles.save", err)
	}
	return nil
}

// Deactivate marks a profile inactive without removing it.
func (s *ProfileStore) Deactivate(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applicant_profiles SET active = false, updated_at = NOW()
		WHERE user_id = $1`, userID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("profiles.deactivate", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("profiles.rowsAffected", err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("profile", userID)
	}
	return nil
}
