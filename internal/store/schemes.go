// internal/store/schemes.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/models"

	"github.com/lib/pq"
	"github.com/google/uuid"
)

// SchemeFilter narrows a catalog listing. Empty fields do not filter.
type SchemeFilter struct {
	Category   models.SchemeCategory
	State      string
	Crop       string
	ActiveOnly bool
	Offset     int
	Limit      int
}

// SchemeStore persists scheme definitions in Postgres. Rules, benefit and
// the document/step lists live in JSONB columns.
type SchemeStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSchemeStore(db *sql.DB, log logger.Logger) *SchemeStore {
	return &SchemeStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "schemes"}),
	}
}

const schemeColumns = `
	id, name, category, provider, description, rules, benefit,
	required_documents, process_steps, active, priority, created_at, updated_at`

// GetScheme loads one scheme by identifier.
func (s *SchemeStore) GetScheme(ctx context.Context, schemeID string) (*models.Scheme, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+schemeColumns+`
		FROM schemes WHERE id = $1`, schemeID)
	scheme, err := scanScheme(row)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, errors.NewNotFoundError("scheme", schemeID)
	}
	return scheme, err
}

// List returns schemes matching the filter plus the unpaginated total,
// ordered by priority descending then name.
func (s *SchemeStore) List(ctx context.Context, filter SchemeFilter) ([]*models.Scheme, int, error) {
	where, args := buildSchemeWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schemes`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("schemes.count", err)
	}

	query := `SELECT ` + schemeColumns + ` FROM schemes` + where +
		` ORDER BY priority DESC, name ASC` +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("schemes.list", err)
	}
	defer rows.Close()

	var schemes []*models.Scheme
	for rows.Next() {
		scheme, err := scanScheme(rows)
		if err != nil {
			return nil, 0, err
		}
		schemes = append(schemes, scheme)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("schemes.list", err)
	}
	return schemes, total, nil
}

// Create inserts a new scheme definition. Admin-only at the API surface.
func (s *SchemeStore) Create(ctx context.Context, scheme *models.Scheme) error {
	if scheme.ID == "" {
		scheme.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	scheme.CreatedAt = now
	scheme.UpdatedAt = now
	if scheme.Priority == 0 {
		scheme.Priority = 5
	}

	rules, benefit, docs, steps, err := marshalScheme(scheme)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemes (`+schemeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		scheme.ID, scheme.Name, scheme.Category, scheme.Provider, scheme.Description,
		rules, benefit, docs, steps, scheme.Active, scheme.Priority,
		scheme.CreatedAt, scheme.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.NewInvalidInputError(fmt.Sprintf("scheme %s already exists", scheme.ID))
		}
		return errors.NewQueryExecutionFailedError("schemes.create", err)
	}
	return nil
}

// Update replaces a scheme definition. Substantive-field freezing is
// enforced one level up, in the catalog, which knows whether submitted
// applications reference the scheme.
func (s *SchemeStore) Update(ctx context.Context, scheme *models.Scheme) error {
	scheme.UpdatedAt = time.Now().UTC()
	rules, benefit, docs, steps, err := marshalScheme(scheme)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE schemes
		SET name = $1, category = $2, provider = $3, description = $4,
		    rules = $5, benefit = $6, required_documents = $7, process_steps = $8,
		    active = $9, priority = $10, updated_at = $11
		WHERE id = $12`,
		scheme.Name, scheme.Category, scheme.Provider, scheme.Description,
		rules, benefit, docs, steps, scheme.Active, scheme.Priority,
		scheme.UpdatedAt, scheme.ID,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("schemes.update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("schemes.rowsAffected", err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("scheme", scheme.ID)
	}
	return nil
}

// Deactivate flips a scheme inactive; schemes are never deleted.
func (s *SchemeStore) Deactivate(ctx context.Context, schemeID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schemes SET active = false, updated_at = NOW() WHERE id = $1`, schemeID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("schemes.deactivate", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("schemes.rowsAffected", err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("scheme", schemeID)
	}
	return nil
}

func buildSchemeWhere(filter SchemeFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.ActiveOnly {
		clauses = append(clauses, "active = true")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.State != "" {
		// Nationwide schemes carry an empty state list and match every state.
		args = append(args, filter.State)
		clauses = append(clauses, fmt.Sprintf("(rules->'states' IS NULL OR rules->'states' = '[]'::jsonb OR rules->'states' ? $%d)", len(args)))
	}
	if filter.Crop != "" {
		args = append(args, filter.Crop)
		clauses = append(clauses, fmt.Sprintf("(rules->'crops' IS NULL OR rules->'crops' = '[]'::jsonb OR rules->'crops' ? $%d)", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanScheme(row rowScanner) (*models.Scheme, error) {
	var (
		scheme               models.Scheme
		rules, benefit       []byte
		docs, steps          []byte
	)
	err := row.Scan(
		&scheme.ID, &scheme.Name, &scheme.Category, &scheme.Provider, &scheme.Description,
		&rules, &benefit, &docs, &steps, &scheme.Active, &scheme.Priority,
		&scheme.CreatedAt, &scheme.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("scheme", "")
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("schemes.scan", err)
	}

	if err := json.Unmarshal(rules, &scheme.Rules); err != nil {
		return nil, errors.NewQueryExecutionFailedError("schemes.rules", err)
	}
	if err := json.Unmarshal(benefit, &scheme.Benefit); err != nil {
		return nil, errors.NewQueryExecutionFailedError("schemes.benefit", err)
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &scheme.RequiredDocuments); err != nil {
			return nil, errors.NewQueryExecutionFailedError("schemes.requiredDocuments", err)
		}
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &scheme.ProcessSteps); err != nil {
			return nil, errors.NewQueryExecutionFailedError("schemes.processSteps", err)
		}
	}
	return &scheme, nil
}

func marshalScheme(scheme *models.Scheme) (rules, benefit, docs, steps []byte, err error) {
	if rules, err = json.Marshal(scheme.Rules); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("rules not serializable: " + err.Error())
	}
	if benefit, err = json.Marshal(scheme.Benefit); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("benefit not serializable: " + err.Error())
	}
	if docs, err = json.Marshal(scheme.RequiredDocuments); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("requiredDocuments not serializable: " + err.Error())
	}
	if steps, err = json.Marshal(scheme.ProcessSteps); err != nil {
		return nil, nil, nil, nil, errors.NewInvalidInputError("processSteps not serializable: " + err.Error())
	}
	return rules, benefit, docs, steps, nil
}
