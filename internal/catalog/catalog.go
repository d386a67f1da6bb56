// internal/catalog/catalog.go
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/common/metrics"
	"agrischemes/internal/models"
	"agrischemes/internal/store"

	"github.com/redis/go-redis/v9"
)

// SchemeBackend is the Postgres-facing capability the catalog composes.
type SchemeBackend interface {
	GetScheme(ctx context.Context, schemeID string) (*models.Scheme, error)
	List(ctx context.Context, filter store.SchemeFilter) ([]*models.Scheme, int, error)
	Create(ctx context.Context, scheme *models.Scheme) error
	Update(ctx context.Context, scheme *models.Scheme) error
	Deactivate(ctx context.Context, schemeID string) error
}

// SubmissionChecker reports whether submitted applications reference a
// scheme; writes to substantive fields are frozen once any do.
type SubmissionChecker interface {
	HasSubmittedForScheme(ctx context.Context, schemeID string) (bool, error)
}

// Filter narrows a catalog listing from the API surface.
type Filter struct {
	Category models.SchemeCategory
	State    string
	Crop     string
	Query    string
	Page     int
	PageSize int
}

// Catalog exposes filtered, paginated views over active schemes, with a
// Redis read-through cache for single-scheme lookups and an optional
// Elasticsearch index for text search. Reads are the hot path; admin writes
// go straight to Postgres and invalidate the cache.
type Catalog struct {
	backend  SchemeBackend
	checker  SubmissionChecker
	cache    *redis.Client
	search   *SearchIndex
	cacheTTL time.Duration
	logger   logger.Logger
}

func New(backend SchemeBackend, checker SubmissionChecker, cache *redis.Client, search *SearchIndex, cacheTTL time.Duration, log logger.Logger) *Catalog {
	return &Catalog{
		backend:  backend,
		checker:  checker,
		cache:    cache,
		search:   search,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

const cacheKeyPrefix = "scheme:"

// GetScheme resolves a single scheme, serving from cache when possible.
func (c *Catalog) GetScheme(ctx context.Context, schemeID string) (*models.Scheme, error) {
	if c.cache != nil {
		if val, err := c.cache.Get(ctx, cacheKeyPrefix+schemeID).Result(); err == nil {
			var scheme models.Scheme
			if err := json.Unmarshal([]byte(val), &scheme); err == nil {
				metrics.CatalogQueries.WithLabelValues("cache").Inc()
				return &scheme, nil
			}
		}
	}

	scheme, err := c.backend.GetScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	metrics.CatalogQueries.WithLabelValues("postgres").Inc()

	if c.cache != nil {
		if data, err := json.Marshal(scheme); err == nil {
			if err := c.cache.Set(ctx, cacheKeyPrefix+schemeID, data, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("scheme cache set failed", map[string]interface{}{
					"schemeId": schemeID,
					"error":    err,
				})
			}
		}
	}
	return scheme, nil
}

// List returns active schemes matching the filter, ordered by priority.
// When a text query is present and the search index is available, the index
// answers; otherwise Postgres does.
func (c *Catalog) List(ctx context.Context, filter Filter) ([]*models.Scheme, int, error) {
	start := time.Now()

	if filter.Query != "" && c.search != nil {
		ids, total, err := c.search.Search(ctx, filter)
		if err == nil {
			schemes, total := c.resolveHits(ctx, ids, total)
			metrics.CatalogQueries.WithLabelValues("elasticsearch").Inc()
			metrics.CatalogQueryDuration.WithLabelValues("elasticsearch").Observe(time.Since(start).Seconds())
			return schemes, total, nil
		}
		c.logger.Warn("search index unavailable, falling back to postgres", map[string]interface{}{
			"error": err,
		})
	}

	schemes, total, err := c.backend.List(ctx, store.SchemeFilter{
		Category:   filter.Category,
		State:      filter.State,
		Crop:       filter.Crop,
		ActiveOnly: true,
		Offset:     (filter.Page - 1) * filter.PageSize,
		Limit:      filter.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	metrics.CatalogQueries.WithLabelValues("postgres").Inc()
	metrics.CatalogQueryDuration.WithLabelValues("postgres").Observe(time.Since(start).Seconds())
	return schemes, total, nil
}

// resolveHits loads each indexed scheme from the backend. The index can lag
// behind deletions; hits whose backing row is gone are dropped and the hit
// total shrinks with them, so pagination never reports more schemes than the
// store can serve.
func (c *Catalog) resolveHits(ctx context.Context, ids []string, total int) ([]*models.Scheme, int) {
	schemes := make([]*models.Scheme, 0, len(ids))
	for _, id := range ids {
		scheme, err := c.GetScheme(ctx, id)
		if err != nil {
			total--
			continue
		}
		schemes = append(schemes, scheme)
	}
	return schemes, total
}

// CreateScheme registers a new scheme and indexes it for search. Admin-only
// at the API surface.
func (c *Catalog) CreateScheme(ctx context.Context, scheme *models.Scheme) error {
	normalizePriority(scheme)
	if err := validateSchemeDefinition(scheme); err != nil {
		return err
	}
	if err := c.backend.Create(ctx, scheme); err != nil {
		return err
	}
	c.indexScheme(ctx, scheme)
	return nil
}

// UpdateScheme applies an admin edit. Once a submitted application references
// the scheme, only non-substantive fields (description, priority) may change.
func (c *Catalog) UpdateScheme(ctx context.Context, scheme *models.Scheme) error {
	normalizePriority(scheme)
	if err := validateSchemeDefinition(scheme); err != nil {
		return err
	}

	current, err := c.backend.GetScheme(ctx, scheme.ID)
	if err != nil {
		return err
	}

	frozen, err := c.checker.HasSubmittedForScheme(ctx, scheme.ID)
	if err != nil {
		return err
	}
	if frozen && substantiveChange(current, scheme) {
		return errors.NewSchemeFrozenError(scheme.ID)
	}

	if err := c.backend.Update(ctx, scheme); err != nil {
		return err
	}
	c.invalidate(ctx, scheme.ID)
	c.indexScheme(ctx, scheme)
	return nil
}

// DeactivateScheme hides a scheme from new applications without deleting it.
func (c *Catalog) DeactivateScheme(ctx context.Context, schemeID string) error {
	if err := c.backend.Deactivate(ctx, schemeID); err != nil {
		return err
	}
	c.invalidate(ctx, schemeID)
	if c.search != nil {
		if err := c.search.Remove(ctx, schemeID); err != nil {
			c.logger.Warn("search index remove failed", map[string]interface{}{
				"schemeId": schemeID,
				"error":    err,
			})
		}
	}
	return nil
}

func (c *Catalog) invalidate(ctx context.Context, schemeID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, cacheKeyPrefix+schemeID).Err(); err != nil {
		c.logger.Warn("scheme cache invalidation failed", map[string]interface{}{
			"schemeId": schemeID,
			"error":    err,
		})
	}
}

func (c *Catalog) indexScheme(ctx context.Context, scheme *models.Scheme) {
	if c.search == nil {
		return
	}
	if err := c.search.Index(ctx, scheme); err != nil {
		c.logger.Warn("search indexing failed", map[string]interface{}{
			"schemeId": scheme.ID,
			"error":    err,
		})
	}
}

func validateSchemeDefinition(scheme *models.Scheme) error {
	if scheme == nil {
		return errors.NewInvalidInputError("scheme is required")
	}
	if scheme.Name == "" {
		return errors.NewInvalidInputError("scheme name is required")
	}
	if scheme.Category == "" {
		return errors.NewInvalidInputError("scheme category is required")
	}
	if scheme.Benefit.Type == "" {
		return errors.NewInvalidInputError("scheme benefit type is required")
	}
	if scheme.Priority < 1 || scheme.Priority > 10 {
		return errors.NewInvalidInputError("scheme priority must be between 1 and 10")
	}
	return nil
}

// normalizePriority fills in the default listing priority when the admin
// payload omits it, so validation sees a value inside the 1..10 range.
func normalizePriority(scheme *models.Scheme) {
	if scheme != nil && scheme.Priority == 0 {
		scheme.Priority = 5
	}
}

// substantiveChange reports whether an edit touches frozen fields. It
// compares the serialized rule set and benefit along with identity fields.
func substantiveChange(current, updated *models.Scheme) bool {
	if current.Name != updated.Name ||
		current.Category != updated.Category ||
		current.Provider != updated.Provider ||
		current.Active != updated.Active {
		return true
	}
	currRules, _ := json.Marshal(current.Rules)
	updRules, _ := json.Marshal(updated.Rules)
	if string(currRules) != string(updRules) {
		return true
	}
	currBenefit, _ := json.Marshal(current.Benefit)
	updBenefit, _ := json.Marshal(updated.Benefit)
	return string(currBenefit) != string(updBenefit)
}
