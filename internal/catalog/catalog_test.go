// internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/models"
	"agrischemes/internal/store"
)

// fakeBackend is an in-memory SchemeBackend that counts reads, so cache hits
// are observable.
type fakeBackend struct {
	schemes map[string]*models.Scheme
	gets    int
}

func (f *fakeBackend) GetScheme(_ context.Context, id string) (*models.Scheme, error) {
	f.gets++
	s, ok := f.schemes[id]
	if !ok {
		return nil, errors.NewNotFoundError("scheme", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) List(_ context.Context, filter store.SchemeFilter) ([]*models.Scheme, int, error) {
	var out []*models.Scheme
	for _, s := range f.schemes {
		if filter.ActiveOnly && !s.Active {
			continue
		}
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeBackend) Create(_ context.Context, s *models.Scheme) error {
	if s.ID == "" {
		s.ID = "generated-id"
	}
	cp := *s
	f.schemes[s.ID] = &cp
	return nil
}

func (f *fakeBackend) Update(_ context.Context, s *models.Scheme) error {
	if _, ok := f.schemes[s.ID]; !ok {
		return errors.NewNotFoundError("scheme", s.ID)
	}
	cp := *s
	f.schemes[s.ID] = &cp
	return nil
}

func (f *fakeBackend) Deactivate(_ context.Context, id string) error {
	s, ok := f.schemes[id]
	if !ok {
		return errors.NewNotFoundError("scheme", id)
	}
	s.Active = false
	return nil
}

type fakeChecker struct {
	submitted map[string]bool
}

func (f *fakeChecker) HasSubmittedForScheme(_ context.Context, schemeID string) (bool, error) {
	return f.submitted[schemeID], nil
}

func catalogScheme() *models.Scheme {
	maxSize := 2.0
	return &models.Scheme{
		ID:       "scheme-1",
		Name:     "Income Support",
		Category: models.SchemeCategorySubsidy,
		Provider: "Ministry of Agriculture",
		Rules: models.EligibilityRules{
			FarmSize: &models.Range{Max: &maxSize},
		},
		Benefit:  models.Benefit{Type: models.BenefitMonetary, Amount: 6000},
		Active:   true,
		Priority: 8,
	}
}

func newTestCatalog(t *testing.T) (*Catalog, *fakeBackend, *fakeChecker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	backend := &fakeBackend{schemes: map[string]*models.Scheme{"scheme-1": catalogScheme()}}
	checker := &fakeChecker{submitted: map[string]bool{}}

	// No search index: the Postgres path serves listings in these tests.
	c := New(backend, checker, cache, nil, time.Minute, logger.NewTestLogger(t))
	return c, backend, checker, mr
}

func TestGetScheme_ReadThroughCache(t *testing.T) {
	c, backend, _, mr := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.GetScheme(ctx, "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets)
	assert.True(t, mr.Exists("scheme:scheme-1"))

	second, err := c.GetScheme(ctx, "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets, "second read must come from cache")
	assert.Equal(t, first.Name, second.Name)
}

func TestGetScheme_CacheProtocol(t *testing.T) {
	backend := &fakeBackend{schemes: map[string]*models.Scheme{"scheme-1": catalogScheme()}}
	cache, mock := redismock.NewClientMock()
	c := New(backend, &fakeChecker{submitted: map[string]bool{}}, cache, nil, time.Minute, logger.NewTestLogger(t))

	data, err := json.Marshal(catalogScheme())
	require.NoError(t, err)

	mock.ExpectGet("scheme:scheme-1").RedisNil()
	mock.ExpectSet("scheme:scheme-1", data, time.Minute).SetVal("OK")

	_, err = c.GetScheme(context.Background(), "scheme-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScheme_NotFound(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)

	_, err := c.GetScheme(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestGetScheme_CacheDown(t *testing.T) {
	c, backend, _, mr := newTestCatalog(t)
	mr.Close()

	// A dead cache degrades to Postgres, it never fails the read.
	scheme, err := c.GetScheme(context.Background(), "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, "scheme-1", scheme.ID)
	assert.Equal(t, 1, backend.gets)
}

func TestList_PostgresPath(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)

	schemes, total, err := c.List(context.Background(), Filter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, schemes, 1)
}

func TestUpdateScheme_InvalidatesCache(t *testing.T) {
	c, _, _, mr := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.GetScheme(ctx, "scheme-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("scheme:scheme-1"))

	updated := catalogScheme()
	updated.Description = "updated copy"
	require.NoError(t, c.UpdateScheme(ctx, updated))

	assert.False(t, mr.Exists("scheme:scheme-1"))
}

func TestUpdateScheme_PriorityNormalized(t *testing.T) {
	c, backend, _, _ := newTestCatalog(t)
	ctx := context.Background()

	updated := catalogScheme()
	updated.Priority = 0
	require.NoError(t, c.UpdateScheme(ctx, updated))
	assert.Equal(t, 5, backend.schemes["scheme-1"].Priority)

	updated = catalogScheme()
	updated.Priority = 11
	err := c.UpdateScheme(ctx, updated)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestResolveHits_DropsStaleIndexEntries(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)

	schemes, total := c.resolveHits(context.Background(), []string{"scheme-1", "scheme-gone"}, 2)

	require.Len(t, schemes, 1)
	assert.Equal(t, "scheme-1", schemes[0].ID)
	assert.Equal(t, 1, total)
}

func TestUpdateScheme_FrozenAfterSubmission(t *testing.T) {
	c, _, checker, _ := newTestCatalog(t)
	ctx := context.Background()
	checker.submitted["scheme-1"] = true

	tests := []struct {
		name    string
		mutate  func(s *models.Scheme)
		wantErr bool
	}{
		{"rules change rejected", func(s *models.Scheme) {
			minSize := 0.5
			s.Rules.FarmSize.Min = &minSize
		}, true},
		{"benefit change rejected", func(s *models.Scheme) { s.Benefit.Amount = 9000 }, true},
		{"name change rejected", func(s *models.Scheme) { s.Name = "Renamed" }, true},
		{"description change allowed", func(s *models.Scheme) { s.Description = "clearer wording" }, false},
		{"priority change allowed", func(s *models.Scheme) { s.Priority = 3 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme := catalogScheme()
			tt.mutate(scheme)

			err := c.UpdateScheme(ctx, scheme)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeSchemeFrozen))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateScheme_Validation(t *testing.T) {
	c, _, _, _ := newTestCatalog(t)

	tests := []struct {
		name   string
		mutate func(s *models.Scheme)
	}{
		{"missing name", func(s *models.Scheme) { s.Name = "" }},
		{"missing category", func(s *models.Scheme) { s.Category = "" }},
		{"missing benefit type", func(s *models.Scheme) { s.Benefit.Type = "" }},
		{"priority out of range", func(s *models.Scheme) { s.Priority = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme := catalogScheme()
			scheme.ID = "scheme-2"
			tt.mutate(scheme)

			err := c.CreateScheme(context.Background(), scheme)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestDeactivateScheme_InvalidatesCache(t *testing.T) {
	c, backend, _, mr := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.GetScheme(ctx, "scheme-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("scheme:scheme-1"))

	require.NoError(t, c.DeactivateScheme(ctx, "scheme-1"))

	assert.False(t, mr.Exists("scheme:scheme-1"))
	assert.False(t, backend.schemes["scheme-1"].Active)
}
